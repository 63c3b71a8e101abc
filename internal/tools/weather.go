package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Weather fetches the current weather for a location from
// OpenWeatherMap (metric units) and formats it as a report.
func (c *Client) Weather(ctx context.Context, location string) string {
	c.log.Info("weather lookup: %s", location)

	if c.creds.OpenWeatherKey == "" {
		return "Weather lookups are not configured. Please set OPENWEATHER_API_KEY in your .env file."
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.creds.OpenWeatherKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, "GET", c.weatherURL+"?"+q.Encode(), nil)
	if err != nil {
		return "An error occurred while fetching weather."
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("weather request failed: %v", err)
		return "Could not fetch the weather due to a network issue."
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Sprintf("Could not find weather data for the location: %s.", location)
	case http.StatusUnauthorized:
		return "Invalid OpenWeatherMap API key. Please check your .env file."
	default:
		return fmt.Sprintf("An HTTP error occurred while fetching weather (status %d).", resp.StatusCode)
	}

	var data weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.log.Warn("weather decode failed: %v", err)
		return "An error occurred while reading the weather report."
	}

	desc := ""
	if len(data.Weather) > 0 {
		desc = cases.Title(language.English).String(data.Weather[0].Description)
	}

	return fmt.Sprintf(
		"Current weather in %s, %s:\n"+
			"  - Conditions: %s\n"+
			"  - Temperature: %g°C\n"+
			"  - Humidity: %d%%\n"+
			"  - Wind Speed: %g m/s",
		data.Name, data.Sys.Country, desc, data.Main.Temp, data.Main.Humidity, data.Wind.Speed,
	)
}
