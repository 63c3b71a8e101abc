package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// agmarknetRecordLimit caps how many rows we request from data.gov.in.
const agmarknetRecordLimit = "20"

// maxPriceLines is the maximum number of price lines in a report.
const maxPriceLines = 5

type marketResponse struct {
	Records []marketRecord `json:"records"`
}

type marketRecord struct {
	District   string `json:"district"`
	Market     string `json:"market"`
	ModalPrice string `json:"modal_price"`
}

// MarketPrice fetches recent AGMARKNET mandi prices for a crop in a
// state from data.gov.in. Records with a zero or missing modal price
// are skipped; at most five valid lines are reported.
func (c *Client) MarketPrice(ctx context.Context, crop, state, district string) string {
	c.log.Info("market price lookup: %s in %s", crop, state)

	if c.creds.DataGovKey == "" {
		return "Market price lookups are not configured. Please set DATA_GOV_API_KEY in your .env file."
	}

	title := cases.Title(language.English)
	cropT := title.String(crop)
	stateT := title.String(state)

	q := url.Values{}
	q.Set("api-key", c.creds.DataGovKey)
	q.Set("format", "json")
	q.Set("limit", agmarknetRecordLimit)
	q.Set("filters[state]", stateT)
	q.Set("filters[commodity]", cropT)
	if district != "" {
		q.Set("filters[district]", title.String(district))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.marketURL+"?"+q.Encode(), nil)
	if err != nil {
		return "An error occurred while fetching market prices."
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("market price request failed: %v", err)
		return "Could not fetch market prices due to a network issue."
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("An error occurred while fetching market prices (status %d).", resp.StatusCode)
	}

	var data marketResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.log.Warn("market price decode failed: %v", err)
		return "An error occurred while reading the market price data."
	}

	if len(data.Records) == 0 {
		return fmt.Sprintf("No market price data found for %s in %s.", cropT, stateT)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent AGMARKNET Market Prices for %s in %s:\n", cropT, stateT)

	lines := 0
	for _, rec := range data.Records {
		if lines >= maxPriceLines {
			break
		}
		if rec.ModalPrice == "" || rec.ModalPrice == "0" {
			continue
		}
		fmt.Fprintf(&sb, "  - District: %s, Market: %s, Price: ₹%s/Quintal\n",
			rec.District, rec.Market, rec.ModalPrice)
		lines++
	}

	if lines == 0 {
		return fmt.Sprintf("No recent market price data (with valid prices) found for %s in %s.", cropT, stateT)
	}
	return sb.String()
}
