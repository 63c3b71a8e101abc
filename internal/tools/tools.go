// Package tools implements the external lookup adapters: current
// weather, mandi market prices, and curated web search. Every adapter
// returns a human-readable context string and never an error; upstream
// failures become descriptive sentences the synthesizer can relay.
package tools

import (
	"net/http"
	"time"

	"github.com/paharikhet/sahayak/internal/config"
	"github.com/paharikhet/sahayak/internal/logging"
)

const defaultTimeout = 10 * time.Second

// Credentials holds the API keys the adapters need.
type Credentials struct {
	OpenWeatherKey string
	DataGovKey     string
	GoogleKey      string
	GoogleCSEID    string
}

// Client bundles the three adapters behind one HTTP client.
type Client struct {
	creds  Credentials
	client *http.Client
	log    *logging.Logger

	// Base URLs are overridable for tests.
	weatherURL string
	marketURL  string
	searchURL  string
}

// Option configures a Client.
type Option func(*Client)

// WithWeatherURL overrides the OpenWeatherMap endpoint.
func WithWeatherURL(url string) Option {
	return func(c *Client) { c.weatherURL = url }
}

// WithMarketURL overrides the data.gov.in endpoint.
func WithMarketURL(url string) Option {
	return func(c *Client) { c.marketURL = url }
}

// WithSearchURL overrides the Google Custom Search endpoint.
func WithSearchURL(url string) Option {
	return func(c *Client) { c.searchURL = url }
}

// WithTimeout overrides the per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// New creates a Client with the given credentials.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:      creds,
		client:     &http.Client{Timeout: defaultTimeout},
		log:        logging.Global().WithComponent("tools"),
		weatherURL: "https://api.openweathermap.org/data/2.5/weather",
		marketURL:  "https://api.data.gov.in/resource/9ef84268-d588-465a-a308-a864a43d0070",
		searchURL:  "https://www.googleapis.com/customsearch/v1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig creates a Client from application configuration.
func FromConfig(cfg *config.Config) *Client {
	return New(Credentials{
		OpenWeatherKey: cfg.APIs.OpenWeatherKey,
		DataGovKey:     cfg.APIs.DataGovKey,
		GoogleKey:      cfg.APIs.GoogleKey,
		GoogleCSEID:    cfg.APIs.GoogleCSEID,
	}, WithTimeout(cfg.AdapterTimeout()))
}
