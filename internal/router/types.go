// Package router classifies user queries into tool invocations.
// A greeting fast path answers conversational openers without any model
// call; everything else goes through an LLM that returns a single line
// of JSON naming the tool and its parameters.
package router

import (
	"errors"
	"time"
)

// Tool identifies the capability a query is routed to.
type Tool string

const (
	// ToolWeather answers weather questions for a location.
	ToolWeather Tool = "weather"
	// ToolMarketPrice answers crop price questions for a state.
	ToolMarketPrice Tool = "market_price"
	// ToolGeneralSearch answers everything else agricultural via web search.
	ToolGeneralSearch Tool = "general_search"
	// ToolNone is a conversational reply needing no external data.
	ToolNone Tool = "none"
)

// AllTools returns all valid tools for validation.
func AllTools() []Tool {
	return []Tool{ToolWeather, ToolMarketPrice, ToolGeneralSearch, ToolNone}
}

// String returns the string representation of a Tool.
func (t Tool) String() string {
	return string(t)
}

// IsValid checks if a Tool is a known valid tool.
func (t Tool) IsValid() bool {
	for _, valid := range AllTools() {
		if t == valid {
			return true
		}
	}
	return false
}

// ClassificationPath indicates how a decision was made.
type ClassificationPath string

const (
	// PathFast indicates the greeting fast path answered without a model call.
	PathFast ClassificationPath = "fast"
	// PathSlow indicates the LLM classifier was consulted.
	PathSlow ClassificationPath = "slow"
)

// Decision contains the result of query classification.
type Decision struct {
	// Tool is the selected capability.
	Tool Tool `json:"tool"`

	// Location is set for weather queries.
	Location string `json:"location,omitempty"`

	// Crop and State are set for market price queries. District is
	// optional and narrows the price lookup.
	Crop     string `json:"crop,omitempty"`
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`

	// Query is the extracted search query for general search.
	Query string `json:"query,omitempty"`

	// Reply is the conversational answer when Tool is ToolNone.
	Reply string `json:"reply,omitempty"`

	// Path indicates which classification method was used.
	Path ClassificationPath `json:"path"`

	// ClassifiedAt is when the classification was made.
	ClassifiedAt time.Time `json:"classified_at"`

	// ClassificationDuration is how long classification took.
	ClassificationDuration time.Duration `json:"classification_duration"`
}

// ErrParse is returned when the classifier's output is not the
// expected single-line JSON, or names an unknown tool.
var ErrParse = errors.New("router: unparseable classification response")
