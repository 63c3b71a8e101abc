package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paharikhet/sahayak/internal/connectivity"
	"github.com/paharikhet/sahayak/internal/data"
	"github.com/paharikhet/sahayak/internal/offline"
	"github.com/paharikhet/sahayak/internal/router"
	"github.com/paharikhet/sahayak/internal/validator"
)

type stubValidator struct {
	result validator.Result
	calls  int
}

func (s *stubValidator) Validate(ctx context.Context, query string, online bool) validator.Result {
	s.calls++
	return s.result
}

type stubRouter struct {
	decision *router.Decision
	err      error
	calls    int
}

func (s *stubRouter) Route(ctx context.Context, query string) (*router.Decision, error) {
	s.calls++
	return s.decision, s.err
}

type stubTools struct {
	weatherCalls, marketCalls, searchCalls int
	weatherOut, marketOut, searchOut       string
}

func (s *stubTools) Weather(ctx context.Context, location string) string {
	s.weatherCalls++
	return s.weatherOut
}

func (s *stubTools) MarketPrice(ctx context.Context, crop, state, district string) string {
	s.marketCalls++
	return s.marketOut
}

func (s *stubTools) Search(ctx context.Context, query string) string {
	s.searchCalls++
	return s.searchOut
}

type stubSynth struct {
	answer string
	err    error
	calls  int
}

func (s *stubSynth) Answer(ctx context.Context, query, context string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf(s.answer, context), nil
}

type stubSearcher struct {
	matches []offline.Match
	err     error
	calls   int
	lastK   int
}

func (s *stubSearcher) FindSimilar(ctx context.Context, query string, topK int) ([]offline.Match, error) {
	s.calls++
	s.lastK = topK
	return s.matches, s.err
}

type stubHistory struct {
	records []data.ChatRecord
}

func (s *stubHistory) Append(ctx context.Context, rec *data.ChatRecord) (int64, error) {
	s.records = append(s.records, *rec)
	return int64(len(s.records)), nil
}

type fixture struct {
	validator *stubValidator
	router    *stubRouter
	tools     *stubTools
	synth     *stubSynth
	searcher  *stubSearcher
	history   *stubHistory
}

func newFixture(online bool) (*Orchestrator, *fixture) {
	f := &fixture{
		validator: &stubValidator{result: validator.Result{Valid: true}},
		router:    &stubRouter{},
		tools:     &stubTools{weatherOut: "weather ctx", marketOut: "market ctx", searchOut: "search ctx"},
		synth:     &stubSynth{answer: "answer from %s"},
		searcher:  &stubSearcher{},
		history:   &stubHistory{},
	}
	o := New(f.validator, f.router, f.tools, f.synth, f.searcher, f.history, connectivity.Static(online))
	return o, f
}

func TestWeatherPipeline(t *testing.T) {
	o, f := newFixture(true)
	f.router.decision = &router.Decision{Tool: router.ToolWeather, Location: "Dehradun"}
	f.tools.weatherOut = "Current weather in Dehradun, IN:\n  - Temperature: 18°C"

	res := o.Respond(context.Background(), "What is the weather in Dehradun?", false)

	assert.Equal(t, "weather", res.Tool)
	assert.Contains(t, res.Response, "18°C")
	assert.Equal(t, 1, f.tools.weatherCalls)
	assert.Equal(t, 1, f.synth.calls)
	assert.NotEmpty(t, res.RequestID)

	require.Len(t, f.history.records, 1)
	assert.Equal(t, "weather", f.history.records[0].ToolUsed)
	assert.Equal(t, "Dehradun", f.history.records[0].ContextData["location"])
}

func TestOfflineSkipsLivePipeline(t *testing.T) {
	o, f := newFixture(false)
	f.searcher.matches = []offline.Match{{
		Record: data.ChatRecord{UserQuery: "price of wheat in Punjab", AssistantResponse: "₹2150/Quintal"},
		Score:  0.55,
	}}

	res := o.Respond(context.Background(), "wheat price in Punjab", false)

	assert.Equal(t, ToolOfflineSearch, res.Tool)
	assert.True(t, res.Offline)
	assert.Contains(t, res.Response, "found a related question")
	assert.Contains(t, res.Response, "₹2150/Quintal")

	// Offline never touches the router, the adapters, or the synthesizer.
	assert.Zero(t, f.router.calls)
	assert.Zero(t, f.tools.weatherCalls+f.tools.marketCalls+f.tools.searchCalls)
	assert.Zero(t, f.synth.calls)

	require.Len(t, f.history.records, 1)
	assert.Equal(t, ToolOfflineSearch, f.history.records[0].ToolUsed)
}

func TestForcedOfflineSkipsProbe(t *testing.T) {
	// Prober says online, but the caller forces offline.
	o, f := newFixture(true)

	res := o.Respond(context.Background(), "anything", true)
	assert.True(t, res.Offline)
	assert.Zero(t, f.router.calls)
}

func TestOfflineEmptyHistory(t *testing.T) {
	o, _ := newFixture(false)

	res := o.Respond(context.Background(), "how to grow garlic", false)
	assert.Equal(t, offline.NoHistoryMessage, res.Response)
	assert.Equal(t, ToolOfflineSearch, res.Tool)
}

func TestValidationRejection(t *testing.T) {
	o, f := newFixture(true)
	f.validator.result = validator.Result{Valid: false, Message: validator.RejectionMessage}

	res := o.Respond(context.Background(), "tell me a joke", false)

	assert.Equal(t, ToolValidation, res.Tool)
	assert.Contains(t, res.Response, "agricultural assistant")
	assert.Zero(t, f.router.calls)

	// Rejections are persisted too.
	require.Len(t, f.history.records, 1)
	assert.Equal(t, ToolValidation, f.history.records[0].ToolUsed)
}

func TestMarketPriceMissingState(t *testing.T) {
	o, f := newFixture(true)
	f.router.decision = &router.Decision{Tool: router.ToolMarketPrice, Crop: "wheat"}

	res := o.Respond(context.Background(), "price of wheat", false)

	assert.Equal(t, ToolMissingParameter, res.Tool)
	assert.Contains(t, res.Response, "both a crop and a state")
	assert.Zero(t, f.tools.marketCalls)
	assert.Zero(t, f.synth.calls)
	// Clarifying messages do not consult the offline fallback.
	assert.Zero(t, f.searcher.calls)

	// Persisted with the distinct user-correctable label.
	require.Len(t, f.history.records, 1)
	assert.Equal(t, ToolMissingParameter, f.history.records[0].ToolUsed)
}

func TestWeatherMissingLocation(t *testing.T) {
	o, f := newFixture(true)
	f.router.decision = &router.Decision{Tool: router.ToolWeather}

	res := o.Respond(context.Background(), "what's the weather", false)
	assert.Equal(t, ToolMissingParameter, res.Tool)
	assert.Contains(t, res.Response, "didn't specify a location")
	assert.Zero(t, f.tools.weatherCalls)
}

func TestConversationalSkipsSynthesis(t *testing.T) {
	o, f := newFixture(true)
	f.router.decision = &router.Decision{Tool: router.ToolNone, Reply: "Hello! How can I help?"}

	res := o.Respond(context.Background(), "hello", false)

	assert.Equal(t, "none", res.Tool)
	assert.Equal(t, "Hello! How can I help?", res.Response)
	assert.Zero(t, f.synth.calls)
}

func TestRouterParseFailureFallsBackToHistory(t *testing.T) {
	o, f := newFixture(true)
	f.router.err = fmt.Errorf("%w: not json", router.ErrParse)
	f.searcher.matches = []offline.Match{{
		Record: data.ChatRecord{UserQuery: "old q", AssistantResponse: "old a"},
		Score:  0.4,
	}}

	res := o.Respond(context.Background(), "confusing query", false)

	assert.Equal(t, ToolOfflineFallback, res.Tool)
	assert.Contains(t, res.Response, "old a")
	assert.Equal(t, 1, f.searcher.lastK)
}

func TestRouterParseFailureNoHistory(t *testing.T) {
	o, f := newFixture(true)
	f.router.err = fmt.Errorf("%w: not json", router.ErrParse)

	res := o.Respond(context.Background(), "confusing query", false)
	assert.Equal(t, ToolError, res.Tool)
	assert.Contains(t, res.Response, "invalid response from my internal logic")
}

func TestSynthesisFailure(t *testing.T) {
	o, f := newFixture(true)
	f.router.decision = &router.Decision{Tool: router.ToolGeneralSearch, Query: "wheat rust"}
	f.synth.err = errors.New("model unavailable")

	res := o.Respond(context.Background(), "what is wheat rust", false)
	assert.Equal(t, ToolError, res.Tool)
	assert.Contains(t, res.Response, "trouble formulating a final answer")
	assert.Equal(t, 1, f.tools.searchCalls)
}

func TestOfflineSearchErrorStillAnswers(t *testing.T) {
	o, f := newFixture(false)
	f.searcher.err = errors.New("db locked")

	res := o.Respond(context.Background(), "anything", false)
	assert.Equal(t, offline.NoHistoryMessage, res.Response)
}

func TestEveryPathPersists(t *testing.T) {
	queries := []struct {
		name  string
		setup func() (*Orchestrator, *fixture)
	}{
		{"weather", func() (*Orchestrator, *fixture) {
			o, f := newFixture(true)
			f.router.decision = &router.Decision{Tool: router.ToolWeather, Location: "Delhi"}
			return o, f
		}},
		{"rejection", func() (*Orchestrator, *fixture) {
			o, f := newFixture(true)
			f.validator.result = validator.Result{Valid: false, Message: "no"}
			return o, f
		}},
		{"offline", func() (*Orchestrator, *fixture) {
			return newFixture(false)
		}},
		{"missing param", func() (*Orchestrator, *fixture) {
			o, f := newFixture(true)
			f.router.decision = &router.Decision{Tool: router.ToolMarketPrice}
			return o, f
		}},
	}

	for _, tc := range queries {
		t.Run(tc.name, func(t *testing.T) {
			o, f := tc.setup()
			o.Respond(context.Background(), "q", false)
			assert.Len(t, f.history.records, 1)
		})
	}
}
