// Package orchestrator runs a user query through the full pipeline:
// domain validation, tool routing, tool invocation, and answer
// synthesis, with the offline similarity fallback when the network is
// unreachable. Every completed interaction is persisted to the chat
// log, whatever path produced it.
package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/paharikhet/sahayak/internal/connectivity"
	"github.com/paharikhet/sahayak/internal/data"
	"github.com/paharikhet/sahayak/internal/logging"
	"github.com/paharikhet/sahayak/internal/offline"
	"github.com/paharikhet/sahayak/internal/router"
	"github.com/paharikhet/sahayak/internal/validator"
)

// Tool labels recorded on persisted interactions, beyond the router's
// own tool names.
const (
	ToolValidation       = "validation"
	ToolOfflineSearch    = "offline_search"
	ToolOfflineFallback  = "offline_fallback"
	ToolMissingParameter = "missing_parameter"
	ToolError            = "error"
)

// User-facing messages for pipeline failures. Raw errors are logged,
// never shown.
const (
	msgRouterParse = "I'm sorry, I received an invalid response from my internal logic. Please try rephrasing."
	msgRouterKey   = "I'm sorry, I'm having an issue with my internal configuration (API Key). The server logs have more details."
	msgRouterOther = "I'm sorry, I had an internal error trying to understand your request. Please rephrase and try again."
	msgSynthesis   = "I found some information, but had trouble formulating a final answer."
	msgUnknownTool = "I'm sorry, I don't have a tool to answer that question."

	msgMissingLocation = "You asked about weather, but didn't specify a location. Please ask again (e.g., 'weather in Delhi')."
	msgMissingCrop     = "You asked for a price, but I need both a crop and a state (e.g., 'price of rice in Haryana')."
	msgMissingQuery    = "I'm not sure how to search for that. Could you be more specific?"
)

// state names a stage of the request pipeline, for logging.
type state string

const (
	stateValidating   state = "validating"
	stateRouting      state = "routing"
	stateInvoking     state = "invoking"
	stateSynthesizing state = "synthesizing"
	stateOffline      state = "offline_fallback"
	stateDone         state = "done"
)

// Validator gates queries on agricultural relevance.
type Validator interface {
	Validate(ctx context.Context, query string, online bool) validator.Result
}

// Router classifies queries into tool invocations.
type Router interface {
	Route(ctx context.Context, query string) (*router.Decision, error)
}

// ToolClient invokes the external lookup adapters.
type ToolClient interface {
	Weather(ctx context.Context, location string) string
	MarketPrice(ctx context.Context, crop, state, district string) string
	Search(ctx context.Context, query string) string
}

// Synthesizer turns retrieved context into a final answer.
type Synthesizer interface {
	Answer(ctx context.Context, query, context string) (string, error)
}

// Searcher finds similar past interactions for the offline path.
type Searcher interface {
	FindSimilar(ctx context.Context, query string, topK int) ([]offline.Match, error)
}

// HistoryWriter persists completed interactions.
type HistoryWriter interface {
	Append(ctx context.Context, rec *data.ChatRecord) (int64, error)
}

// Result is the outcome of one request.
type Result struct {
	// RequestID identifies the request in logs.
	RequestID string

	// Response is the user-facing answer text.
	Response string

	// Tool is the capability that produced the response, or one of the
	// pipeline labels (validation, offline_search, offline_fallback,
	// missing_parameter, error).
	Tool string

	// ContextData is the routing metadata persisted with the record.
	ContextData map[string]string

	// Offline reports whether the offline path produced the response.
	Offline bool
}

// Orchestrator wires the pipeline components together.
type Orchestrator struct {
	validator Validator
	router    Router
	tools     ToolClient
	synth     Synthesizer
	searcher  Searcher
	history   HistoryWriter
	prober    connectivity.Prober
	log       *logging.Logger

	// OfflineTopK is how many matches the offline path requests.
	OfflineTopK int
}

// New creates an Orchestrator from its components.
func New(v Validator, r Router, t ToolClient, s Synthesizer, search Searcher, history HistoryWriter, prober connectivity.Prober) *Orchestrator {
	return &Orchestrator{
		validator:   v,
		router:      r,
		tools:       t,
		synth:       s,
		searcher:    search,
		history:     history,
		prober:      prober,
		log:         logging.Global().WithComponent("orchestrator"),
		OfflineTopK: 3,
	}
}

// Respond runs one query through the pipeline. forceOffline skips the
// connectivity probe and takes the offline path directly. The returned
// Result is also persisted to the chat log; persistence failures are
// logged, not surfaced.
func (o *Orchestrator) Respond(ctx context.Context, query string, forceOffline bool) *Result {
	requestID := uuid.NewString()
	res := o.respond(ctx, requestID, query, forceOffline)
	res.RequestID = requestID

	if _, err := o.history.Append(ctx, &data.ChatRecord{
		UserQuery:         query,
		AssistantResponse: res.Response,
		ToolUsed:          res.Tool,
		ContextData:       res.ContextData,
	}); err != nil {
		o.log.Error("persist interaction %s: %v", requestID, err)
	}

	return res
}

func (o *Orchestrator) respond(ctx context.Context, requestID, query string, forceOffline bool) *Result {
	online := !forceOffline && o.prober.Online(ctx)

	o.step(requestID, stateValidating)
	if v := o.validator.Validate(ctx, query, online); !v.Valid {
		o.step(requestID, stateDone)
		return &Result{Response: v.Message, Tool: ToolValidation}
	}

	if !online {
		return o.offlineRespond(ctx, requestID, query, o.OfflineTopK, ToolOfflineSearch)
	}

	o.step(requestID, stateRouting)
	decision, err := o.router.Route(ctx, query)
	if err != nil {
		o.log.Warn("routing failed for %s: %v", requestID, err)
		if fallback := o.tryOfflineFallback(ctx, requestID, query); fallback != nil {
			return fallback
		}
		o.step(requestID, stateDone)
		return &Result{Response: routeErrorMessage(err), Tool: ToolError}
	}

	o.step(requestID, stateInvoking)
	var (
		toolContext string
		contextData map[string]string
	)

	switch decision.Tool {
	case router.ToolWeather:
		if decision.Location == "" {
			o.step(requestID, stateDone)
			return &Result{Response: msgMissingLocation, Tool: ToolMissingParameter}
		}
		toolContext = o.tools.Weather(ctx, decision.Location)
		contextData = map[string]string{"tool": decision.Tool.String(), "location": decision.Location}

	case router.ToolMarketPrice:
		if decision.Crop == "" || decision.State == "" {
			o.step(requestID, stateDone)
			return &Result{Response: msgMissingCrop, Tool: ToolMissingParameter}
		}
		toolContext = o.tools.MarketPrice(ctx, decision.Crop, decision.State, decision.District)
		contextData = map[string]string{"tool": decision.Tool.String(), "crop": decision.Crop, "state": decision.State}
		if decision.District != "" {
			contextData["district"] = decision.District
		}

	case router.ToolGeneralSearch:
		if decision.Query == "" {
			o.step(requestID, stateDone)
			return &Result{Response: msgMissingQuery, Tool: ToolMissingParameter}
		}
		toolContext = o.tools.Search(ctx, decision.Query)
		contextData = map[string]string{"tool": decision.Tool.String(), "query": decision.Query}

	case router.ToolNone:
		reply := decision.Reply
		if reply == "" {
			reply = "Hello! How can I help?"
		}
		o.step(requestID, stateDone)
		return &Result{Response: reply, Tool: router.ToolNone.String()}

	default:
		o.step(requestID, stateDone)
		return &Result{Response: msgUnknownTool, Tool: ToolError}
	}

	o.step(requestID, stateSynthesizing)
	answer, err := o.synth.Answer(ctx, query, toolContext)
	if err != nil {
		o.log.Warn("synthesis failed for %s: %v", requestID, err)
		if fallback := o.tryOfflineFallback(ctx, requestID, query); fallback != nil {
			return fallback
		}
		o.step(requestID, stateDone)
		return &Result{Response: msgSynthesis, Tool: ToolError}
	}

	o.step(requestID, stateDone)
	return &Result{Response: answer, Tool: decision.Tool.String(), ContextData: contextData}
}

// offlineRespond answers from chat history alone.
func (o *Orchestrator) offlineRespond(ctx context.Context, requestID, query string, topK int, tool string) *Result {
	o.step(requestID, stateOffline)

	matches, err := o.searcher.FindSimilar(ctx, query, topK)
	if err != nil {
		o.log.Warn("offline search failed for %s: %v", requestID, err)
		matches = nil
	}

	o.step(requestID, stateDone)
	return &Result{
		Response: offline.FormatResponse(matches, query),
		Tool:     tool,
		Offline:  true,
	}
}

// tryOfflineFallback attempts a single-best-match history answer after
// a live pipeline failure. Returns nil when the history has nothing.
func (o *Orchestrator) tryOfflineFallback(ctx context.Context, requestID, query string) *Result {
	matches, err := o.searcher.FindSimilar(ctx, query, 1)
	if err != nil || len(matches) == 0 {
		return nil
	}

	o.step(requestID, stateDone)
	return &Result{
		Response: offline.FormatResponse(matches, query),
		Tool:     ToolOfflineFallback,
		Offline:  true,
	}
}

func routeErrorMessage(err error) string {
	if errors.Is(err, router.ErrParse) {
		return msgRouterParse
	}
	if strings.Contains(err.Error(), "API key") {
		return msgRouterKey
	}
	return msgRouterOther
}

func (o *Orchestrator) step(requestID string, s state) {
	o.log.Debug("request %s: %s", requestID, s)
}
