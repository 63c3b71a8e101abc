package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/paharikhet/sahayak/internal/llm"
	"github.com/paharikhet/sahayak/internal/logging"
)

// RoutingPrompt is the system prompt for the classifier LLM. The model
// must answer with a single line of JSON naming the tool and its
// parameters.
const RoutingPrompt = `You are a query routing-and-extraction expert for an agricultural assistant.
Given a user query, your job is to identify the correct tool to use and extract the necessary parameters.
Your response MUST be a single line of valid JSON.

The available tools are:
1. {"tool": "weather", "location": "..."} - Use for any weather-related questions.
2. {"tool": "market_price", "crop": "...", "state": "..."} - Use for questions about crop prices.
3. {"tool": "general_search", "query": "..."} - Use for all other agricultural questions (e.g., "how to grow rice", "what is wheat rust?").
4. {"tool": "none", "reply": "..."} - Use if the question is a simple greeting, a thank-you, or conversational.

Examples:
User Query: what's the weather in Dehradun?
JSON: {"tool": "weather", "location": "Dehradun"}

User Query: price of wheat in Punjab
JSON: {"tool": "market_price", "crop": "wheat", "state": "Punjab"}

User Query: how to treat blast disease in rice
JSON: {"tool": "general_search", "query": "how to treat blast disease in rice"}

User Query: Hello
JSON: {"tool": "none", "reply": "Hello! How can I help you with your agricultural questions today?"}

User Query: thanks
JSON: {"tool": "none", "reply": "You're welcome! Do you have any other questions?"}`

// greetings are answered on the fast path, with no model call. Matched
// by exact equality, or as a prefix ending on a word boundary, against
// the lowercased trimmed query.
var greetings = []string{
	"hello", "hi", "hey",
	"good morning", "good afternoon", "good evening",
	"thanks", "thank you",
	"bye", "goodbye", "see you",
}

// greetingReplies maps the matched greeting to a canned reply.
func greetingReply(greeting string) string {
	switch greeting {
	case "thanks", "thank you":
		return "You're welcome! Do you have any other questions?"
	case "bye", "goodbye", "see you":
		return "Goodbye! Come back anytime you have farming questions."
	default:
		return "Hello! How can I help you with your agricultural questions today?"
	}
}

// Router classifies queries into tool invocations.
type Router struct {
	provider llm.Provider
	log      *logging.Logger
}

// New creates a Router backed by the given LLM provider.
func New(provider llm.Provider) *Router {
	return &Router{
		provider: provider,
		log:      logging.Global().WithComponent("router"),
	}
}

// Route classifies a query. Greetings are answered immediately; other
// queries go through the LLM. A response that cannot be parsed into a
// valid decision returns an error wrapping ErrParse.
func (r *Router) Route(ctx context.Context, query string) (*Decision, error) {
	start := time.Now()

	if d := r.fastPath(query); d != nil {
		d.ClassifiedAt = time.Now()
		d.ClassificationDuration = time.Since(start)
		r.log.Debug("fast path: greeting")
		return d, nil
	}

	resp, err := r.provider.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: RoutingPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("User Query: %s\nJSON:", query)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("route query: %w", err)
	}

	d, err := ParseDecision(resp.Content)
	if err != nil {
		r.log.Warn("unparseable routing response: %.120s", resp.Content)
		return nil, err
	}

	d.Path = PathSlow
	d.ClassifiedAt = time.Now()
	d.ClassificationDuration = time.Since(start)
	r.log.Debug("routed to %s in %v", d.Tool, d.ClassificationDuration)
	return d, nil
}

// fastPath returns a conversational decision for greetings, nil otherwise.
func (r *Router) fastPath(query string) *Decision {
	q := strings.ToLower(strings.TrimSpace(query))
	if g := matchGreeting(q); g != "" {
		return &Decision{
			Tool:  ToolNone,
			Reply: greetingReply(g),
			Path:  PathFast,
		}
	}
	return nil
}

// matchGreeting returns the greeting phrase the query starts with, or
// "". A prefix only counts when the next rune is not a letter or digit,
// so "himachal apple price" is not a "hi".
func matchGreeting(q string) string {
	for _, g := range greetings {
		if q == g {
			return g
		}
		if strings.HasPrefix(q, g) {
			next, _ := utf8.DecodeRuneInString(q[len(g):])
			if !unicode.IsLetter(next) && !unicode.IsDigit(next) {
				return g
			}
		}
	}
	return ""
}

// ParseDecision parses the classifier's raw text into a Decision.
// Markdown code fences around the JSON are tolerated.
func ParseDecision(raw string) (*Decision, error) {
	cleaned := extractJSON(raw)

	var d Decision
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if !d.Tool.IsValid() {
		return nil, fmt.Errorf("%w: unknown tool %q", ErrParse, d.Tool)
	}

	return &d, nil
}

// extractJSON strips markdown code fences that models sometimes wrap
// around their JSON output.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}
