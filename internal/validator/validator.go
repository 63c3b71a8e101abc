// Package validator gates queries on agricultural relevance before the
// pipeline spends a tool call on them. The gate is deliberately
// permissive: greetings pass, offline queries pass, and when the LLM
// check fails for any reason a keyword heuristic decides instead, itself
// defaulting to allow.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/paharikhet/sahayak/internal/llm"
	"github.com/paharikhet/sahayak/internal/logging"
)

// ValidationPrompt is the system prompt for the relevance classifier.
const ValidationPrompt = `You are an input validation system for an agricultural assistant.
Your task is to determine if a user's query is related to agriculture, farming, or agricultural topics.

A query IS agriculture-related if it asks about:
- Crops, farming, cultivation, planting, harvesting
- Weather for farming/agriculture
- Market prices of crops/agricultural products
- Pesticides, fertilizers, agricultural chemicals
- Plant diseases, crop health, pest control
- Soil, irrigation, agricultural practices
- Agricultural machinery, tools
- Livestock (if it's a mixed farming question)
- Agricultural economics, farming business
- Gardening related to food crops
- General agricultural advice, tips, or information

A query is NOT agriculture-related if it asks about:
- General technology, programming, software
- Cooking recipes (unless asking about crop ingredients)
- Medical health, human diseases, fitness
- Entertainment, movies, games, sports
- Politics, current events (unless agriculture policy)
- Mathematics, science (unless agricultural science)
- Shopping for non-agricultural products
- Travel, tourism (unless agricultural tourism)

Your response MUST be a single line of valid JSON in this format:
{"is_agriculture_related": true/false, "reason": "brief explanation"}

Examples:
Query: "What is the price of wheat in Punjab?"
Response: {"is_agriculture_related": true, "reason": "Query is about crop market prices"}

Query: "What is Python programming?"
Response: {"is_agriculture_related": false, "reason": "Query is about programming, not agriculture"}

Query: "Tell me a joke"
Response: {"is_agriculture_related": false, "reason": "General entertainment, not agriculture-related"}

Query: "What is the weather in Delhi?"
Response: {"is_agriculture_related": true, "reason": "Weather is important for agriculture"}`

// RejectionMessage is shown when a query falls outside the assistant's domain.
const RejectionMessage = "I'm Khet Sahayak, an agricultural assistant. " +
	"I can help you with questions about:\n\n" +
	"- **Crops & Farming:** Crop cultivation, planting, harvesting\n" +
	"- **Weather:** Weather forecasts for farming\n" +
	"- **Market Prices:** Crop prices, agricultural economics\n" +
	"- **Pesticides & Fertilizers:** Agricultural chemicals and treatments\n" +
	"- **Crop Diseases:** Plant health, pest control, disease treatment\n" +
	"- **Soil & Irrigation:** Agricultural practices and techniques\n" +
	"- **General Agriculture:** Farming advice, tips, and information\n\n" +
	"Please ask me a question related to agriculture, farming, or crops!"

// keywordRejectionMessage is the shorter rejection used by the keyword fallback.
const keywordRejectionMessage = "I'm Khet Sahayak, an agricultural assistant. " +
	"I specialize in agriculture, farming, crops, weather, market prices, and related topics. " +
	"Please ask me a question related to agriculture!"

var greetings = []string{
	"hello", "hi", "hey",
	"good morning", "good afternoon", "good evening",
	"thanks", "thank you",
	"bye", "goodbye", "see you",
}

// isGreeting reports whether the lowercased trimmed query is a
// greeting, exactly or as a prefix ending on a word boundary. The
// boundary check keeps queries like "himachal apple price" out.
func isGreeting(q string) bool {
	for _, g := range greetings {
		if q == g {
			return true
		}
		if strings.HasPrefix(q, g) {
			next, _ := utf8.DecodeRuneInString(q[len(g):])
			if !unicode.IsLetter(next) && !unicode.IsDigit(next) {
				return true
			}
		}
	}
	return false
}

var agriKeywords = []string{
	// Crops and farming
	"crop", "crops", "farm", "farming", "farmer", "cultivation", "plant", "planting",
	"harvest", "harvesting", "sow", "sowing", "seed", "seeds", "field", "agriculture",
	// Specific crops
	"wheat", "rice", "corn", "maize", "barley", "millet", "paddy", "sugarcane",
	"potato", "tomato", "onion", "garlic", "chili", "pepper", "cotton", "jute",
	// Weather
	"weather", "rain", "rainfall", "temperature", "humidity", "climate", "monsoon",
	"drought", "frost", "season",
	// Market and prices
	"price", "prices", "market", "mandi", "rate", "cost", "rupee", "quintal",
	"economic", "profit", "loss", "selling",
	// Pesticides and chemicals
	"pesticide", "fertilizer", "fertiliser", "insecticide", "herbicide", "fungicide",
	"chemical", "organic", "urea", "dap", "npk",
	// Diseases and pests
	"disease", "pest", "insect", "fungus", "rust", "blight", "mosaic", "virus",
	"bacterial", "treatment", "cure", "prevention", "control",
	// Soil and irrigation
	"soil", "irrigation", "water", "nutrient", "nitrogen", "phosphorus",
	"potassium", "compost", "manure",
	// General
	"agricultural", "yield", "production", "acre", "hectare",
}

var nonAgriKeywords = []string{
	"python", "programming", "code", "software", "app", "website",
	"movie", "film", "song", "music", "game", "sport", "football", "cricket",
	"joke", "cooking recipe", "how to cook", "restaurant", "recipe for",
	"medical", "doctor", "hospital", "medicine", "health check",
	"shopping", "buy", "shop", "product",
}

// Result is the validator's verdict on a query.
type Result struct {
	Valid bool
	// Message is the user-facing rejection text, empty when Valid.
	Message string
}

// Validator decides whether a query belongs to the agricultural domain.
type Validator struct {
	provider llm.Provider
	log      *logging.Logger
}

// New creates a Validator backed by the given LLM provider.
func New(provider llm.Provider) *Validator {
	return &Validator{
		provider: provider,
		log:      logging.Global().WithComponent("validator"),
	}
}

// Validate checks a query against the domain gate. When online is
// false the gate passes everything, matching the offline contract: the
// similarity fallback decides what it can answer.
func (v *Validator) Validate(ctx context.Context, query string, online bool) Result {
	q := strings.ToLower(strings.TrimSpace(query))

	if isGreeting(q) {
		return Result{Valid: true}
	}

	if !online {
		return Result{Valid: true}
	}

	resp, err := v.provider.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: ValidationPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("Query: %q\nResponse:", query)},
		},
	})
	if err != nil {
		v.log.Warn("validation call failed, using keyword fallback: %v", err)
		return KeywordValidate(query)
	}

	verdict, err := parseVerdict(resp.Content)
	if err != nil {
		v.log.Warn("unparseable validation response, using keyword fallback")
		return KeywordValidate(query)
	}

	if verdict {
		return Result{Valid: true}
	}
	return Result{Valid: false, Message: RejectionMessage}
}

// KeywordValidate is the heuristic fallback used when the LLM check is
// unavailable or unparseable. Lenient: anything not clearly off-topic
// is allowed through.
func KeywordValidate(query string) Result {
	q := strings.ToLower(query)

	hasAgri := false
	for _, kw := range agriKeywords {
		if strings.Contains(q, kw) {
			hasAgri = true
			break
		}
	}

	if !hasAgri {
		for _, kw := range nonAgriKeywords {
			if strings.Contains(q, kw) {
				return Result{Valid: false, Message: keywordRejectionMessage}
			}
		}
	}

	// Short queries are likely greetings or follow-ups; allow them. The
	// final default is also allow.
	return Result{Valid: true}
}

type validationVerdict struct {
	IsAgricultureRelated bool   `json:"is_agriculture_related"`
	Reason               string `json:"reason"`
}

func parseVerdict(raw string) (bool, error) {
	cleaned := extractJSON(raw)

	var v validationVerdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return false, fmt.Errorf("parse validation verdict: %w", err)
	}
	return v.IsAgricultureRelated, nil
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
