package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paharikhet/sahayak/internal/llm"
)

func TestGreetingsAlwaysPass(t *testing.T) {
	v := New(llm.NewMockProvider().WithError(errors.New("must not be called")))

	for _, q := range []string{"hello", "Hi!", "thanks a lot", "Good Morning"} {
		res := v.Validate(context.Background(), q, true)
		assert.True(t, res.Valid, q)
		assert.Empty(t, res.Message, q)
	}
}

func TestGreetingPrefixNeedsWordBoundary(t *testing.T) {
	mock := llm.NewMockProvider().
		WithResponse("himachal", `{"is_agriculture_related": true, "reason": "crop prices"}`)
	v := New(mock)

	// Starts with "hi" but is not a greeting; must go to the classifier.
	res := v.Validate(context.Background(), "himachal apple price", true)
	assert.True(t, res.Valid)
	assert.Len(t, mock.Calls, 1)
}

func TestOfflinePassesEverything(t *testing.T) {
	mock := llm.NewMockProvider().WithError(errors.New("must not be called"))
	v := New(mock)

	res := v.Validate(context.Background(), "tell me a joke", false)
	assert.True(t, res.Valid)
	assert.Empty(t, mock.Calls)
}

func TestLLMAccepts(t *testing.T) {
	mock := llm.NewMockProvider().
		WithResponse("wheat", `{"is_agriculture_related": true, "reason": "crop prices"}`)
	v := New(mock)

	res := v.Validate(context.Background(), "price of wheat in Punjab", true)
	assert.True(t, res.Valid)
}

func TestLLMRejects(t *testing.T) {
	mock := llm.NewMockProvider().
		WithResponse("joke", `{"is_agriculture_related": false, "reason": "entertainment"}`)
	v := New(mock)

	res := v.Validate(context.Background(), "tell me a joke", true)
	require.False(t, res.Valid)
	assert.Contains(t, res.Message, "agricultural assistant")
}

func TestLLMFailureFallsBackToKeywords(t *testing.T) {
	v := New(llm.NewMockProvider().WithError(errors.New("quota exceeded")))

	// Agriculture keyword present, allowed.
	res := v.Validate(context.Background(), "how much urea for my field", true)
	assert.True(t, res.Valid)

	// Clearly off-topic, rejected.
	res = v.Validate(context.Background(), "recommend a python programming course", true)
	assert.False(t, res.Valid)
}

func TestUnparseableVerdictFallsBackToKeywords(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Default = "Sure! That looks agricultural to me."
	v := New(mock)

	res := v.Validate(context.Background(), "when should I irrigate sugarcane", true)
	assert.True(t, res.Valid)
}

func TestKeywordValidate(t *testing.T) {
	tests := []struct {
		query string
		valid bool
	}{
		{"price of wheat in Punjab", true},
		{"best fertilizer for tomatoes", true},
		{"will it rain tomorrow", true},
		{"what movie should I watch", false},
		{"fix my python code", false},
		{"ok", true},              // short, likely conversational
		{"something unclear", true}, // lenient default
		{"buy wheat seeds", true},   // shopping term but crop keyword wins
	}

	for _, tt := range tests {
		res := KeywordValidate(tt.query)
		assert.Equal(t, tt.valid, res.Valid, tt.query)
	}
}
