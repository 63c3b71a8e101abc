package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paharikhet/sahayak/internal/llm"
)

func TestAnswer(t *testing.T) {
	mock := llm.NewMockProvider().
		WithResponse("dehradun", "It is 18°C with scattered clouds in Dehradun.")
	s := New(mock)

	answer, err := s.Answer(context.Background(),
		"what's the weather in Dehradun?",
		"Current weather in Dehradun, IN:\n  - Temperature: 18°C")
	require.NoError(t, err)
	assert.Contains(t, answer, "18°C")

	// The prompt carries both the question and the retrieved context.
	require.Len(t, mock.Calls, 1)
	prompt := mock.Calls[0].Messages[0].Content
	assert.Contains(t, prompt, "Dehradun")
	assert.Contains(t, prompt, "--- CONTEXT ---")
}

func TestAnswerProviderFailure(t *testing.T) {
	s := New(llm.NewMockProvider().WithError(errors.New("quota exceeded")))

	_, err := s.Answer(context.Background(), "q", "ctx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesis)
}

func TestAnswerEmptyResponse(t *testing.T) {
	s := New(llm.NewMockProvider())

	_, err := s.Answer(context.Background(), "q", "ctx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesis)
}
