// Package synth turns retrieved tool context into a final natural
// language answer via the LLM.
package synth

import (
	"context"
	"errors"
	"fmt"

	"github.com/paharikhet/sahayak/internal/llm"
	"github.com/paharikhet/sahayak/internal/logging"
)

// AnswerPrompt instructs the model to answer strictly from the
// retrieved context.
const AnswerPrompt = `You are 'Khet Sahayak', a helpful AI agricultural assistant.
The user asked the following question:
%q

I have retrieved the following real-time information to help you answer:
--- CONTEXT ---
%s
--- END OF CONTEXT ---

Based *only* on the context provided, please give a clear, helpful, and natural-language answer to the user.
If the context says the information could not be found, state that clearly.`

// ErrSynthesis is returned when answer generation fails.
var ErrSynthesis = errors.New("synth: answer generation failed")

// Synthesizer formulates final answers from tool context.
type Synthesizer struct {
	provider llm.Provider
	log      *logging.Logger
}

// New creates a Synthesizer backed by the given LLM provider.
func New(provider llm.Provider) *Synthesizer {
	return &Synthesizer{
		provider: provider,
		log:      logging.Global().WithComponent("synth"),
	}
}

// Answer produces the final answer for a query given retrieved context.
func (s *Synthesizer) Answer(ctx context.Context, query, context_ string) (string, error) {
	resp, err := s.provider.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf(AnswerPrompt, query, context_)},
		},
	})
	if err != nil {
		s.log.Warn("answer generation failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	if resp.Content == "" {
		return "", fmt.Errorf("%w: empty response", ErrSynthesis)
	}

	return resp.Content, nil
}
