package llm

import (
	"context"
	"strings"
	"time"
)

// MockProvider is a scripted Provider implementation for tests.
type MockProvider struct {
	// Responses maps a substring of the last user message to a canned reply.
	Responses map[string]string

	// Default is returned when no mapping matches.
	Default string

	// Err, when set, is returned by every Chat call.
	Err error

	// Delay simulates provider latency.
	Delay time.Duration

	// Calls records every request received.
	Calls []*ChatRequest
}

// NewMockProvider creates a mock provider with no responses configured.
func NewMockProvider() *MockProvider {
	return &MockProvider{Responses: make(map[string]string)}
}

// WithResponse adds a substring-to-reply mapping.
func (m *MockProvider) WithResponse(match, reply string) *MockProvider {
	m.Responses[strings.ToLower(match)] = reply
	return m
}

// WithError makes every Chat call fail with err.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.Err = err
	return m
}

// Chat implements Provider.
func (m *MockProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.Calls = append(m.Calls, req)

	if m.Err != nil {
		return nil, m.Err
	}

	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUser = msg.Content
		}
	}

	lower := strings.ToLower(lastUser)
	for match, reply := range m.Responses {
		if strings.Contains(lower, match) {
			return &ChatResponse{Content: reply, Model: "mock"}, nil
		}
	}

	return &ChatResponse{Content: m.Default, Model: "mock"}, nil
}

// Name implements Provider.
func (m *MockProvider) Name() string { return "mock" }

// Available implements Provider.
func (m *MockProvider) Available() bool { return true }
