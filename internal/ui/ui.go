package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive chat screen and blocks until the user
// quits or the context is cancelled.
func Run(ctx context.Context, responder Responder, forceOffline bool) error {
	program := tea.NewProgram(
		NewModel(responder, forceOffline),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat screen: %w", err)
	}
	return nil
}
