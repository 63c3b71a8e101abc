package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageKeysScrollTranscript(t *testing.T) {
	m := NewModel(nil, false)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)
	require.True(t, m.ready)

	m.viewport.SetContent(strings.Repeat("line\n", 200))
	require.Zero(t, m.viewport.YOffset)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	m = updated.(Model)
	assert.Greater(t, m.viewport.YOffset, 0)
}

func TestSendIgnoresEmptyInput(t *testing.T) {
	m := NewModel(nil, false)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.False(t, m.busy)
	assert.Empty(t, m.messages)
	assert.Nil(t, cmd)
}
