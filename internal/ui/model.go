// Package ui is the interactive chat screen for the Khet Sahayak
// assistant, built on Bubble Tea. User input runs through the full
// response pipeline in the background while a spinner shows progress.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/paharikhet/sahayak/internal/orchestrator"
)

// Responder answers a single user query. Satisfied by
// orchestrator.Orchestrator.
type Responder interface {
	Respond(ctx context.Context, query string, forceOffline bool) *orchestrator.Result
}

// ChatMessage is one entry in the on-screen transcript.
type ChatMessage struct {
	Role      string // "user" or "assistant"
	Content   string
	Tool      string
	Offline   bool
	Timestamp time.Time
}

// responseMsg carries a finished pipeline result back into the
// update loop.
type responseMsg struct {
	result *orchestrator.Result
}

// Model is the chat screen state.
type Model struct {
	width  int
	height int
	ready  bool

	messages []ChatMessage
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	busy     bool

	responder    Responder
	forceOffline bool
	renderer     *glamour.TermRenderer

	styles Styles
	keys   KeyMap
}

// NewModel creates the chat screen around a responder. forceOffline
// pins the session to the offline history path.
func NewModel(responder Responder, forceOffline bool) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about weather, prices, or farming..."
	ta.Focus()
	ta.CharLimit = 1024
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	return Model{
		textarea:     ta,
		viewport:     vp,
		spinner:      sp,
		responder:    responder,
		forceOffline: forceOffline,
		styles:       DefaultStyles(),
		keys:         DefaultKeyMap(),
		messages:     make([]ChatMessage, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m = m.updateDimensions()
		m.viewport.SetContent(m.renderChat())

	case responseMsg:
		m.busy = false
		m.messages = append(m.messages, ChatMessage{
			Role:      "assistant",
			Content:   msg.result.Response,
			Tool:      msg.result.Tool,
			Offline:   msg.result.Offline,
			Timestamp: time.Now(),
		})
		m.viewport.SetContent(m.renderChat())
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Clear):
		m.messages = make([]ChatMessage, 0)
		m.viewport.SetContent("")
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.handleSend()
	}

	// Unmatched keys go to both components, so the transcript stays
	// scrollable while the input is focused.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleSend() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	query := strings.TrimSpace(m.textarea.Value())
	if query == "" {
		return m, nil
	}

	m.messages = append(m.messages, ChatMessage{
		Role:      "user",
		Content:   query,
		Timestamp: time.Now(),
	})
	m.textarea.Reset()
	m.busy = true

	m.viewport.SetContent(m.renderChat())
	m.viewport.GotoBottom()

	respond := func() tea.Msg {
		result := m.responder.Respond(context.Background(), query, m.forceOffline)
		return responseMsg{result: result}
	}

	return m, tea.Batch(m.spinner.Tick, respond)
}

func (m Model) updateDimensions() Model {
	headerHeight := 2
	statusHeight := 1
	inputHeight := 3

	m.viewport.Width = m.width - 2
	m.viewport.Height = m.height - headerHeight - statusHeight - inputHeight

	m.textarea.SetWidth(m.width - 6)

	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}

	return m
}

func (m Model) renderChat() string {
	var sb strings.Builder

	for _, msg := range m.messages {
		switch msg.Role {
		case "user":
			sb.WriteString(m.styles.UserLabel.Render("You: "))
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		case "assistant":
			label := "Sahayak:"
			if msg.Offline {
				label = "Sahayak " + m.styles.OfflineTag.Render("[offline]") + ":"
			}
			sb.WriteString(m.styles.BotLabel.Render(label))
			sb.WriteString("\n")
			sb.WriteString(m.renderMarkdown(msg.Content))
			if msg.Tool != "" {
				sb.WriteString(m.styles.ToolTag.Render("via " + msg.Tool))
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderMarkdown renders assistant replies through glamour, falling
// back to the raw text when rendering fails.
func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.styles.Header.Render("Khet Sahayak")
	if m.forceOffline {
		header += " " + m.styles.OfflineTag.Render("offline mode")
	}

	status := ""
	if m.busy {
		status = m.spinner.View() + m.styles.Status.Render(" thinking...")
	}

	input := m.styles.InputBox.Width(m.width - 4).Render(m.textarea.View())
	help := m.styles.Help.Render("enter: send  •  ctrl+l: clear  •  ctrl+c: quit")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, m.viewport.View(), status, input, help)
}
