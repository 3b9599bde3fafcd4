// Package tui is a fixed-width terminal front end for the happyphone server.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const editCommand = "edit-file"

// AppModel holds the TUI state.
type AppModel struct {
	api     API
	timeout time.Duration
	recheck Recheck

	// Data
	History         []string
	ActiveDownloads []string
	Status          string
	Err             error
	Busy            bool

	// Editor
	Editing  bool
	EditPath string

	// Components
	Input  textinput.Model
	Output viewport.Model
	Editor textarea.Model

	WindowSize tea.WindowSizeMsg
}

// InitialModel returns the starting state.
func InitialModel(api API, recheck Recheck, timeout time.Duration) AppModel {
	ti := textinput.New()
	ti.Placeholder = "type a command, e.g. pkg list"
	ti.Prompt = "$ "
	ti.CharLimit = 512
	ti.Focus()

	ta := textarea.New()
	ta.ShowLineNumbers = false

	return AppModel{
		api:     api,
		timeout: timeout,
		recheck: recheck,
		Input:   ti,
		Output:  viewport.New(80, 20),
		Editor:  ta,
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadHistory())
}

func (m AppModel) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}
