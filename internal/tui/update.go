package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/S1riyS/happyphone/server/internal/service"
)

// MsgResponse carries the result of a command or a saved edit.
type MsgResponse struct {
	Response *service.Response
}

// MsgPoll carries the result of a download poll.
type MsgPoll struct {
	Result *service.PollResult
}

// MsgHistory carries a freshly loaded history.
type MsgHistory []string

// MsgBuffer opens the editor on a file.
type MsgBuffer struct {
	Buffer *service.EditBuffer
}

// MsgError indicates a request failed.
type MsgError error

// Update handles events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		m.Output.Width = msg.Width
		m.Output.Height = max(1, msg.Height-4) // title, status, input, spacing
		m.Input.Width = max(1, msg.Width-4)
		m.Editor.SetWidth(msg.Width)
		m.Editor.SetHeight(max(1, msg.Height-4))
		m.refreshOutput()
		return m, nil

	case MsgResponse:
		m.Busy = false
		m.Err = nil
		m.Editing = false
		m.Editor.Blur()
		m.Input.Focus()
		m.History = msg.Response.History
		m.ActiveDownloads = msg.Response.ActiveDownloads
		m.Status = ""
		m.refreshOutput()
		if len(m.ActiveDownloads) > 0 {
			return m, m.recheck.Start()
		}
		m.recheck.Stop()
		return m, nil

	case MsgRecheck:
		if !m.recheck.Current(msg) {
			return m, nil
		}
		return m, m.poll()

	case MsgPoll:
		m.ActiveDownloads = msg.Result.ActiveDownloads
		if n := len(msg.Result.Lines); n > 0 {
			m.Status = msg.Result.Lines[n-1]
		}
		if len(m.ActiveDownloads) == 0 {
			m.recheck.Stop()
			m.Status = ""
			return m, m.loadHistory()
		}
		return m, m.recheck.Continue(len(m.ActiveDownloads))

	case MsgHistory:
		m.History = msg
		m.refreshOutput()
		return m, nil

	case MsgBuffer:
		m.Busy = false
		m.Err = nil
		m.Editing = true
		m.EditPath = msg.Buffer.Path
		m.Editor.SetValue(msg.Buffer.Content)
		m.Input.Blur()
		return m, m.Editor.Focus()

	case MsgError:
		m.Busy = false
		m.Err = msg
		return m, nil

	case tea.KeyMsg:
		if m.Editing {
			switch msg.String() {
			case "esc":
				m.Editing = false
				m.Editor.Blur()
				m.Input.Focus()
				return m, nil
			case "ctrl+s":
				m.Busy = true
				return m, m.saveEdit(m.EditPath, m.Editor.Value())
			}
			m.Editor, cmd = m.Editor.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "pgup", "pgdown":
			m.Output, cmd = m.Output.Update(msg)
			return m, cmd
		case "enter":
			line := strings.TrimSpace(m.Input.Value())
			if line == "" || m.Busy {
				return m, nil
			}
			m.Input.Reset()
			m.Busy = true
			if path, ok := strings.CutPrefix(line, editCommand+" "); ok {
				return m, m.openEditor(strings.TrimSpace(path))
			}
			return m, m.runCommand(line)
		}
		m.Input, cmd = m.Input.Update(msg)
		return m, cmd
	}

	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m *AppModel) refreshOutput() {
	m.Output.SetContent(strings.Join(m.History, "\n"))
	m.Output.GotoBottom()
}

func (m AppModel) runCommand(line string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		resp, err := api.Command(ctx, line)
		if err != nil {
			return MsgError(err)
		}
		return MsgResponse{Response: resp}
	}
}

func (m AppModel) poll() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		res, err := api.Downloads(ctx)
		if err != nil {
			return MsgError(err)
		}
		return MsgPoll{Result: res}
	}
}

func (m AppModel) loadHistory() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		history, err := api.History(ctx)
		if err != nil {
			return MsgError(err)
		}
		return MsgHistory(history)
	}
}

func (m AppModel) openEditor(path string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		buf, err := api.EditBuffer(ctx, path)
		if err != nil {
			return MsgError(err)
		}
		return MsgBuffer{Buffer: buf}
	}
}

func (m AppModel) saveEdit(path, content string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		resp, err := api.EditFile(ctx, path, content)
		if err != nil {
			return MsgError(err)
		}
		return MsgResponse{Response: resp}
	}
}
