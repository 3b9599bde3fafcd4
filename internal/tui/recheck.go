package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// MsgRecheck asks the model to poll downloads again.
type MsgRecheck struct {
	gen int
}

// Recheck schedules a bounded chain of download polls. Each Start begins a new
// chain and makes ticks from older chains stale.
type Recheck struct {
	Interval time.Duration
	Limit    int

	gen  int
	left int
}

func NewRecheck(interval time.Duration, limit int) Recheck {
	return Recheck{Interval: interval, Limit: limit}
}

func (r *Recheck) Start() tea.Cmd {
	r.gen++
	r.left = r.Limit
	return r.tick()
}

// Continue schedules the next poll while downloads remain and the chain has
// budget left.
func (r *Recheck) Continue(active int) tea.Cmd {
	if active == 0 {
		r.left = 0
		return nil
	}
	return r.tick()
}

func (r *Recheck) Stop() {
	r.gen++
	r.left = 0
}

// Current reports whether msg belongs to the running chain.
func (r *Recheck) Current(msg MsgRecheck) bool {
	return msg.gen == r.gen
}

func (r *Recheck) Remaining() int {
	return r.left
}

func (r *Recheck) tick() tea.Cmd {
	if r.left <= 0 {
		return nil
	}
	r.left--
	gen := r.gen
	return tea.Tick(r.Interval, func(time.Time) tea.Msg {
		return MsgRecheck{gen: gen}
	})
}
