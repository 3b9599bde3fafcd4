package download

import (
	"time"

	"github.com/S1riyS/happyphone/server/internal/models"
)

// Release is the OS version and branch a transfer was started under. It ends
// up in the installed package record.
type Release struct {
	Version string
	Branch  string
}

// State is one in-flight transfer.
type State struct {
	Package    string
	SizeKB     float64
	Total      time.Duration
	Release    Release
	Steps      []Step
	Current    int
	LastUpdate time.Time
}

func newState(pkg string, sizeKB float64, release Release, cfg models.NetworkConfig, rnd Rand, now time.Time) *State {
	total := TransferTime(sizeKB, cfg, rnd)
	return &State{
		Package:    pkg,
		SizeKB:     sizeKB,
		Total:      total,
		Release:    release,
		Steps:      Plan(pkg, sizeKB, total, rnd),
		LastUpdate: now,
	}
}

func (s *State) Step() Step {
	return s.Steps[s.Current]
}

// Done reports whether the current step is the terminal one.
func (s *State) Done() bool {
	return s.Step().Terminal
}

// Tick moves to the next step once the current step's wait has passed since
// the last advance. It moves at most one step per call and reports whether it
// moved.
func (s *State) Tick(now time.Time) bool {
	if s.Done() || s.Current+1 >= len(s.Steps) {
		return false
	}
	if now.Sub(s.LastUpdate) < s.Step().Wait {
		return false
	}
	s.Current++
	s.LastUpdate = now
	return true
}

// Recalculate replaces the steps after the current one for a new link
// configuration. Completed steps and the time already spent on the current
// step are kept.
func (s *State) Recalculate(cfg models.NetworkConfig, rnd Rand) {
	if s.Done() {
		return
	}

	current := s.Step()
	spent := time.Duration(float64(s.Total) * current.Progress / 100)
	next := Replan(s.Package, s.SizeKB, current, spent, cfg, rnd)
	if len(next) == 0 {
		return
	}

	steps := make([]Step, 0, s.Current+1+len(next))
	steps = append(steps, s.Steps[:s.Current+1]...)
	steps = append(steps, next...)

	if len(next) == 1 && next[0].Wait == 0 {
		steps[s.Current].Wait = 0
	}
	s.Steps = steps
}
