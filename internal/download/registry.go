package download

import (
	"sort"
	"sync"
	"time"

	"github.com/S1riyS/happyphone/server/internal/models"
)

type key struct {
	userID string
	pkg    string
}

// Progress is what a tick reports for one transfer.
type Progress struct {
	Package string
	Message string
	Release Release
	Done    bool
}

// Registry holds the live transfers of every user, at most one per
// (user, package). Different users may use it concurrently.
//
// A transfer reported as finished moves to a settling set until the caller
// either drops it with Finish or puts it back with Reopen.
type Registry struct {
	mu       sync.Mutex
	states   map[key]*State
	settling map[key]*State
	now      func() time.Time
	rnd      Rand
}

// NewRegistry creates an empty registry. Nil now and rnd fall back to the
// wall clock and the global random source.
func NewRegistry(now func() time.Time, rnd Rand) *Registry {
	if now == nil {
		now = time.Now
	}
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Registry{
		states:   make(map[key]*State),
		settling: make(map[key]*State),
		now:      now,
		rnd:      rnd,
	}
}

// Start begins a transfer, discarding any previous one for the same package.
// An instant transfer is returned already done and is not kept.
func (r *Registry) Start(userID, pkg string, sizeKB float64, release Release, cfg models.NetworkConfig) Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{userID: userID, pkg: pkg}
	delete(r.states, k)
	delete(r.settling, k)

	state := newState(pkg, sizeKB, release, cfg, r.rnd, r.now())
	p := progressOf(state)
	if !p.Done {
		r.states[k] = state
	}
	return p
}

// Cancel drops a transfer. It reports whether one existed.
func (r *Registry) Cancel(userID, pkg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{userID: userID, pkg: pkg}
	_, ok := r.states[k]
	delete(r.states, k)
	delete(r.settling, k)
	return ok
}

// Tick advances every transfer of the user by at most one step. Finished
// transfers are reported with Done set and move to the settling set.
func (r *Registry) Tick(userID string) []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var out []Progress
	for _, k := range r.userKeys(userID) {
		state := r.states[k]
		state.Tick(now)
		p := progressOf(state)
		if p.Done {
			delete(r.states, k)
			r.settling[k] = state
		}
		out = append(out, p)
	}
	return out
}

// Finish drops the user's settled transfers. Call it once their results are
// stored.
func (r *Registry) Finish(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.settling {
		if k.userID == userID {
			delete(r.settling, k)
			n++
		}
	}
	return n
}

// Reopen puts the user's settling transfers back so the next Tick reports
// them as finished again. A transfer restarted in the meantime wins.
func (r *Registry) Reopen(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, state := range r.settling {
		if k.userID != userID {
			continue
		}
		delete(r.settling, k)
		if _, ok := r.states[k]; ok {
			continue
		}
		r.states[k] = state
		n++
	}
	return n
}

// Recalculate re-times the remaining steps of the user's transfers.
func (r *Registry) Recalculate(userID string, cfg models.NetworkConfig) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.userKeys(userID)
	for _, k := range keys {
		r.states[k].Recalculate(cfg, r.rnd)
	}
	return len(keys)
}

// Active lists the packages the user is downloading, sorted.
func (r *Registry) Active(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.userKeys(userID)
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.pkg)
	}
	return names
}

// Len is the number of unfinished transfers across all users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *Registry) userKeys(userID string) []key {
	var keys []key
	for k := range r.states {
		if k.userID == userID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].pkg < keys[j].pkg })
	return keys
}

func progressOf(s *State) Progress {
	step := s.Step()
	return Progress{
		Package: s.Package,
		Message: step.Message,
		Release: s.Release,
		Done:    step.Terminal,
	}
}
