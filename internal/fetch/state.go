package fetch

import (
	"fmt"
	"sync"
	"time"
)

// Phase is the lifecycle position of one artifact transfer.
type Phase int

const (
	PhaseQueued Phase = iota
	PhaseDownloading
	PhasePaused
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseQueued:
		return "queued"
	case PhaseDownloading:
		return "downloading"
	case PhasePaused:
		return "paused"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// State is a snapshot of a transfer.
type State struct {
	Phase Phase
	// Downloaded and Total are byte counts; Total is -1 when unknown.
	Downloaded int64
	Total      int64
	// Speed is the average rate in bytes per second since the transfer started.
	Speed float64
	// Path is set once Completed.
	Path string
	// Reason is set once Failed.
	Reason error
}

// TransitionError reports an illegal state change.
type TransitionError struct {
	From Phase
	To   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid download transition %s -> %s", e.From, e.To)
}

var transitions = map[Phase][]Phase{
	PhaseQueued:      {PhaseDownloading, PhaseFailed},
	PhaseDownloading: {PhaseDownloading, PhasePaused, PhaseCompleted, PhaseFailed},
	PhasePaused:      {PhaseDownloading, PhaseFailed},
}

func allowed(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Transfer tracks one download and notifies observers on every change.
// It is safe for concurrent use.
type Transfer struct {
	mu        sync.Mutex
	state     State
	started   time.Time
	now       func() time.Time
	observers []func(State)
}

// NewTransfer returns a queued transfer.
func NewTransfer(observers ...func(State)) *Transfer {
	return &Transfer{
		state:     State{Phase: PhaseQueued, Total: -1},
		now:       time.Now,
		observers: observers,
	}
}

// State returns the current snapshot.
func (t *Transfer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start moves to Downloading with the expected size (-1 if unknown).
// Starting again after a failed attempt's retry resets the byte count.
func (t *Transfer) Start(total int64) error {
	return t.update(PhaseDownloading, func(s *State) {
		if s.Phase == PhaseQueued || s.Phase == PhaseDownloading {
			t.started = t.now()
			s.Downloaded = 0
			s.Speed = 0
		}
		s.Total = total
	})
}

// Progress records n more bytes. It is only valid while Downloading.
func (t *Transfer) Progress(n int64) error {
	return t.apply(only(PhaseDownloading), PhaseDownloading, func(s *State) {
		s.Downloaded += n
		if elapsed := t.now().Sub(t.started).Seconds(); elapsed > 0 {
			s.Speed = float64(s.Downloaded) / elapsed
		}
	})
}

// Pause suspends a running transfer.
func (t *Transfer) Pause() error {
	return t.update(PhasePaused, nil)
}

// Resume continues a paused transfer.
func (t *Transfer) Resume() error {
	return t.apply(only(PhasePaused), PhaseDownloading, nil)
}

// Complete finishes the transfer with the artifact path.
func (t *Transfer) Complete(path string) error {
	return t.update(PhaseCompleted, func(s *State) { s.Path = path })
}

// Fail finishes the transfer with a reason.
func (t *Transfer) Fail(reason error) error {
	return t.update(PhaseFailed, func(s *State) { s.Reason = reason })
}

func only(p Phase) func(Phase) bool {
	return func(cur Phase) bool { return cur == p }
}

func (t *Transfer) update(to Phase, mutate func(*State)) error {
	return t.apply(nil, to, mutate)
}

func (t *Transfer) apply(from func(Phase) bool, to Phase, mutate func(*State)) error {
	t.mu.Lock()
	if !allowed(t.state.Phase, to) || (from != nil && !from(t.state.Phase)) {
		from := t.state.Phase
		t.mu.Unlock()
		return &TransitionError{From: from, To: to}
	}
	if mutate != nil {
		mutate(&t.state)
	}
	t.state.Phase = to
	snapshot := t.state
	observers := t.observers
	t.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	return nil
}
