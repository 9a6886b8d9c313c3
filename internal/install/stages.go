package install

import (
	"fmt"
)

// State is a pipeline state.
type State string

const (
	StateManifestResolved      State = "manifest_resolved"
	StateIdempotencyChecked    State = "idempotency_checked"
	StateDependenciesResolved  State = "dependencies_resolved"
	StateDownloaded            State = "downloaded"
	StateHashVerified          State = "hash_verified"
	StateExtracted             State = "extracted"
	StateEnvironmentConfigured State = "environment_configured"
	StateShimmedAndShortcut    State = "shimmed_and_shortcut"
	StateRecordPersisted       State = "record_persisted"
	StateSkip                  State = "skip"
	StateFailed                State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSkip || s == StateRecordPersisted || s == StateFailed
}

// next lists the legal successors of each state. Failed is reachable from
// every non-terminal state and is not listed.
var next = map[State][]State{
	"":                         {StateManifestResolved},
	StateManifestResolved:      {StateIdempotencyChecked},
	StateIdempotencyChecked:    {StateSkip, StateDependenciesResolved},
	StateDependenciesResolved:  {StateDownloaded},
	StateDownloaded:            {StateHashVerified},
	StateHashVerified:          {StateSkip, StateExtracted},
	StateExtracted:             {StateEnvironmentConfigured},
	StateEnvironmentConfigured: {StateShimmedAndShortcut},
	StateShimmedAndShortcut:    {StateRecordPersisted},
}

func canTransition(from, to State) bool {
	if to == StateFailed {
		return !from.Terminal()
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StageError wraps a failure that happened after side effects began. The
// journal lists what the run created; nothing is rolled back.
type StageError struct {
	App     string
	Stage   State
	Journal string
	Err     error
}

func (e *StageError) Error() string {
	if e.Journal != "" {
		return fmt.Sprintf("install %s failed at %s (journal: %s): %v", e.App, e.Stage, e.Journal, e.Err)
	}
	return fmt.Sprintf("install %s failed at %s: %v", e.App, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
