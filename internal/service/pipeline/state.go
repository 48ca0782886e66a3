package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle state of a run.
type State int

const (
	// StatePending - run created, no stage started.
	StatePending State = iota
	// StateRunning - at least one stage has started.
	StateRunning
	// StateCompleted - every stage finished.
	StateCompleted
	// StateFailed - a stage failed; partial outputs are not published.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for COMPLETED and FAILED.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrRunFinished   = errors.New("run already finished")
	ErrRunNotStarted = errors.New("run not started")
)

// Lifecycle tracks one run through its stages. Safe for concurrent use.
//
//	PENDING → RUNNING → COMPLETED
//	             │
//	             └────→ FAILED
type Lifecycle struct {
	mu     sync.RWMutex
	runId  string
	state  State
	stage  string
	failed error
}

// NewLifecycle creates a lifecycle in PENDING state.
func NewLifecycle(runId string) *Lifecycle {
	return &Lifecycle{runId: runId, state: StatePending}
}

// RunId returns the run ID.
func (l *Lifecycle) RunId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.runId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Stage returns the most recently entered stage.
func (l *Lifecycle) Stage() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stage
}

// Err returns the failure cause, or nil.
func (l *Lifecycle) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failed
}

// Enter records the start of stage and moves PENDING to RUNNING.
func (l *Lifecycle) Enter(stage string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrRunFinished
	}
	l.state = StateRunning
	l.stage = stage
	return nil
}

// Complete moves RUNNING to COMPLETED.
func (l *Lifecycle) Complete() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateRunning:
		l.state = StateCompleted
		return nil
	case StatePending:
		return ErrRunNotStarted
	default:
		return ErrRunFinished
	}
}

// Fail records cause and moves to FAILED. Returns false if the run had
// already finished.
func (l *Lifecycle) Fail(cause error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return false
	}
	l.state = StateFailed
	l.failed = cause
	return true
}
