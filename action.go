package sessionbridge

import "sync"

// CallState is the lifecycle of one logical action (a login, a registration,
// one chat turn).
type CallState int

const (
	StateIdle CallState = iota
	StatePending
	StateSuccess
	StateFailedRecoverable
	StateSessionTerminated
)

func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailedRecoverable:
		return "failed/recoverable"
	case StateSessionTerminated:
		return "failed/session_terminated"
	}
	return "unknown"
}

// Action is a mutual-exclusion region: at most one request per action is in
// flight, and a terminated session stays terminated until Reset.
type Action struct {
	name  string
	mu    sync.Mutex
	state CallState
}

func NewAction(name string) *Action {
	return &Action{name: name}
}

func (a *Action) Name() string { return a.name }

// Begin moves the action to Pending.
func (a *Action) Begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StatePending:
		return ErrActionPending
	case StateSessionTerminated:
		return ErrSessionTerminated
	}
	a.state = StatePending
	return nil
}

func (a *Action) Succeed() {
	a.finish(StateSuccess)
}

// Fail ends the pending call. terminated marks the session as gone for good.
func (a *Action) Fail(terminated bool) {
	if terminated {
		a.finish(StateSessionTerminated)
		return
	}
	a.finish(StateFailedRecoverable)
}

// Terminate marks the action as terminated regardless of its current state.
func (a *Action) Terminate() {
	a.mu.Lock()
	a.state = StateSessionTerminated
	a.mu.Unlock()
}

// Reset returns the action to Idle, e.g. after a new login.
func (a *Action) Reset() {
	a.mu.Lock()
	a.state = StateIdle
	a.mu.Unlock()
}

func (a *Action) State() CallState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Action) finish(s CallState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StatePending {
		a.state = s
	}
}
