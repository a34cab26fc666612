package domain

// SessionStatus is the state of the client session.
type SessionStatus string

const (
	SessionUninitialized   SessionStatus = "uninitialized"
	SessionChecking        SessionStatus = "checking"
	SessionAuthenticated   SessionStatus = "authenticated"
	SessionUnauthenticated SessionStatus = "unauthenticated"
)

// sessionTransitions lists the legal next states for each state.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionUninitialized:   {SessionChecking, SessionUnauthenticated},
	SessionChecking:        {SessionAuthenticated, SessionUnauthenticated},
	SessionAuthenticated:   {SessionUnauthenticated, SessionChecking},
	SessionUnauthenticated: {SessionChecking, SessionUnauthenticated},
}

// CanTransition reports whether the session may move from s to next.
//
// authenticated → checking covers re-validation of a live token (startup
// sync from another process); it never skips checking on the way back.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Settled reports whether the status is terminal for the current operation.
func (s SessionStatus) Settled() bool {
	return s == SessionAuthenticated || s == SessionUnauthenticated
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// SessionView is a read-only snapshot of the session.
type SessionView struct {
	User   Profile       `json:"user,omitempty" yaml:"user,omitempty"`
	Status SessionStatus `json:"status" yaml:"status"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Authenticated reports whether the view is authenticated.
func (v SessionView) Authenticated() bool {
	return v.Status == SessionAuthenticated
}
