package domain

import "testing"

func TestSessionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		want     bool
	}{
		{SessionUninitialized, SessionChecking, true},
		{SessionUninitialized, SessionUnauthenticated, true},
		{SessionUninitialized, SessionAuthenticated, false},
		{SessionChecking, SessionAuthenticated, true},
		{SessionChecking, SessionUnauthenticated, true},
		{SessionAuthenticated, SessionUnauthenticated, true},
		{SessionUnauthenticated, SessionChecking, true},
		{SessionUnauthenticated, SessionAuthenticated, false},
		{SessionChecking, SessionUninitialized, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionStatus_Settled(t *testing.T) {
	if SessionChecking.Settled() || SessionUninitialized.Settled() {
		t.Error("intermediate states reported as settled")
	}
	if !SessionAuthenticated.Settled() || !SessionUnauthenticated.Settled() {
		t.Error("terminal states not settled")
	}
}
