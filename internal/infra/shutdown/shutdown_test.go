package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler(0)
	if h.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", h.timeout, DefaultTimeout)
	}
	if h.Done() == nil {
		t.Error("Done channel should not be nil")
	}
}

func TestHandler_ShutdownRunsHooksInReverse(t *testing.T) {
	h := NewHandler(time.Second)

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		h.OnShutdown("hook", func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if err := h.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("hook order = %v, want [3 2 1]", order)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done should be closed after Shutdown")
	}
}

func TestHandler_ShutdownJoinsErrors(t *testing.T) {
	h := NewHandler(time.Second)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	h.OnShutdown("a", func() error { return errA })
	h.OnShutdown("ok", func() error { return nil })
	h.OnShutdownContext("b", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("hook context has no deadline")
		}
		return errB
	})

	err := h.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Shutdown() = %v, want both hook errors", err)
	}
}

func TestHandler_WithSignals(t *testing.T) {
	h := NewHandler(time.Second)
	ran := make(chan struct{})
	h.OnShutdown("signal", func() error {
		close(ran)
		return nil
	})

	ctx, stop := h.WithSignals(context.Background())
	defer stop()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled by SIGTERM")
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("hooks did not run after SIGTERM")
	}
}

func TestHandler_StopDoesNotRunHooks(t *testing.T) {
	h := NewHandler(time.Second)
	h.OnShutdown("never", func() error {
		t.Error("hook ran on stop")
		return nil
	})

	ctx, stop := h.WithSignals(context.Background())
	stop()
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)

	select {
	case <-h.Done():
		t.Error("Done closed without Shutdown")
	default:
	}
}
