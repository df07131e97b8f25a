package lifecycle

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestManager_ContextCancelRunsShutdown(t *testing.T) {
	mgr := NewManager(nil)
	steps := make([]string, 0, 4)
	var mu sync.Mutex
	appendStep := func(v string) {
		mu.Lock()
		steps = append(steps, v)
		mu.Unlock()
	}

	mgr.AddRun("bridge-http", func(ctx context.Context) error {
		<-ctx.Done()
		appendStep("run-http-stopped")
		return nil
	})
	mgr.AddShutdown("close-journal", func(context.Context) error {
		appendStep("shutdown-journal")
		return nil
	})

	parent, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mgr.StartAndWait(parent)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("StartAndWait should not fail: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(steps, []string{"run-http-stopped", "shutdown-journal"}) {
		t.Fatalf("unexpected steps: %#v", steps)
	}
}

func TestManager_RunErrorTriggersShutdown(t *testing.T) {
	mgr := NewManager(nil)
	runErr := errors.New("address already in use")
	shutdownCalled := 0

	mgr.AddRun("bridge-http", func(context.Context) error {
		return runErr
	})
	mgr.AddShutdown("close-journal", func(context.Context) error {
		shutdownCalled++
		return nil
	})

	err := mgr.StartAndWait(context.Background())
	if !errors.Is(err, runErr) {
		t.Fatalf("expected run error, got %v", err)
	}
	if !strings.Contains(err.Error(), "bridge-http") {
		t.Fatalf("expected job name in error, got %v", err)
	}
	if shutdownCalled != 1 {
		t.Fatalf("expected shutdown called once, got %d", shutdownCalled)
	}
}

func TestManager_ShutdownErrorsAreJoined(t *testing.T) {
	mgr := NewManager(nil)
	mgr.AddRun("noop", func(context.Context) error { return nil })
	mgr.AddShutdown("a", func(context.Context) error { return errors.New("a failed") })
	mgr.AddShutdown("b", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("shutdown jobs should get a deadline")
		}
		return nil
	})
	err := mgr.StartAndWait(context.Background())
	if err == nil || !strings.Contains(err.Error(), "a: a failed") {
		t.Fatalf("expected joined shutdown error, got %v", err)
	}
}
