package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"
)

const DefaultShutdownTimeout = 3 * time.Second

type job struct {
	name string
	run  func(context.Context) error
}

// Manager runs long-lived jobs until the first failure or cancellation,
// then runs shutdown jobs in registration order.
type Manager struct {
	mu              sync.Mutex
	runJobs         []job
	shutdownJobs    []job
	log             *slog.Logger
	ShutdownTimeout time.Duration
}

func NewManager(lg *slog.Logger) *Manager {
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	return &Manager{log: lg, ShutdownTimeout: DefaultShutdownTimeout}
}

func (m *Manager) AddRun(name string, fn func(context.Context) error) {
	m.add(&m.runJobs, name, fn)
}

func (m *Manager) AddShutdown(name string, fn func(context.Context) error) {
	m.add(&m.shutdownJobs, name, fn)
}

func (m *Manager) add(list *[]job, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	*list = append(*list, job{name: name, run: fn})
	m.mu.Unlock()
}

func (m *Manager) StartAndWait(parent context.Context, sig ...os.Signal) error {
	ctx := parent
	if len(sig) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(parent, sig...)
		defer stop()
	}

	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	runJobs, shutdownJobs := m.snapshot()

	errCh := make(chan error, len(runJobs))
	var wg sync.WaitGroup
	for _, j := range runJobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			m.log.Debug("job started", "job", j.name)
			if err := j.run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s: %w", j.name, err)
				cancelRuns()
			}
		}(j)
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		m.log.Info("shutdown requested")
		cancelRuns()
	case runErr = <-errCh:
		m.log.Error("job failed", "err", runErr)
		cancelRuns()
	case <-doneCh:
	}
	<-doneCh

	timeout := m.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	var shutdownErr error
	for _, j := range shutdownJobs {
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := j.run(sctx)
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			m.log.Warn("shutdown job failed", "job", j.name, "err", err)
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("%s: %w", j.name, err))
		}
	}
	return errors.Join(runErr, shutdownErr)
}

func (m *Manager) snapshot() ([]job, []job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]job(nil), m.runJobs...), append([]job(nil), m.shutdownJobs...)
}
