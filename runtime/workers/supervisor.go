package workers

import (
	"chat-pulse/contract"
	"chat-pulse/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultRestartInterval = 200 * time.Millisecond
	maxRestartBackoff      = 30 * time.Second
)

// RestartRecorder is told about every worker restart.
type RestartRecorder interface {
	RecordRestart(worker string, panicked bool)
}

// Supervisor keeps the long-running parts of the server alive: the websocket
// listener, the heartbeat and the process sampler. A worker that panics or
// fails is restarted after a delay doubling on each consecutive crash; a
// worker returning nil is done for good.
type Supervisor struct {
	log             *slog.Logger
	restartInterval time.Duration
	recorder        RestartRecorder

	mu      sync.Mutex
	cancel  context.CancelFunc
	workers []contract.Worker
	wg      sync.WaitGroup
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = defaultRestartInterval
	}
	return &Supervisor{log: log, restartInterval: restartInterval}
}

// WithRestartRecorder must be called before Run.
func (s *Supervisor) WithRestartRecorder(recorder RestartRecorder) *Supervisor {
	s.recorder = recorder
	return s
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every added worker and blocks until all of them returned.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	pending := append([]contract.Worker(nil), s.workers...)
	s.mu.Unlock()
	defer cancel()

	for _, worker := range pending {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

// Start runs one worker in its own goroutine until it finishes or ctx ends.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()
		backoff := s.restartInterval

		for restarts := 0; ; restarts++ {
			err := runGuarded(ctx, worker)
			switch {
			case err == nil:
				s.log.Info("Worker finished", "worker", name, "restarts", restarts)
				return
			case ctx.Err() != nil:
				s.log.Info("Worker stopped", "worker", name)
				return
			}

			panicked := errors.Is(err, errors.ErrWorkerPanic)
			s.log.Warn("Worker crashed, restarting", "worker", name, "panic", panicked,
				"error", err, "backoff", backoff)
			if s.recorder != nil {
				s.recorder.RecordRestart(name, panicked)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxRestartBackoff)
		}
	}()
}

// Stop cancels every supervised worker. Run returns once they all exited.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func runGuarded(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}
