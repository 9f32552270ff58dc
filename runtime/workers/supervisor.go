package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-gateway/contract"
	"chat-gateway/errors"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

// Supervisor runs each worker in its own goroutine, recovers panics,
// restarts crashed workers after a short delay and shuts everything down
// when the parent context is cancelled. A failure in one worker must not
// stop the supervisor itself.
type Supervisor struct {
	Cancel  context.CancelFunc
	wg      *sync.WaitGroup
	log     *slog.Logger
	workers []contract.Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log}
}

// Run starts every registered worker under a cancellation scope derived from
// the parent ctx, then blocks until all of them have finished.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs one worker under supervision. A clean return retires the
// worker; a panic or error restarts it after waitTimeBeforeRestart, unless
// the context was cancelled in the meantime.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated properly, never restart
				s.log.Info(fmt.Sprintf("Worker finished : %s", workerName))
				return
			}

			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", workerName)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(waitTimeBeforeRestart):
			}
		}
	}()
}

// Stop cancels every supervised goroutine. Run keeps waiting until all of
// them have returned.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
