package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfkeep/shelfkeep/pkg/borrows"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/config"
	"github.com/shelfkeep/shelfkeep/pkg/inventory"
	"github.com/uptrace/bun"
)

var processID = randStringBytes(8)

// Worker periodically persists the overdue status of borrows whose due date
// has passed. Reads and status filters derive the status from the due date on
// their own, so the sweep only keeps the stored column in step.
type Worker struct {
	log      logger.Logger
	interval time.Duration

	borrowService *borrows.Service

	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg *config.Config, db *bun.DB, clk *clock.Clock) *Worker {
	borrowService := borrows.NewService(db, clk, inventory.NewLedger(clk), cfg.DefaultLoanDays)

	return &Worker{
		log:      logger.New(),
		interval: cfg.OverdueSweepInterval,

		borrowService: borrowService,

		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one sweep right away and then one every interval until Shutdown
// is called.
func (w *Worker) Start() {
	go w.sweepLoop()
}

func (w *Worker) sweepLoop() {
	defer close(w.done)

	w.runSweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			w.runSweep()
		}
	}
}

func (w *Worker) runSweep() {
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String()).Root(logger.Data{"process_id": processID})
	ctx := log.WithContext(context.Background())

	if _, err := w.Sweep(ctx); err != nil {
		log.Err(err).Error("overdue sweep error")
	}
}

// Sweep marks every active borrow past its due date as overdue and returns how
// many rows changed.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	start := time.Now()
	n, err := w.borrowService.RefreshOverdue(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info("borrows marked overdue", logger.Data{"count": n, "duration_ms": time.Since(start).Milliseconds()})
	}
	return n, nil
}

func (w *Worker) Shutdown() {
	close(w.shutdown)
	<-w.done
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
