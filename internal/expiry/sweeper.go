package expiry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"incorpapi/internal/model"
)

// CandidateStore lists registrations that may need a warning today.
type CandidateStore interface {
	ListExpiryCandidates(ctx context.Context, today time.Time, limit int) ([]model.Registration, error)
}

// Summary tallies one sweep.
type Summary struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Sweeper checks a batch of candidates concurrently.
type Sweeper struct {
	store    CandidateStore
	notifier *Notifier
	log      *zap.Logger
	batch    int
	workers  int
}

func NewSweeper(store CandidateStore, notifier *Notifier, log *zap.Logger, batch, workers int) *Sweeper {
	if batch <= 0 {
		batch = 200
	}
	if workers <= 0 {
		workers = 1
	}
	return &Sweeper{store: store, notifier: notifier, log: log, batch: batch, workers: workers}
}

// Sweep runs one batch. Failed candidates stay due and are picked up again by
// the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) (Summary, error) {
	regs, err := s.store.ListExpiryCandidates(ctx, s.notifier.Today(), s.batch)
	if err != nil {
		return Summary{}, fmt.Errorf("list expiry candidates: %w", err)
	}

	var (
		mu  sync.Mutex
		sum = Summary{Checked: len(regs)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range regs {
		reg := &regs[i]
		g.Go(func() error {
			out := s.notifier.CheckAndNotify(gctx, reg)
			mu.Lock()
			defer mu.Unlock()
			switch out.Status {
			case Sent:
				sum.Sent++
			case Failed:
				sum.Failed++
			default:
				sum.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()
	return sum, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sum, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error("expiry sweep failed", zap.Error(err))
				continue
			}
			s.log.Info("expiry sweep",
				zap.Int("checked", sum.Checked),
				zap.Int("sent", sum.Sent),
				zap.Int("skipped", sum.Skipped),
				zap.Int("failed", sum.Failed),
			)
		}
	}
}
