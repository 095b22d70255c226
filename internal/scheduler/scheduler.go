package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

type InvoiceResubmitter interface {
	ResubmitStale(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs of the API.
type Scheduler struct {
	cron gocron.Scheduler
}

func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("gocron.NewScheduler -> %w", err)
	}

	return &Scheduler{cron: s}, nil
}

// AddInvoiceSweep resubmits stale PENDING invoices every interval. A run is
// skipped while the previous one is still going.
func (s *Scheduler) AddInvoiceSweep(ctx context.Context, interval time.Duration, invoices InvoiceResubmitter) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := invoices.ResubmitStale(ctx)
			if err != nil {
				zap.L().Error("invoice sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				zap.L().Info("invoice sweep resubmitted invoices", zap.Int("count", n))
			}
		}),
		gocron.WithName("invoice-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("s.cron.NewJob -> %w", err)
	}

	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}

func (s *Scheduler) JobCount() int {
	return len(s.cron.Jobs())
}
