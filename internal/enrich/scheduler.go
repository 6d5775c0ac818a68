package enrich

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sydlexius/liner/internal/artist"
)

// BatchRunner is the part of Runner the scheduler needs.
type BatchRunner interface {
	Run(ctx context.Context, field artist.Field, limit int, trigger string) (*Summary, error)
}

// Scheduler runs one batch per field on a fixed interval.
type Scheduler struct {
	runner    BatchRunner
	intervals map[artist.Field]time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a scheduler from field-name keyed intervals.
// Unknown fields and non-positive intervals are ignored.
func NewScheduler(runner BatchRunner, schedule map[string]time.Duration, logger *slog.Logger) *Scheduler {
	logger = logger.With(slog.String("component", "enrich-scheduler"))
	intervals := make(map[artist.Field]time.Duration)
	for name, d := range schedule {
		f, ok := artist.ParseField(name)
		if !ok {
			logger.Warn("ignoring schedule for unknown field", slog.String("field", name))
			continue
		}
		if d > 0 {
			intervals[f] = d
		}
	}
	return &Scheduler{runner: runner, intervals: intervals, logger: logger}
}

// Fields returns the scheduled fields in a stable order.
func (s *Scheduler) Fields() []artist.Field {
	fields := make([]artist.Field, 0, len(s.intervals))
	for f := range s.intervals {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Run starts one ticker loop per scheduled field and blocks until ctx is
// canceled and every loop has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, f := range s.Fields() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, f, s.intervals[f])
		}()
	}
	wg.Wait()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, field artist.Field, interval time.Duration) {
	s.logger.Info("enrichment scheduler started",
		slog.String("field", string(field)),
		slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("enrichment scheduler stopped", slog.String("field", string(field)))
			return
		case <-ticker.C:
			_, err := s.runner.Run(ctx, field, 0, "schedule")
			switch {
			case errors.Is(err, ErrRunInProgress):
				s.logger.Info("scheduled batch skipped, previous run still active", slog.String("field", string(field)))
			case err != nil:
				s.logger.Error("scheduled batch failed", slog.String("field", string(field)), slog.Any("error", err))
			}
		}
	}
}
