package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/config"
	"github.com/sydlexius/liner/internal/event"
)

// ErrRunInProgress is returned when a batch for the same field is already
// running in this or another process.
var ErrRunInProgress = errors.New("enrichment run already in progress")

// Summary reports the outcome of one batch.
type Summary struct {
	RunID     string       `json:"run_id"`
	Field     artist.Field `json:"field"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	// Enriched counts artists whose record gained at least one value.
	Enriched    int  `json:"enriched"`
	Interrupted bool `json:"interrupted"`
}

// Runner drives an Engine over batches of pending artists.
type Runner struct {
	store  *artist.Service
	engine *Engine
	bus    event.Publisher
	logger *slog.Logger

	defaultLimit int
	maxLimit     int
	pacing       time.Duration
	lockDir      string

	mu      sync.Mutex
	running map[artist.Field]bool

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner. bus may be nil.
func NewRunner(store *artist.Service, engine *Engine, bus event.Publisher, cfg config.EnrichConfig, logger *slog.Logger) *Runner {
	r := &Runner{
		store:        store,
		engine:       engine,
		bus:          bus,
		logger:       logger.With(slog.String("component", "enrich-runner")),
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		pacing:       cfg.Pacing,
		lockDir:      cfg.LockDir,
		running:      make(map[artist.Field]bool),
		sleep:        sleepContext,
	}
	if r.defaultLimit <= 0 {
		r.defaultLimit = 100
	}
	if r.maxLimit <= 0 {
		r.maxLimit = 300
	}
	return r
}

// EffectiveLimit maps a requested batch size onto the configured bounds.
// Zero or negative means the default.
func (r *Runner) EffectiveLimit(limit int) int {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	return min(limit, r.maxLimit)
}

// Run enriches up to limit artists still missing field. Each artist is
// processed and saved on its own; a failure is counted and the batch moves
// on. Canceling ctx lets the artist in flight finish and be saved, then
// stops the batch. trigger labels the run in history ("cli", "schedule",
// "api").
func (r *Runner) Run(ctx context.Context, field artist.Field, limit int, trigger string) (*Summary, error) {
	process, err := r.engine.Processor(field)
	if err != nil {
		return nil, err
	}
	unlock, err := r.acquire(field)
	if err != nil {
		return nil, err
	}
	defer unlock()

	limit = r.EffectiveLimit(limit)
	run, err := r.store.StartRun(ctx, field, trigger, limit)
	if err != nil {
		return nil, err
	}
	sum := &Summary{RunID: run.ID, Field: field}
	log := r.logger.With(slog.String("run_id", run.ID), slog.String("field", string(field)))

	batch, err := r.store.SelectUnenrichedBatch(ctx, field, limit)
	if err != nil {
		r.finish(ctx, run, sum, artist.RunFailed, err.Error())
		return nil, err
	}
	sum.Total = len(batch)
	log.Info("enrichment batch started", slog.Int("total", sum.Total), slog.String("trigger", trigger))
	r.publish(event.EnrichStarted, map[string]any{
		"run_id": run.ID, "field": string(field), "total": sum.Total, "trigger": trigger,
	})

	for i := range batch {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		if i > 0 && r.pacing > 0 {
			if err := r.sleep(ctx, r.pacing); err != nil {
				sum.Interrupted = true
				break
			}
		}
		r.processOne(ctx, log, process, &batch[i], sum)
	}

	status := artist.RunCompleted
	if sum.Interrupted {
		status = artist.RunInterrupted
	}
	r.finish(ctx, run, sum, status, "")
	log.Info("enrichment batch finished",
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed),
		slog.Int("total", sum.Total),
		slog.Int("enriched", sum.Enriched),
		slog.Bool("interrupted", sum.Interrupted),
	)
	r.publish(event.EnrichCompleted, map[string]any{
		"run_id": run.ID, "field": string(field), "total": sum.Total,
		"succeeded": sum.Succeeded, "failed": sum.Failed, "enriched": sum.Enriched,
		"interrupted": sum.Interrupted,
	})
	return sum, nil
}

// processOne is the unit of work for one artist: resolve on a copy, then
// save. Nothing is written unless resolution completed. The work ignores
// cancellation of ctx so that a stop request never cuts an artist short.
func (r *Runner) processOne(ctx context.Context, log *slog.Logger, process Processor, a *artist.Artist, sum *Summary) {
	work := *a
	wctx := context.WithoutCancel(ctx)

	changed, err := safeProcess(wctx, process, &work)
	if err == nil {
		err = r.store.Save(wctx, &work, sum.Field)
	}
	if err != nil {
		sum.Failed++
		log.Warn("artist enrichment failed", slog.Int64("artist_id", a.ID), slog.String("name", a.Name), slog.Any("error", err))
		return
	}
	sum.Succeeded++
	*a = work
	if !changed {
		return
	}
	sum.Enriched++
	r.publish(event.ArtistEnriched, map[string]any{
		"artist_id": work.ID, "name": work.Name, "field": string(sum.Field),
	})
}

func safeProcess(ctx context.Context, process Processor, a *artist.Artist) (changed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return process(ctx, a)
}

func (r *Runner) finish(ctx context.Context, run *artist.Run, sum *Summary, status, msg string) {
	run.Status = status
	run.Error = msg
	run.Total = sum.Total
	run.Succeeded = sum.Succeeded
	run.Failed = sum.Failed
	run.Enriched = sum.Enriched
	if err := r.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Error("recording run finish failed", slog.String("run_id", run.ID), slog.Any("error", err))
	}
}

// acquire takes the per-field run lock, in process and, when a lock
// directory is configured, across processes.
func (r *Runner) acquire(field artist.Field) (func(), error) {
	r.mu.Lock()
	if r.running[field] {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running[field] = true
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		delete(r.running, field)
		r.mu.Unlock()
	}
	if r.lockDir == "" {
		return release, nil
	}

	if err := os.MkdirAll(r.lockDir, 0o750); err != nil {
		release()
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	lock := flock.New(filepath.Join(r.lockDir, "liner-enrich-"+string(field)+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		release()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		release()
		return nil, ErrRunInProgress
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", slog.String("field", string(field)), slog.Any("error", err))
		}
		release()
	}, nil
}

func (r *Runner) publish(t event.Type, data map[string]any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(event.Event{Type: t, Data: data})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
