package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sydlexius/liner/internal/config"
)

// Policy tunes retry and cooldown behavior.
type Policy struct {
	MaxAttempts       int
	CooldownThreshold int
	Cooldown          time.Duration
	RetryFloor        time.Duration
	RetryBuffer       time.Duration
	RetryDefault      time.Duration
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.Default().Resilience)
}

// PolicyFromConfig converts the resilience section of the application config.
func PolicyFromConfig(c config.ResilienceConfig) Policy {
	return Policy{
		MaxAttempts:       c.MaxAttempts,
		CooldownThreshold: c.CooldownThreshold,
		Cooldown:          c.Cooldown,
		RetryFloor:        c.RetryFloor,
		RetryBuffer:       c.RetryBuffer,
		RetryDefault:      c.RetryDefault,
	}
}

// Intervals maps each source to the minimum spacing between its calls.
type Intervals map[SourceName]time.Duration

// IntervalsFromConfig reads per-source minimum intervals.
func IntervalsFromConfig(c config.SourcesConfig) Intervals {
	return Intervals{
		SourceWikidata:    c.Wikidata.MinInterval,
		SourceMusicBrainz: c.MusicBrainz.MinInterval,
		SourceWikipedia:   c.Wikipedia.MinInterval,
		SourceFLO:         c.FLO.MinInterval,
		SourceManiaDB:     c.ManiaDB.MinInterval,
		SourceSpotify:     c.Spotify.MinInterval,
	}
}

// Refresher forces a new credential for a source after an auth rejection.
type Refresher interface {
	ForceRefresh(ctx context.Context) error
}

// Guard wraps every outbound source call with per-source interval limiting,
// a process-wide cooldown after repeated rate-limit rejections, 429 retry
// with backoff, and a forced credential refresh on auth rejection.
//
// One Guard is shared by every adapter and every concurrent batch; its
// timestamps and counters live behind a single mutex.
type Guard struct {
	mu             sync.Mutex
	limiters       map[SourceName]*rate.Limiter
	refreshers     map[SourceName]Refresher
	consecutive429 int
	cooldownUntil  time.Time

	policy Policy
	logger *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGuard creates a Guard with one interval limiter per source.
func NewGuard(policy Policy, intervals Intervals, logger *slog.Logger) *Guard {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	g := &Guard{
		limiters:   make(map[SourceName]*rate.Limiter, len(intervals)),
		refreshers: make(map[SourceName]Refresher),
		policy:     policy,
		logger:     logger.With(slog.String("component", "resilience")),
		now:        time.Now,
		sleep:      sleepContext,
	}
	for name, every := range intervals {
		if every <= 0 {
			continue
		}
		g.limiters[name] = rate.NewLimiter(rate.Every(every), 1)
	}
	return g
}

// SetRefresher registers the credential refresher used on auth rejections
// from source.
func (g *Guard) SetRefresher(source SourceName, r Refresher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshers[source] = r
}

// Do runs call for source under the resilience rules. Errors other than
// rate-limit and auth rejections are returned unchanged after one attempt.
func (g *Guard) Do(ctx context.Context, source SourceName, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		if err := g.waitCooldown(ctx); err != nil {
			return err
		}
		if err := g.waitInterval(ctx, source); err != nil {
			return err
		}

		err := call(ctx)
		if err == nil {
			g.recordSuccess()
			return nil
		}
		lastErr = err

		var rl *ErrRateLimited
		if errors.As(err, &rl) {
			g.recordRateLimit(source)
			if attempt == g.policy.MaxAttempts {
				break
			}
			wait := g.retryDelay(rl.RetryAfter)
			g.logger.Warn("rate limited, backing off",
				slog.String("source", string(source)),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait))
			if err := g.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		var ae *ErrAuthExpired
		if errors.As(err, &ae) {
			if attempt == g.policy.MaxAttempts {
				break
			}
			r := g.refresher(source)
			if r == nil {
				return err
			}
			g.logger.Info("authorization expired, refreshing credentials",
				slog.String("source", string(source)))
			if rerr := r.ForceRefresh(ctx); rerr != nil {
				return fmt.Errorf("refreshing %s credentials: %w", source, rerr)
			}
			continue
		}

		return err
	}
	return lastErr
}

// CooldownUntil returns the end of the active cooldown window, or the zero
// time when no cooldown is active.
func (g *Guard) CooldownUntil() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cooldownUntil
}

func (g *Guard) refresher(source SourceName) Refresher {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshers[source]
}

// waitCooldown blocks while a global cooldown is active. The first caller
// to observe an expired window clears it and resets the rejection counter.
func (g *Guard) waitCooldown(ctx context.Context) error {
	g.mu.Lock()
	until := g.cooldownUntil
	if until.IsZero() {
		g.mu.Unlock()
		return nil
	}
	now := g.now()
	if !now.Before(until) {
		g.cooldownUntil = time.Time{}
		g.consecutive429 = 0
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	g.logger.Warn("global cooldown active", slog.Duration("remaining", until.Sub(now)))
	if err := g.sleep(ctx, until.Sub(now)); err != nil {
		return err
	}

	g.mu.Lock()
	if g.cooldownUntil.Equal(until) {
		g.cooldownUntil = time.Time{}
		g.consecutive429 = 0
	}
	g.mu.Unlock()
	return nil
}

// waitInterval reserves the next slot on the source's limiter and sleeps
// until it. Reservations are taken under the guard's lock so two callers
// never compute their delay from the same stale timestamp.
func (g *Guard) waitInterval(ctx context.Context, source SourceName) error {
	g.mu.Lock()
	lim, ok := g.limiters[source]
	if !ok {
		g.mu.Unlock()
		return nil
	}
	now := g.now()
	r := lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	g.mu.Unlock()

	if delay <= 0 {
		return nil
	}
	if err := g.sleep(ctx, delay); err != nil {
		g.mu.Lock()
		r.CancelAt(g.now())
		g.mu.Unlock()
		return err
	}
	return nil
}

func (g *Guard) recordSuccess() {
	g.mu.Lock()
	g.consecutive429 = 0
	g.mu.Unlock()
}

func (g *Guard) recordRateLimit(source SourceName) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutive429++
	if g.consecutive429 >= g.policy.CooldownThreshold && g.cooldownUntil.IsZero() {
		g.cooldownUntil = g.now().Add(g.policy.Cooldown)
		g.logger.Warn("rate-limit threshold reached, entering cooldown",
			slog.String("source", string(source)),
			slog.Int("consecutive", g.consecutive429),
			slog.Time("until", g.cooldownUntil))
	}
}

// retryDelay derives the backoff from an advertised delay plus a buffer,
// floored, or the default when nothing was advertised.
func (g *Guard) retryDelay(advertised time.Duration) time.Duration {
	if advertised <= 0 {
		return g.policy.RetryDefault
	}
	return max(g.policy.RetryFloor, advertised+g.policy.RetryBuffer)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
