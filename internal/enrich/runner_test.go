package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/config"
	"github.com/sydlexius/liner/internal/database"
	"github.com/sydlexius/liner/internal/event"
	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/provider/flo"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

func setupStore(t *testing.T) *artist.Service {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return artist.NewService(db)
}

func seed(t *testing.T, store *artist.Service, artists ...*artist.Artist) {
	t.Helper()
	for _, a := range artists {
		if err := store.Create(context.Background(), a); err != nil {
			t.Fatalf("Create(%s): %v", a.Name, err)
		}
	}
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t event.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func testConfig() config.EnrichConfig {
	return config.EnrichConfig{DefaultLimit: 10, MaxLimit: 20}
}

// newTestRunner wires a runner over fakes where "IU" resolves, "Bad" hits
// an exhausted rate limit, and everything else finds nothing.
func newTestRunner(t *testing.T, cfg config.EnrichConfig) (*Runner, *artist.Service, *recorder) {
	t.Helper()
	src, g, _, l := testSources()
	g.refs[wikidata.PropSpotifyArtistID+"=sp-iu"] = []string{"Q1"}
	e := g.addEntity("Q1", []string{wikidata.ItemHuman}, map[string]string{"en": "IU"})
	claim(e, wikidata.PropBirthName, birthName("이지은", "ko"))
	g.errFor["sp-bad"] = &provider.ErrRateLimited{Source: provider.SourceWikidata}
	l.results["IU"] = &flo.Result{LocalizedName: "아이유"}

	store := setupStore(t)
	rec := &recorder{}
	engine := NewEngine(src, config.BiographyExtracted, discardLogger())
	return NewRunner(store, engine, rec, cfg, discardLogger()), store, rec
}

func TestRunner_Run(t *testing.T) {
	r, store, rec := newTestRunner(t, testConfig())
	ctx := context.Background()
	iu := &artist.Artist{Name: "IU", SpotifyID: "sp-iu"}
	seed(t, store, iu,
		&artist.Artist{Name: "Bad", SpotifyID: "sp-bad"},
		&artist.Artist{Name: "Unknown", SpotifyID: "sp-none"},
	)

	sum, err := r.Run(ctx, artist.FieldLocalized, 0, "cli")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 3 || sum.Succeeded != 2 || sum.Failed != 1 || sum.Enriched != 1 {
		t.Errorf("summary = %+v, want total 3, succeeded 2, failed 1, enriched 1", sum)
	}
	if sum.Interrupted {
		t.Error("Interrupted = true, want false")
	}

	got, err := store.GetByID(ctx, iu.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LocalizedName != "아이유" || got.Type != artist.TypeSolo || got.WikidataID != "Q1" {
		t.Errorf("stored = %+v, want localized 아이유, SOLO, Q1", got)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].ID != sum.RunID || runs[0].Status != artist.RunCompleted || runs[0].Enriched != 1 || runs[0].Trigger != "cli" {
		t.Errorf("run = %+v, want completed cli run with 1 enriched", runs[0])
	}

	if rec.count(event.EnrichStarted) != 1 || rec.count(event.ArtistEnriched) != 1 || rec.count(event.EnrichCompleted) != 1 {
		t.Errorf("events = %+v, want one of each", rec.events)
	}

	// Enriched artists leave the pending set; the rest are retried and
	// nothing changes.
	sum, err = r.Run(ctx, artist.FieldLocalized, 0, "cli")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Total != 2 || sum.Enriched != 0 {
		t.Errorf("second summary = %+v, want total 2, enriched 0", sum)
	}
}

func TestRunner_RealNameNeverOverwritten(t *testing.T) {
	r, store, _ := newTestRunner(t, testConfig())
	ctx := context.Background()
	iu := &artist.Artist{Name: "IU", SpotifyID: "sp-iu", WikidataID: "Q1"}
	seed(t, store, iu)

	sum, err := r.Run(ctx, artist.FieldRealName, 0, "cli")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Enriched != 1 {
		t.Errorf("Enriched = %d, want 1", sum.Enriched)
	}
	got, _ := store.GetByID(ctx, iu.ID)
	if got.RealName != "이지은" {
		t.Errorf("RealName = %q, want %q", got.RealName, "이지은")
	}

	got.RealName = "Someone Else"
	if err := store.Save(ctx, got, artist.FieldRealName); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got.RealName != "이지은" {
		t.Errorf("RealName after save = %q, want stored value kept", got.RealName)
	}

	sum, err = r.Run(ctx, artist.FieldRealName, 0, "cli")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Total != 0 {
		t.Errorf("second Total = %d, want 0", sum.Total)
	}
}

func TestRunner_CancelDuringPacing(t *testing.T) {
	cfg := testConfig()
	cfg.Pacing = time.Hour
	r, store, _ := newTestRunner(t, cfg)
	seed(t, store,
		&artist.Artist{Name: "IU", SpotifyID: "sp-iu"},
		&artist.Artist{Name: "Unknown", SpotifyID: "sp-none"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	sum, err := r.Run(ctx, artist.FieldLocalized, 0, "cli")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Interrupted || sum.Succeeded != 1 || sum.Total != 2 {
		t.Errorf("summary = %+v, want interrupted after 1 of 2", sum)
	}
	runs, _ := store.ListRuns(context.Background(), 1)
	if len(runs) != 1 || runs[0].Status != artist.RunInterrupted {
		t.Errorf("runs = %+v, want one interrupted run", runs)
	}
}

type cancelingLookup struct {
	cancel context.CancelFunc
}

func (c cancelingLookup) SearchByName(ctx context.Context, name string) (*flo.Result, error) {
	c.cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &flo.Result{LocalizedName: name + " (ko)"}, nil
}

func TestRunner_CancelFinishesArtistInFlight(t *testing.T) {
	src, _, _, _ := testSources()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src.Localized = cancelingLookup{cancel: cancel}

	store := setupStore(t)
	first := &artist.Artist{Name: "First"}
	second := &artist.Artist{Name: "Second"}
	seed(t, store, first, second)
	r := NewRunner(store, NewEngine(src, "", discardLogger()), nil, testConfig(), discardLogger())

	sum, err := r.Run(ctx, artist.FieldLocalized, 0, "api")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Interrupted || sum.Succeeded != 1 {
		t.Errorf("summary = %+v, want interrupted after first artist", sum)
	}
	got, _ := store.GetByID(context.Background(), first.ID)
	if got.LocalizedName != "First (ko)" {
		t.Errorf("first LocalizedName = %q, want saved despite cancel", got.LocalizedName)
	}
	got, _ = store.GetByID(context.Background(), second.ID)
	if got.LocalizedName != "" {
		t.Errorf("second LocalizedName = %q, want untouched", got.LocalizedName)
	}
}

func TestRunner_EffectiveLimit(t *testing.T) {
	r := NewRunner(nil, nil, nil, config.EnrichConfig{DefaultLimit: 2, MaxLimit: 3}, discardLogger())
	tests := []struct{ in, want int }{
		{0, 2}, {-5, 2}, {1, 1}, {3, 3}, {500, 3},
	}
	for _, tt := range tests {
		if got := r.EffectiveLimit(tt.in); got != tt.want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	d := NewRunner(nil, nil, nil, config.EnrichConfig{}, discardLogger())
	if got := d.EffectiveLimit(1000); got != 300 {
		t.Errorf("default max = %d, want 300", got)
	}
}

func TestRunner_LimitBoundsBatch(t *testing.T) {
	r, store, _ := newTestRunner(t, testConfig())
	seed(t, store,
		&artist.Artist{Name: "A"}, &artist.Artist{Name: "B"}, &artist.Artist{Name: "C"},
	)
	sum, err := r.Run(context.Background(), artist.FieldLocalized, 2, "cli")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 2 {
		t.Errorf("Total = %d, want 2", sum.Total)
	}
}

func TestRunner_RunInProgress(t *testing.T) {
	cfg := testConfig()
	cfg.LockDir = t.TempDir()
	r, _, _ := newTestRunner(t, cfg)

	r.running[artist.FieldLocalized] = true
	if _, err := r.Run(context.Background(), artist.FieldLocalized, 0, "cli"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("in-process: error = %v, want ErrRunInProgress", err)
	}
	delete(r.running, artist.FieldLocalized)

	other := flock.New(filepath.Join(cfg.LockDir, "liner-enrich-localized.lock"))
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	if _, err := r.Run(context.Background(), artist.FieldLocalized, 0, "cli"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("cross-process: error = %v, want ErrRunInProgress", err)
	}
	_ = other.Unlock()

	// A different field is not blocked, and the lock is free again.
	if _, err := r.Run(context.Background(), artist.FieldMBID, 0, "cli"); err != nil {
		t.Errorf("other field: %v", err)
	}
	if _, err := r.Run(context.Background(), artist.FieldLocalized, 0, "cli"); err != nil {
		t.Errorf("after unlock: %v", err)
	}
}

func TestRunner_UnknownField(t *testing.T) {
	r, _, _ := newTestRunner(t, testConfig())
	if _, err := r.Run(context.Background(), artist.Field("nickname"), 0, "cli"); err == nil {
		t.Error("expected error for unknown field")
	}
}

type fakeBatchRunner struct {
	calls chan artist.Field
}

func (f *fakeBatchRunner) Run(_ context.Context, field artist.Field, _ int, trigger string) (*Summary, error) {
	if trigger != "schedule" {
		return nil, errors.New("unexpected trigger " + trigger)
	}
	select {
	case f.calls <- field:
	default:
	}
	return nil, ErrRunInProgress
}

func TestScheduler(t *testing.T) {
	br := &fakeBatchRunner{calls: make(chan artist.Field, 1)}
	s := NewScheduler(br, map[string]time.Duration{
		"localized": 5 * time.Millisecond,
		"mbid":      0,
		"nickname":  time.Millisecond,
	}, discardLogger())

	fields := s.Fields()
	if len(fields) != 1 || fields[0] != artist.FieldLocalized {
		t.Fatalf("Fields() = %v, want [localized]", fields)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case f := <-br.calls:
		if f != artist.FieldLocalized {
			t.Errorf("scheduled field = %q, want localized", f)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler never ran a batch")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
