package enrich

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/provider/flo"
	"github.com/sydlexius/liner/internal/provider/musicbrainz"
	"github.com/sydlexius/liner/internal/provider/spotify"
	"github.com/sydlexius/liner/internal/provider/wikidata"
	"github.com/sydlexius/liner/internal/provider/wikipedia"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// callLog records adapter calls for assertions.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *callLog) count(call string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, got := range c.calls {
		if got == call {
			n++
		}
	}
	return n
}

type fakeGraph struct {
	callLog
	refs     map[string][]string // "P1902=value" -> ids
	entities map[string]*wikidata.Entity
	search   map[string][]string
	groups   map[string]bool
	// errFor fails any ref lookup whose value matches the key.
	errFor map[string]error
	err    error
}

func (f *fakeGraph) FindIDsByExternalRef(_ context.Context, prop, value string) ([]string, error) {
	f.record("ref:" + prop + "=" + value)
	if err := f.errFor[value]; err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.refs[prop+"="+value]...), nil
}

func (f *fakeGraph) GetEntity(_ context.Context, id string) (*wikidata.Entity, error) {
	f.record("entity:" + id)
	if f.err != nil {
		return nil, f.err
	}
	if e, ok := f.entities[id]; ok {
		return e, nil
	}
	return nil, &provider.ErrNotFound{Source: provider.SourceWikidata, ID: id}
}

func (f *fakeGraph) GetEntities(_ context.Context, ids []string) (map[string]*wikidata.Entity, error) {
	f.record("entities")
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]*wikidata.Entity)
	for _, id := range ids {
		if e, ok := f.entities[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (f *fakeGraph) Labels(ctx context.Context, ids []string, lang string) (map[string]string, error) {
	ents, err := f.GetEntities(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for id, e := range ents {
		if l := e.Label(lang); l != "" {
			out[id] = l
		} else if l := e.Label("en"); l != "" {
			out[id] = l
		}
	}
	return out, nil
}

func (f *fakeGraph) SearchByName(_ context.Context, name, _ string) ([]string, error) {
	f.record("search:" + name)
	if f.err != nil {
		return nil, f.err
	}
	return f.search[name], nil
}

func (f *fakeGraph) FindIDByName(_ context.Context, name, _ string) (string, error) {
	f.record("find:" + name)
	if f.err != nil {
		return "", f.err
	}
	if ids := f.search[name]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", &provider.ErrNotFound{Source: provider.SourceWikidata, ID: name}
}

func (f *fakeGraph) IsMusicalGroup(_ context.Context, id string) (bool, error) {
	f.record("ask:" + id)
	return f.groups[id], nil
}

type fakeRegistry struct {
	callLog
	byID      map[string]*musicbrainz.ArtistInfo
	bySpotify map[string]*musicbrainz.ArtistInfo
	byName    map[string]*musicbrainz.ArtistInfo
}

func (f *fakeRegistry) notFound(id string) error {
	return &provider.ErrNotFound{Source: provider.SourceMusicBrainz, ID: id}
}

func (f *fakeRegistry) SearchByName(_ context.Context, name string) (*musicbrainz.ArtistInfo, error) {
	f.record("search:" + name)
	if info, ok := f.byName[name]; ok {
		return info, nil
	}
	return nil, f.notFound(name)
}

func (f *fakeRegistry) GetByID(_ context.Context, mbid string) (*musicbrainz.ArtistInfo, error) {
	f.record("get:" + mbid)
	if info, ok := f.byID[mbid]; ok {
		return info, nil
	}
	return nil, f.notFound(mbid)
}

func (f *fakeRegistry) LookupBySpotifyID(_ context.Context, spotifyID string) (*musicbrainz.ArtistInfo, error) {
	f.record("spotify:" + spotifyID)
	if info, ok := f.bySpotify[spotifyID]; ok {
		return info, nil
	}
	return nil, f.notFound(spotifyID)
}

func (f *fakeRegistry) IsSubunitOrProject(ctx context.Context, mbid string) (bool, error) {
	info, err := f.GetByID(ctx, mbid)
	if err != nil {
		return false, err
	}
	return info.IsSubunitOrProject(), nil
}

func (f *fakeRegistry) IsActivityEnded(ctx context.Context, mbid string) (bool, error) {
	info, err := f.GetByID(ctx, mbid)
	if err != nil {
		return false, err
	}
	return info.Ended, nil
}

func (f *fakeRegistry) CollectNameAliases(ctx context.Context, mbid string) ([]musicbrainz.Alias, error) {
	info, err := f.GetByID(ctx, mbid)
	if err != nil {
		return nil, err
	}
	return info.Aliases, nil
}

type fakeLocalized struct {
	callLog
	results map[string]*flo.Result
}

func (f *fakeLocalized) SearchByName(_ context.Context, name string) (*flo.Result, error) {
	f.record(name)
	if r, ok := f.results[name]; ok {
		return r, nil
	}
	return nil, &provider.ErrNotFound{Source: provider.SourceFLO, ID: name}
}

type fakeRealName map[string]string

func (f fakeRealName) RealName(_ context.Context, name, _ string) (string, error) {
	if n, ok := f[name]; ok {
		return n, nil
	}
	return "", &provider.ErrNotFound{Source: provider.SourceManiaDB, ID: name}
}

type fakeEncyclopedia map[string]string

func (f fakeEncyclopedia) Summary(_ context.Context, lang, title string) (*wikipedia.Summary, error) {
	if extract, ok := f[title]; ok {
		return &wikipedia.Summary{Lang: lang, Title: title, Extract: extract}, nil
	}
	return nil, &provider.ErrNotFound{Source: provider.SourceWikipedia, ID: title}
}

type fakeCatalog map[string]*spotify.Artist

func (f fakeCatalog) Artist(_ context.Context, id string) (*spotify.Artist, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, &provider.ErrNotFound{Source: provider.SourceSpotify, ID: id}
}

// testSources returns empty fakes wired into Sources.
func testSources() (Sources, *fakeGraph, *fakeRegistry, *fakeLocalized) {
	g := &fakeGraph{
		refs:     map[string][]string{},
		entities: map[string]*wikidata.Entity{},
		search:   map[string][]string{},
		groups:   map[string]bool{},
		errFor:   map[string]error{},
	}
	r := &fakeRegistry{
		byID:      map[string]*musicbrainz.ArtistInfo{},
		bySpotify: map[string]*musicbrainz.ArtistInfo{},
		byName:    map[string]*musicbrainz.ArtistInfo{},
	}
	l := &fakeLocalized{results: map[string]*flo.Result{}}
	return Sources{KnowledgeGraph: g, Registry: r, Localized: l}, g, r, l
}

// addEntity registers an entity with the given P31 values and labels.
func (f *fakeGraph) addEntity(id string, p31 []string, labels map[string]string) *wikidata.Entity {
	e := entity(id, p31, labels)
	f.entities[id] = e
	return e
}

func claim(e *wikidata.Entity, prop string, values ...wikidata.Value) {
	e.Claims[prop] = append(e.Claims[prop], values...)
}
