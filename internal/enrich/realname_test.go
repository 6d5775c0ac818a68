package enrich

import (
	"context"
	"testing"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/provider/musicbrainz"
	"github.com/sydlexius/liner/internal/provider/wikidata"
)

func birthName(text, lang string) wikidata.Value {
	return wikidata.Value{Text: text, Language: lang}
}

func TestEnrichRealName(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(g *fakeGraph, r *fakeRegistry, src *Sources)
		artist artist.Artist
		want   string
	}{
		{
			name: "korean birth name",
			setup: func(g *fakeGraph, _ *fakeRegistry, _ *Sources) {
				e := g.addEntity("Q1", []string{wikidata.ItemHuman}, map[string]string{"en": "IU"})
				claim(e, wikidata.PropBirthName, birthName("Lee Ji-eun", "en"), birthName("이지은", "ko"))
			},
			artist: artist.Artist{Name: "IU", WikidataID: "Q1"},
			want:   "이지은",
		},
		{
			name: "family and given name labels",
			setup: func(g *fakeGraph, _ *fakeRegistry, _ *Sources) {
				e := g.addEntity("Q1", []string{wikidata.ItemHuman}, map[string]string{"en": "IU"})
				claim(e, wikidata.PropFamilyName, wikidata.Value{EntityID: "Q10"})
				claim(e, wikidata.PropGivenName, wikidata.Value{EntityID: "Q11"})
				g.addEntity("Q10", nil, map[string]string{"ko": "이", "en": "Lee"})
				g.addEntity("Q11", nil, map[string]string{"ko": "지은", "en": "Ji-eun"})
			},
			artist: artist.Artist{Name: "IU", WikidataID: "Q1"},
			want:   "이지은",
		},
		{
			name: "name parts without korean labels skipped",
			setup: func(g *fakeGraph, _ *fakeRegistry, _ *Sources) {
				e := g.addEntity("Q1", []string{wikidata.ItemHuman}, map[string]string{"en": "IU"})
				claim(e, wikidata.PropFamilyName, wikidata.Value{EntityID: "Q10"})
				claim(e, wikidata.PropGivenName, wikidata.Value{EntityID: "Q11"})
				claim(e, wikidata.PropBirthName, birthName("Lee Ji-eun", "en"))
				g.addEntity("Q10", nil, map[string]string{"en": "Lee"})
				g.addEntity("Q11", nil, map[string]string{"en": "Ji-eun"})
			},
			artist: artist.Artist{Name: "IU", WikidataID: "Q1"},
			want:   "Lee Ji-eun",
		},
		{
			name: "maniadb profile",
			setup: func(_ *fakeGraph, _ *fakeRegistry, src *Sources) {
				src.RealName = fakeRealName{"Taeyeon": "김태연"}
			},
			artist: artist.Artist{Name: "Taeyeon", SpotifyID: "sp-ty"},
			want:   "김태연",
		},
		{
			name: "registry legal name alias",
			setup: func(_ *fakeGraph, r *fakeRegistry, _ *Sources) {
				r.byID["mb-ty"] = &musicbrainz.ArtistInfo{ID: "mb-ty", Aliases: []musicbrainz.Alias{
					{Name: "태연", Locale: "ko"},
					{Name: "Kim Tae-yeon", Type: "Legal name"},
				}}
			},
			artist: artist.Artist{Name: "Taeyeon", MusicBrainzID: "mb-ty"},
			want:   "Kim Tae-yeon",
		},
		{
			name: "hangul alias that is not a stage name",
			setup: func(_ *fakeGraph, r *fakeRegistry, _ *Sources) {
				r.bySpotify["sp-ty"] = &musicbrainz.ArtistInfo{ID: "mb-ty", Aliases: []musicbrainz.Alias{
					{Name: "태연"},
					{Name: "김태연"},
				}}
			},
			artist: artist.Artist{Name: "Taeyeon", LocalizedName: "태연", SpotifyID: "sp-ty"},
			want:   "김태연",
		},
		{
			name: "entity found by name search",
			setup: func(g *fakeGraph, _ *fakeRegistry, _ *Sources) {
				g.search["아이유"] = []string{"Q5"}
				e := g.addEntity("Q5", []string{wikidata.ItemHuman}, map[string]string{"ko": "아이유"})
				claim(e, wikidata.PropBirthName, birthName("이지은", "ko"))
			},
			artist: artist.Artist{Name: "IU", LocalizedName: "아이유"},
			want:   "이지은",
		},
		{
			name: "name search hit that is not an artist ignored",
			setup: func(g *fakeGraph, _ *fakeRegistry, _ *Sources) {
				g.search["Palette"] = []string{"Q6"}
				e := g.addEntity("Q6", []string{"Q7366"}, map[string]string{"en": "Palette"})
				claim(e, wikidata.PropBirthName, birthName("이지은", "ko"))
			},
			artist: artist.Artist{Name: "Palette"},
			want:   "",
		},
		{
			name: "name search hit with another label ignored",
			setup: func(g *fakeGraph, _ *fakeRegistry, _ *Sources) {
				g.search["IU"] = []string{"Q9"}
				e := g.addEntity("Q9", []string{wikidata.ItemHuman}, map[string]string{"en": "Kim Min-jae"})
				claim(e, wikidata.PropBirthName, birthName("김민재", "ko"))
			},
			artist: artist.Artist{Name: "IU"},
			want:   "",
		},
		{
			name: "stage name is not a real name",
			setup: func(g *fakeGraph, _ *fakeRegistry, _ *Sources) {
				e := g.addEntity("Q1", []string{wikidata.ItemHuman}, nil)
				claim(e, wikidata.PropBirthName, birthName("아이유", "ko"))
			},
			artist: artist.Artist{Name: "IU", LocalizedName: "아이유", WikidataID: "Q1"},
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, g, r, _ := testSources()
			tt.setup(g, r, &src)
			e := NewEngine(src, "", discardLogger())
			a := tt.artist

			changed, err := e.EnrichRealName(context.Background(), &a)
			if err != nil {
				t.Fatalf("EnrichRealName: %v", err)
			}
			if a.RealName != tt.want {
				t.Errorf("RealName = %q, want %q", a.RealName, tt.want)
			}
			if changed != (tt.want != "") {
				t.Errorf("changed = %v, want %v", changed, tt.want != "")
			}
		})
	}
}

func TestEnrichRealName_KeepsExisting(t *testing.T) {
	src, g, _, _ := testSources()
	e := g.addEntity("Q1", []string{wikidata.ItemHuman}, nil)
	claim(e, wikidata.PropBirthName, birthName("이지은", "ko"))
	eng := NewEngine(src, "", discardLogger())

	a := &artist.Artist{Name: "IU", WikidataID: "Q1", RealName: "Lee Jieun"}
	changed, err := eng.EnrichRealName(context.Background(), a)
	if err != nil {
		t.Fatalf("EnrichRealName: %v", err)
	}
	if changed || a.RealName != "Lee Jieun" {
		t.Errorf("RealName = %q (changed %v), want existing value kept", a.RealName, changed)
	}
	if n := g.count("entity:Q1"); n != 0 {
		t.Errorf("entity fetched %d times, want 0", n)
	}
}

func TestEnrichRealName_NameSearchOnlyAsLastResort(t *testing.T) {
	src, g, _, _ := testSources()
	e := g.addEntity("Q1", []string{wikidata.ItemHuman}, map[string]string{"ko": "아이유"})
	claim(e, wikidata.PropBirthName, birthName("이지은", "ko"))
	g.search["아이유"] = []string{"Q1"}
	eng := NewEngine(src, "", discardLogger())

	a := &artist.Artist{Name: "IU", LocalizedName: "아이유", WikidataID: "Q1"}
	if _, err := eng.EnrichRealName(context.Background(), a); err != nil {
		t.Fatalf("EnrichRealName: %v", err)
	}
	if a.RealName != "이지은" {
		t.Errorf("RealName = %q, want 이지은", a.RealName)
	}
	if n := g.count("find:아이유"); n != 0 {
		t.Errorf("name searches = %d, want 0 when the registry id resolves", n)
	}
}
