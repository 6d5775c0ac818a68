package flo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sydlexius/liner/internal/provider"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWithBaseURL(provider.NewGuard(provider.DefaultPolicy(), nil, logger), logger, srv.URL)
}

func TestSearchByName(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/v2/search/integration" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("keyword") != "D.O." {
			t.Errorf("keyword = %q, want D.O.", r.URL.Query().Get("keyword"))
		}
		if r.Header.Get("x-gm-app-name") != "FLO_WEB" {
			t.Error("missing app header")
		}
		_, _ = w.Write([]byte(`{"data":{"list":[
			{"type":"TRACK","list":[{"name":"Rose"}]},
			{"type":"ARTIST","list":[{"name":"디오","teamName":"EXO"},{"name":"other"}]}
		]}}`))
	})

	got, err := a.SearchByName(context.Background(), "D.O.")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if got.LocalizedName != "디오" {
		t.Errorf("LocalizedName = %q, want 디오", got.LocalizedName)
	}
	if got.Group != "EXO" {
		t.Errorf("Group = %q, want EXO", got.Group)
	}
}

func TestSearchByName_AlternateNameField(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"list":[{"type":"artist","list":[{"artistName":"아이유"}]}]}}`))
	})
	got, err := a.SearchByName(context.Background(), "IU")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if got.LocalizedName != "아이유" || got.Group != "" {
		t.Errorf("got %+v, want 아이유 without group", got)
	}
}

func TestSearchByName_NoArtistSection(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"list":[{"type":"TRACK","list":[{"name":"x"}]}]}}`))
	})
	_, err := a.SearchByName(context.Background(), "nobody")
	var nf *provider.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchByName_NotFoundStatus(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := a.SearchByName(context.Background(), "nobody")
	var nf *provider.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
