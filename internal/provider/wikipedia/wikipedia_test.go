package wikipedia

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
	return NewWithBaseURL(provider.NewGuard(provider.DefaultPolicy(), nil, logger), logger, srv.URL+"/{lang}")
}

func TestSummary(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ko/page/summary/아이유_(가수)" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"type":"standard","title":"아이유 (가수)","extract":"  아이유는 대한민국의 가수이다. "}`))
	})

	s, err := a.Summary(context.Background(), "ko", "아이유 (가수)")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Extract != "아이유는 대한민국의 가수이다." {
		t.Errorf("Extract = %q", s.Extract)
	}
	if s.Lang != "ko" {
		t.Errorf("Lang = %q, want ko", s.Lang)
	}
}

func TestSummary_Disambiguation(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type":"disambiguation","title":"IU","extract":"IU may refer to"}`))
	})
	_, err := a.Summary(context.Background(), "en", "IU")
	var nf *provider.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSummary_Missing(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := a.Summary(context.Background(), "en", "No such page")
	var nf *provider.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
