package maniadb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/sydlexius/liner/internal/provider"
)

const searchPage = `<html><body>
<div class="menu"><a href="/artist/000001">ignored</a></div>
<div class="search_result">
  <ul><li><a href="/album/123">album</a></li>
  <li><a href="/artist/120305">아이유</a></li></ul>
</div></body></html>`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWithBaseURL(provider.NewGuard(provider.DefaultPolicy(), nil, logger), logger, srv.URL)
}

func TestRealName(t *testing.T) {
	var searched string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search/"):
			searched = r.URL.Path
			if r.URL.Query().Get("sr") != "artist" {
				t.Errorf("sr = %q, want artist", r.URL.Query().Get("sr"))
			}
			_, _ = w.Write([]byte(searchPage))
		case r.URL.Path == "/artist/120305":
			_, _ = w.Write([]byte(`<html><body><dl>
				<dt>데뷔</dt><dd>2008</dd>
				<dt>본명</dt><dd> 이지은 </dd>
			</dl></body></html>`))
		default:
			http.NotFound(w, r)
		}
	})

	got, err := a.RealName(context.Background(), "IU", "아이유")
	if err != nil {
		t.Fatalf("RealName: %v", err)
	}
	if got != "이지은" {
		t.Errorf("RealName = %q, want 이지은", got)
	}
	if searched != "/search/아이유/" {
		t.Errorf("searched %q, want the localized name", searched)
	}
}

func TestRealName_NoResult(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="search_result"></div></body></html>`))
	})
	_, err := a.RealName(context.Background(), "Nobody", "")
	var nf *provider.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExtractRealName(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "dt dd pair",
			page: `<dl><dt>실명</dt><dd>김태연</dd></dl>`,
			want: "김태연",
		},
		{
			name: "dash means unknown",
			page: `<dl><dt>본명</dt><dd>-</dd></dl>`,
			want: "",
		},
		{
			name: "labelled span",
			page: `<p><span class="info_label">본명</span>: 도경수</p>`,
			want: "도경수",
		},
		{
			name: "full-width colon",
			page: `<p><span class="label">본명</span>：박재범</p>`,
			want: "박재범",
		},
		{
			name: "info table",
			page: `<table class="artist_info"><tr><th>본명</th><td>권지용</td></tr></table>`,
			want: "권지용",
		},
		{
			name: "table without class is ignored",
			page: `<table><tr><th>본명</th><td>권지용</td></tr></table>`,
			want: "",
		},
		{
			name: "no label",
			page: `<dl><dt>데뷔</dt><dd>2008</dd></dl>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := html.Parse(strings.NewReader("<html><body>" + tt.page + "</body></html>"))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := extractRealName(doc); got != tt.want {
				t.Errorf("extractRealName = %q, want %q", got, tt.want)
			}
		})
	}
}
