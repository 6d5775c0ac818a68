package main

import (
	"log/slog"

	"github.com/sydlexius/liner/internal/config"
	"github.com/sydlexius/liner/internal/enrich"
	"github.com/sydlexius/liner/internal/provider"
	"github.com/sydlexius/liner/internal/provider/flo"
	"github.com/sydlexius/liner/internal/provider/maniadb"
	"github.com/sydlexius/liner/internal/provider/musicbrainz"
	"github.com/sydlexius/liner/internal/provider/spotify"
	"github.com/sydlexius/liner/internal/provider/wikidata"
	"github.com/sydlexius/liner/internal/provider/wikipedia"
)

// newEngine builds every source adapter behind one shared resilience guard.
func newEngine(cfg *config.Config, logger *slog.Logger) *enrich.Engine {
	guard := provider.NewGuard(
		provider.PolicyFromConfig(cfg.Resilience),
		provider.IntervalsFromConfig(cfg.Sources),
		logger,
	)
	sc := cfg.Sources
	timeout := sc.HTTPTimeout

	wd := wikidata.NewWithEndpoints(guard, logger, sc.Wikidata.BaseURL, sc.WikidataAPI)
	wd.SetTimeout(timeout)
	mb := musicbrainz.NewWithBaseURL(guard, logger, sc.MusicBrainz.BaseURL)
	mb.SetTimeout(timeout)
	fl := flo.NewWithBaseURL(guard, logger, sc.FLO.BaseURL)
	fl.SetTimeout(timeout)
	mdb := maniadb.NewWithBaseURL(guard, logger, sc.ManiaDB.BaseURL)
	mdb.SetTimeout(timeout)
	wp := wikipedia.NewWithBaseURL(guard, logger, sc.Wikipedia.BaseURL)
	wp.SetTimeout(timeout)

	src := enrich.Sources{
		KnowledgeGraph: wd,
		Registry:       mb,
		Localized:      fl,
		RealName:       mdb,
		Encyclopedia:   wp,
	}

	sp := spotify.NewWithEndpoints(guard, logger,
		sc.Spotify.ClientID, sc.Spotify.ClientSecret,
		sc.Spotify.BaseURL, sc.Spotify.TokenURL)
	sp.SetTimeout(timeout)
	if sp.Configured() {
		src.Catalog = sp
	} else {
		logger.Info("spotify credentials not configured; catalog lookups disabled")
	}

	return enrich.NewEngine(src, cfg.Enrich.BiographyStrategy, logger)
}
