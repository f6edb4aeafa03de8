package main

import (
	"log/slog"
	"os"
	"time"

	"content-harvest/internal/config"
	"content-harvest/internal/entity"
	"content-harvest/internal/extract"
	"content-harvest/internal/index"
	"content-harvest/internal/observability/logging"
	"content-harvest/internal/query"
	"content-harvest/internal/sources"
	"content-harvest/internal/sources/agent"
	"content-harvest/internal/sources/commentsite"
	"content-harvest/internal/sources/feed"
	"content-harvest/internal/sources/htmllist"
	"content-harvest/internal/sources/jsonapi"
	"content-harvest/internal/storage"
	"content-harvest/internal/transport"
)

const (
	defaultDataRoot     = "data"
	defaultSourcesYAML  = "config/sources.yaml"
	defaultHTTPTimeout  = 20 * time.Second
	defaultDenyPrivate  = true
)

// env bundles the CLI's wired dependencies, built once per invocation.
type env struct {
	logger   *slog.Logger
	dataRoot string
	store    *storage.Storage
	idx      *index.Index
	session  *transport.Session
	registry *sources.Registry
	engine   *query.Engine
}

func newEnv() *env {
	logger := logging.NewLogger()

	dataRoot := os.Getenv("HARVEST_DATA_ROOT")
	if dataRoot == "" {
		dataRoot = defaultDataRoot
	}

	store := storage.New(dataRoot)
	idx := index.New(dataRoot)
	session := transport.NewSession(defaultHTTPTimeout, defaultDenyPrivate)
	extractor := extract.New(session)

	srcs, err := config.LoadSources(defaultSourcesYAML)
	if err != nil {
		logger.Warn("failed to load source configuration, continuing with no sources", slog.Any("error", err))
		srcs = nil
	}

	registry := sources.NewRegistry(srcs, buildFetchers(session, extractor, srcs))
	engine := query.New(store, idx, registry)

	return &env{
		logger:   logger,
		dataRoot: dataRoot,
		store:    store,
		idx:      idx,
		session:  session,
		registry: registry,
		engine:   engine,
	}
}

// buildFetchers binds one Fetcher instance per transport. The rss, html,
// api and agent fetchers are always built; the comment_api fetcher is built
// only when srcs contains at least one comment_api source with a config.
func buildFetchers(session *transport.Session, extractor *extract.Extractor, srcs []entity.Source) map[entity.Transport]sources.Fetcher {
	fetchers := map[entity.Transport]sources.Fetcher{
		entity.TransportRSS:   feed.New(session),
		entity.TransportHTML:  htmllist.New(session, extractor),
		entity.TransportAPI:   jsonapi.New(session),
		entity.TransportAgent: agent.New(&agent.ProcessDriver{}),
	}

	strategies := map[string]commentsite.Strategy{}
	for _, src := range srcs {
		if src.Transport != entity.TransportCommentAPI || src.Config == nil {
			continue
		}
		strategies[src.ID] = commentsite.Strategy{
			ListURL:               src.URL,
			ItemURLTemplate:       src.Config.DetailURLTemplate,
			DiscussionURLTemplate: src.Config.DetailURLTemplate,
			SeedCount:             src.Config.SeedCount,
			FinalCount:            src.Config.FinalCount,
			QueueLimit:            src.Config.QueueLimit,
		}
	}
	if len(strategies) > 0 {
		fetchers[entity.TransportCommentAPI] = commentsite.New(session, strategies)
	}
	return fetchers
}

func (e *env) close() {
	e.session.Close()
}
