package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/archive_redirector/internal/metrics"
	"github.com/dgnsrekt/archive_redirector/internal/recommend"
	"github.com/dgnsrekt/archive_redirector/internal/redirect"
	"github.com/dgnsrekt/archive_redirector/internal/relay"
	"github.com/dgnsrekt/archive_redirector/internal/settings"
	"github.com/dgnsrekt/archive_redirector/internal/tracker"
	"github.com/dgnsrekt/archive_redirector/internal/types"
)

// Version is reported by /health.
var Version = "dev"

// SettingsService edits and reads the stored redirect settings.
type SettingsService interface {
	Settings(ctx context.Context) (settings.Settings, error)
	SetSkipHomepage(ctx context.Context, enabled bool) error
	AddDomain(ctx context.Context, raw string) (string, error)
	RemoveDomain(ctx context.Context, domain string) error
	ClearDomains(ctx context.Context) error
	MergeDomains(ctx context.Context, candidates []string) (settings.MergeResult, error)
}

// Recommender fetches the recommended domain list.
type Recommender interface {
	Fetch(ctx context.Context) ([]string, error)
}

// TrackerView exposes the processed-URL tracker for status output.
type TrackerView interface {
	Snapshot() []tracker.TabState
}

// TabLister lists the browser tabs currently attached.
type TabLister interface {
	Tabs() []types.TabInfo
}

// Deps are the collaborators served by the API. Settings is required;
// nil optional fields disable the routes that need them.
type Deps struct {
	Settings    SettingsService
	Recommended Recommender
	Tracker     TrackerView
	Tabs        TabLister
	Broker      *relay.Broker
	Metrics     *metrics.Metrics
}

func NewServer(deps Deps) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Archive Redirector API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/docs/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(eventsDocsHTML)); err != nil {
			slog.Debug("events docs response write failed", "error", err)
		}
	})

	if deps.Broker != nil {
		router.Get("/events", relay.SSEHandler(deps.Broker))
		router.Get("/ws/events", relay.WSHandler(deps.Broker))
	}
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler())
	}

	registerHealthHandlers(api)
	registerSettingsHandlers(api, deps.Settings)
	registerDomainHandlers(api, deps.Settings, deps.Recommended)
	registerDecideHandlers(api, deps.Settings)
	registerTabHandlers(api, deps.Tracker, deps.Tabs)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, settings.ErrEmptyDomain), errors.Is(err, redirect.ErrInvalidURL):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, settings.ErrDomainNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, settings.ErrDuplicateDomain):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, recommend.ErrInvalidFormat):
		return huma.Error502BadGateway(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
