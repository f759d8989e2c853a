// Package interceptor turns navigation lifecycle events into redirect
// decisions and, when a listed domain matches, sends the tab to its
// archive.is snapshot.
package interceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dgnsrekt/archive_redirector/internal/redirect"
	"github.com/dgnsrekt/archive_redirector/internal/settings"
	"github.com/dgnsrekt/archive_redirector/internal/tracker"
	"github.com/dgnsrekt/archive_redirector/internal/textutil"
	"github.com/dgnsrekt/archive_redirector/internal/types"
)

// Outcomes recorded in addition to redirect.Kind strings.
const (
	OutcomeAlreadyHandled = "already_handled"
	OutcomeInvalidURL     = "invalid_url"
	OutcomeSettingsError  = "settings_error"
)

const defaultTimeout = 10 * time.Second

// TabController reads and replaces the committed URL of a tab.
type TabController interface {
	CurrentURL(ctx context.Context, tabID int) (string, error)
	Navigate(ctx context.Context, tabID int, url string) error
}

// SettingsLoader returns the current settings. It is called on every
// evaluated navigation.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Recorder receives every decision made by the interceptor.
type Recorder interface {
	RecordDecision(rec types.DecisionRecord)
}

// Interceptor wires the three navigation hooks to redirect.Decide.
type Interceptor struct {
	tracker      *tracker.Tracker
	settings     SettingsLoader
	tabs         TabController
	recorders    []Recorder
	cleanupDelay time.Duration
	timeout      time.Duration
	now          func() time.Time
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithCleanupDelay sets how long a tab's handled URLs survive a redirect.
func WithCleanupDelay(d time.Duration) Option {
	return func(i *Interceptor) { i.cleanupDelay = d }
}

// WithTimeout bounds each settings read and tab call.
func WithTimeout(d time.Duration) Option {
	return func(i *Interceptor) { i.timeout = d }
}

func WithRecorders(recs ...Recorder) Option {
	return func(i *Interceptor) { i.recorders = append(i.recorders, recs...) }
}

func New(tr *tracker.Tracker, loader SettingsLoader, tabs TabController, opts ...Option) *Interceptor {
	i := &Interceptor{
		tracker:      tr,
		settings:     loader,
		tabs:         tabs,
		cleanupDelay: tracker.DefaultCleanupDelay,
		timeout:      defaultTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// BeforeNavigate handles a navigation that is about to commit. The URL comes
// from the event itself.
func (i *Interceptor) BeforeNavigate(ctx context.Context, ev types.NavigationEvent) {
	defer i.recoverEvent(types.HookBeforeNavigate, ev.TabID)

	if ev.FrameID != 0 || !isWebURL(ev.URL) {
		return
	}
	i.process(ctx, types.HookBeforeNavigate, ev.TabID, ev.URL)
}

// Completed handles a finished top-level load. The event URL is not trusted;
// the tab's committed URL is read back instead.
func (i *Interceptor) Completed(ctx context.Context, ev types.NavigationEvent) {
	defer i.recoverEvent(types.HookCompleted, ev.TabID)
	i.afterNavigation(ctx, types.HookCompleted, ev)
}

// HistoryStateUpdated handles client-side route changes (pushState and
// friends) the same way as Completed.
func (i *Interceptor) HistoryStateUpdated(ctx context.Context, ev types.NavigationEvent) {
	defer i.recoverEvent(types.HookHistoryStateUpdated, ev.TabID)
	i.afterNavigation(ctx, types.HookHistoryStateUpdated, ev)
}

// TabRemoved forgets everything tracked for the tab.
func (i *Interceptor) TabRemoved(tabID int) {
	i.tracker.Clear(tabID)
}

// Dispatch routes ev to the hook it names.
func (i *Interceptor) Dispatch(ctx context.Context, ev types.NavigationEvent) error {
	switch ev.Hook {
	case types.HookBeforeNavigate:
		i.BeforeNavigate(ctx, ev)
	case types.HookCompleted:
		i.Completed(ctx, ev)
	case types.HookHistoryStateUpdated:
		i.HistoryStateUpdated(ctx, ev)
	default:
		return fmt.Errorf("unknown navigation hook %q", ev.Hook)
	}
	return nil
}

func (i *Interceptor) afterNavigation(ctx context.Context, hook types.Hook, ev types.NavigationEvent) {
	if ev.FrameID != 0 {
		return
	}
	if ev.URL != "" && !isWebURL(ev.URL) {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	current, err := i.tabs.CurrentURL(callCtx, ev.TabID)
	cancel()
	if err != nil || current == "" {
		slog.Debug("Tab URL unavailable, dropping event", "hook", hook, "tab_id", ev.TabID, "error", err)
		return
	}
	if !isWebURL(current) {
		return
	}
	i.process(ctx, hook, ev.TabID, current)
}

func (i *Interceptor) process(ctx context.Context, hook types.Hook, tabID int, rawURL string) {
	rec := types.DecisionRecord{Hook: hook, TabID: tabID, URL: rawURL}

	if i.tracker.Seen(tabID, rawURL) {
		rec.Outcome = OutcomeAlreadyHandled
		i.record(rec)
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, i.timeout)
	current, err := i.settings.Load(loadCtx)
	cancel()
	if err != nil {
		slog.Warn("Failed to load settings", "hook", hook, "tab_id", tabID, "error", err)
		rec.Outcome = OutcomeSettingsError
		rec.Error = err.Error()
		i.record(rec)
		return
	}

	out, err := redirect.Decide(rawURL, current)
	if err != nil {
		if errors.Is(err, redirect.ErrInvalidURL) {
			slog.Warn("Invalid navigation URL", "hook", hook, "tab_id", tabID, "url", textutil.URL(rawURL), "error", err)
		} else {
			slog.Error("Redirect decision failed", "hook", hook, "tab_id", tabID, "url", textutil.URL(rawURL), "error", err)
		}
		rec.Outcome = OutcomeInvalidURL
		rec.Error = err.Error()
		i.record(rec)
		return
	}

	rec.Outcome = out.Kind.String()
	rec.MatchedDomain = out.MatchedDomain

	switch out.Kind {
	case redirect.NoMatch:
		i.record(rec)
		return
	case redirect.SkipHomepage:
		slog.Debug("Skipping homepage", "tab_id", tabID, "url", textutil.URL(rawURL), "domain", out.MatchedDomain)
		i.record(rec)
		return
	}

	rec.Target = out.Target
	handled := []string{rawURL, out.Target}
	if canonical, err := redirect.Canonical(out.Target); err == nil {
		handled = append(handled, canonical)
	}
	i.tracker.MarkHandled(tabID, handled...)

	slog.Info("Redirecting", "hook", hook, "tab_id", tabID, "url", textutil.URL(rawURL), "target", textutil.URL(out.Target))

	navCtx, cancel := context.WithTimeout(ctx, i.timeout)
	if err := i.tabs.Navigate(navCtx, tabID, out.Target); err != nil {
		slog.Warn("Failed to navigate tab", "tab_id", tabID, "target", textutil.URL(out.Target), "error", err)
		rec.Error = err.Error()
	}
	cancel()

	i.tracker.ScheduleCleanup(tabID, i.cleanupDelay)
	i.record(rec)
}

func (i *Interceptor) record(rec types.DecisionRecord) {
	rec.Timestamp = i.now().UTC()
	for _, r := range i.recorders {
		r.RecordDecision(rec)
	}
}

func (i *Interceptor) recoverEvent(hook types.Hook, tabID int) {
	if r := recover(); r != nil {
		slog.Error("Recovered panic in navigation handler", "hook", hook, "tab_id", tabID, "panic", r)
	}
}

// isWebURL reports whether raw uses http or https. Navigation listeners
// only subscribe to those schemes.
func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		// Let Decide report it.
		lower := strings.ToLower(raw)
		return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
