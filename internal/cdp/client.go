package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto"
	cdptypes "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"

	"github.com/dgnsrekt/archive_redirector/internal/config"
	"github.com/dgnsrekt/archive_redirector/internal/textutil"
	"github.com/dgnsrekt/archive_redirector/internal/types"
)

// ErrUnknownTab is returned for tab IDs that are not attached.
var ErrUnknownTab = errors.New("unknown tab")

// EventHandler receives navigation events translated from CDP.
// *interceptor.Interceptor satisfies it.
type EventHandler interface {
	Dispatch(ctx context.Context, ev types.NavigationEvent) error
	TabRemoved(tabID int)
}

// Client attaches to every page target of a running Chromium and feeds its
// top-level navigations to an EventHandler. It also implements
// interceptor.TabController.
type Client struct {
	cfg      *config.Config
	conn     *conn
	registry *TabRegistry
	handler  EventHandler

	sessions  map[target.ID]string
	bySession map[string]target.ID
	attaching map[target.ID]struct{}
	mu        sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onTabsChanged func(n int)
}

// Option configures a Client.
type Option func(*Client)

// WithTabsChanged registers a callback invoked with the attached tab count.
func WithTabsChanged(fn func(n int)) Option {
	return func(c *Client) { c.onTabsChanged = fn }
}

func NewClient(cfg *config.Config, registry *TabRegistry, opts ...Option) *Client {
	c := &Client{
		cfg:       cfg,
		conn:      newConn(cfg.GetCDPURL()),
		registry:  registry,
		sessions:  make(map[target.ID]string),
		bySession: make(map[string]target.ID),
		attaching: make(map[target.ID]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the browser, subscribes to target discovery and attaches to
// every open page. Events are delivered to handler until Close.
func (c *Client) Connect(ctx context.Context, handler EventHandler) error {
	c.handler = handler
	c.ctx, c.cancel = context.WithCancel(ctx)

	slog.Info("Connecting to Chromium", "url", c.cfg.GetCDPURL())
	if err := c.conn.connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	c.conn.on(string(cdproto.EventTargetTargetCreated), c.onTargetCreated)
	c.conn.on(string(cdproto.EventTargetTargetInfoChanged), c.onTargetInfoChanged)
	c.conn.on(string(cdproto.EventTargetTargetDestroyed), c.onTargetDestroyed)
	c.conn.on(string(cdproto.EventTargetDetachedFromTarget), c.onDetachedFromTarget)
	c.conn.on(string(cdproto.EventNetworkRequestWillBeSent), c.onRequestWillBeSent)
	c.conn.on(string(cdproto.EventPageFrameStoppedLoading), c.onFrameStoppedLoading)
	c.conn.on(string(cdproto.EventPageNavigatedWithinDocument), c.onNavigatedWithinDocument)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CDPTimeout)
	defer cancel()

	if err := c.conn.call(callCtx, "", target.CommandSetDiscoverTargets, map[string]any{"discover": true}, nil); err != nil {
		return fmt.Errorf("failed to enable target discovery: %w", err)
	}

	var res struct {
		TargetInfos []*target.Info `json:"targetInfos"`
	}
	if err := c.conn.call(callCtx, "", target.CommandGetTargets, nil, &res); err != nil {
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}
	slog.Info("Found browser targets", "count", len(res.TargetInfos))

	for _, t := range res.TargetInfos {
		if t.Type != "page" {
			continue
		}
		if err := c.attach(callCtx, t.TargetID, t.URL); err != nil {
			slog.Error("Failed to attach to tab", "target_id", t.TargetID, "url", textutil.URL(t.URL), "error", err)
		}
	}

	slog.Info("Attached to tabs", "count", c.registry.Count())
	return nil
}

// Done is closed when the browser connection drops.
func (c *Client) Done() <-chan struct{} {
	return c.conn.closed()
}

func (c *Client) attach(ctx context.Context, targetID target.ID, url string) error {
	c.mu.Lock()
	if _, ok := c.sessions[targetID]; ok {
		c.mu.Unlock()
		return nil
	}
	if _, ok := c.attaching[targetID]; ok {
		c.mu.Unlock()
		return nil
	}
	c.attaching[targetID] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.attaching, targetID)
		c.mu.Unlock()
	}()

	var res struct {
		SessionID string `json:"sessionId"`
	}
	params := map[string]any{"targetId": targetID, "flatten": true}
	if err := c.conn.call(ctx, "", target.CommandAttachToTarget, params, &res); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	info := c.registry.Register(targetID, url)
	c.mu.Lock()
	c.sessions[targetID] = res.SessionID
	c.bySession[res.SessionID] = targetID
	c.mu.Unlock()

	for _, method := range []string{network.CommandEnable, page.CommandEnable} {
		if err := c.conn.call(ctx, res.SessionID, method, nil, nil); err != nil {
			c.forget(targetID)
			return fmt.Errorf("failed to enable network/page domains: %w", err)
		}
	}

	slog.Info("Attached to tab", "tab_id", info.TabID, "target_id", targetID, "url", textutil.URL(url))
	c.tabsChanged()
	return nil
}

// forget drops a target from the session maps and the registry.
func (c *Client) forget(targetID target.ID) (int, bool) {
	c.mu.Lock()
	if sid, ok := c.sessions[targetID]; ok {
		delete(c.bySession, sid)
		delete(c.sessions, targetID)
	}
	c.mu.Unlock()
	return c.registry.Remove(targetID)
}

func (c *Client) targetForSession(sessionID string) (target.ID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.bySession[sessionID]
	return id, ok
}

func (c *Client) onTargetCreated(_ string, params json.RawMessage) {
	var ev struct {
		TargetInfo target.Info `json:"targetInfo"`
	}
	if json.Unmarshal(params, &ev) != nil || ev.TargetInfo.Type != "page" {
		return
	}
	c.spawn(func(ctx context.Context) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CDPTimeout)
		defer cancel()
		if err := c.attach(callCtx, ev.TargetInfo.TargetID, ev.TargetInfo.URL); err != nil {
			slog.Warn("Failed to attach to new tab", "target_id", ev.TargetInfo.TargetID, "error", err)
		}
	})
}

func (c *Client) onTargetInfoChanged(_ string, params json.RawMessage) {
	var ev struct {
		TargetInfo target.Info `json:"targetInfo"`
	}
	if json.Unmarshal(params, &ev) != nil {
		return
	}
	c.registry.UpdateURL(ev.TargetInfo.TargetID, ev.TargetInfo.URL)
}

func (c *Client) onTargetDestroyed(_ string, params json.RawMessage) {
	var ev struct {
		TargetID target.ID `json:"targetId"`
	}
	if json.Unmarshal(params, &ev) != nil {
		return
	}
	c.removeTab(ev.TargetID)
}

func (c *Client) onDetachedFromTarget(_ string, params json.RawMessage) {
	var ev struct {
		SessionID string    `json:"sessionId"`
		TargetID  target.ID `json:"targetId"`
	}
	if json.Unmarshal(params, &ev) != nil {
		return
	}
	targetID := ev.TargetID
	if targetID == "" {
		var ok bool
		if targetID, ok = c.targetForSession(ev.SessionID); !ok {
			return
		}
	}
	c.removeTab(targetID)
}

// removeTab is the tab-closed path: it runs synchronously so the tracker
// entry is gone before any later event for a reused ID.
func (c *Client) removeTab(targetID target.ID) {
	tabID, ok := c.forget(targetID)
	if !ok {
		return
	}
	slog.Info("Tab closed", "tab_id", tabID, "target_id", targetID)
	if c.handler != nil {
		c.handler.TabRemoved(tabID)
	}
	c.tabsChanged()
}

func (c *Client) onRequestWillBeSent(sessionID string, params json.RawMessage) {
	targetID, ok := c.targetForSession(sessionID)
	if !ok {
		return
	}
	var ev requestWillBeSent
	if json.Unmarshal(params, &ev) != nil {
		return
	}
	if nav, ok := beforeNavigateEvent(c.registry, targetID, ev); ok {
		c.dispatch(nav)
	}
}

func (c *Client) onFrameStoppedLoading(sessionID string, params json.RawMessage) {
	targetID, ok := c.targetForSession(sessionID)
	if !ok {
		return
	}
	var ev struct {
		FrameID cdptypes.FrameID `json:"frameId"`
	}
	if json.Unmarshal(params, &ev) != nil {
		return
	}
	if nav, ok := frameEvent(c.registry, types.HookCompleted, targetID, ev.FrameID, ""); ok {
		c.dispatch(nav)
	}
}

func (c *Client) onNavigatedWithinDocument(sessionID string, params json.RawMessage) {
	targetID, ok := c.targetForSession(sessionID)
	if !ok {
		return
	}
	var ev struct {
		FrameID cdptypes.FrameID `json:"frameId"`
		URL     string           `json:"url"`
	}
	if json.Unmarshal(params, &ev) != nil {
		return
	}
	if nav, ok := frameEvent(c.registry, types.HookHistoryStateUpdated, targetID, ev.FrameID, ev.URL); ok {
		c.dispatch(nav)
	}
}

// dispatch hands ev to the handler on its own goroutine; CDP listeners run on
// the read loop and must never block it.
func (c *Client) dispatch(ev types.NavigationEvent) {
	if c.handler == nil {
		return
	}
	c.spawn(func(ctx context.Context) {
		if err := c.handler.Dispatch(ctx, ev); err != nil {
			slog.Warn("cdp: navigation event dropped", "hook", ev.Hook, "tab_id", ev.TabID, "error", err)
		}
	})
}

func (c *Client) spawn(fn func(ctx context.Context)) {
	if c.ctx == nil || c.ctx.Err() != nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

// CurrentURL returns the committed URL of a tab as the browser reports it.
func (c *Client) CurrentURL(ctx context.Context, tabID int) (string, error) {
	targetID, ok := c.registry.TargetID(tabID)
	if !ok {
		return "", fmt.Errorf("tab %d: %w", tabID, ErrUnknownTab)
	}
	var res struct {
		TargetInfo target.Info `json:"targetInfo"`
	}
	params := map[string]any{"targetId": targetID}
	if err := c.conn.call(ctx, "", target.CommandGetTargetInfo, params, &res); err != nil {
		return "", err
	}
	c.registry.UpdateURL(targetID, res.TargetInfo.URL)
	return res.TargetInfo.URL, nil
}

// Navigate replaces the tab's URL without waiting for the load to finish.
func (c *Client) Navigate(ctx context.Context, tabID int, url string) error {
	targetID, ok := c.registry.TargetID(tabID)
	if !ok {
		return fmt.Errorf("tab %d: %w", tabID, ErrUnknownTab)
	}
	c.mu.RLock()
	sessionID, ok := c.sessions[targetID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tab %d: %w", tabID, ErrUnknownTab)
	}

	var res struct {
		ErrorText string `json:"errorText"`
	}
	if err := c.conn.call(ctx, sessionID, page.CommandNavigate, map[string]any{"url": url}, &res); err != nil {
		return err
	}
	if res.ErrorText != "" {
		return fmt.Errorf("navigate: %s", res.ErrorText)
	}
	return nil
}

// Tabs lists attached tabs.
func (c *Client) Tabs() []types.TabInfo {
	return c.registry.List()
}

// Close detaches from every tab, leaving the tabs themselves open, and
// drops the browser connection.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	sessions := make([]string, 0, len(c.sessions))
	for _, sid := range c.sessions {
		sessions = append(sessions, sid)
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, sid := range sessions {
		if err := c.conn.call(ctx, "", target.CommandDetachFromTarget, map[string]any{"sessionId": sid}, nil); err != nil {
			slog.Debug("Failed to detach from tab", "session_id", sid, "error", err)
		}
	}

	c.conn.close()
	c.wg.Wait()
	slog.Info("CDP client closed")
	return nil
}

func (c *Client) tabsChanged() {
	if c.onTabsChanged != nil {
		c.onTabsChanged(c.registry.Count())
	}
}
