package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dgnsrekt/archive_redirector/internal/config"
	"github.com/dgnsrekt/archive_redirector/internal/types"
)

type fakeCommand struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	SessionID string          `json:"sessionId"`
	Params    json.RawMessage `json:"params"`
}

// fakeBrowser speaks just enough CDP over a WebSocket to drive Client.
type fakeBrowser struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	conn     net.Conn
	commands []fakeCommand
	urls     map[string]string
	targets  []map[string]any
	ready    chan struct{}
}

func newFakeBrowser(t *testing.T) *fakeBrowser {
	t.Helper()
	fb := &fakeBrowser{
		t:     t,
		urls:  map[string]string{"T1": "https://start.example/"},
		ready: make(chan struct{}),
		targets: []map[string]any{
			{"targetId": "T1", "type": "page", "title": "start", "url": "https://start.example/", "attached": false, "canAccessOpener": false},
			{"targetId": "SW1", "type": "service_worker", "title": "", "url": "https://start.example/sw.js", "attached": false, "canAccessOpener": false},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"webSocketDebuggerUrl":"ws://%s/devtools/browser/fake"}`, r.Host)
	})
	mux.HandleFunc("/devtools/browser/fake", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		fb.mu.Lock()
		fb.conn = conn
		fb.mu.Unlock()
		close(fb.ready)
		fb.serve(conn)
	})
	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBrowser) config() *config.Config {
	host, port, _ := net.SplitHostPort(strings.TrimPrefix(fb.server.URL, "http://"))
	p, _ := strconv.Atoi(port)
	return &config.Config{CDPAddress: host, CDPPort: p, CDPTimeout: 2 * time.Second}
}

func (fb *fakeBrowser) serve(conn net.Conn) {
	defer conn.Close()
	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var cmd fakeCommand
		if json.Unmarshal(data, &cmd) != nil {
			continue
		}
		fb.mu.Lock()
		fb.commands = append(fb.commands, cmd)
		fb.mu.Unlock()
		fb.reply(cmd)
	}
}

func (fb *fakeBrowser) reply(cmd fakeCommand) {
	var result any = map[string]any{}
	switch cmd.Method {
	case "Target.getTargets":
		fb.mu.Lock()
		result = map[string]any{"targetInfos": fb.targets}
		fb.mu.Unlock()
	case "Target.attachToTarget":
		var p struct {
			TargetID string `json:"targetId"`
		}
		_ = json.Unmarshal(cmd.Params, &p)
		result = map[string]any{"sessionId": "S-" + p.TargetID}
	case "Target.getTargetInfo":
		var p struct {
			TargetID string `json:"targetId"`
		}
		_ = json.Unmarshal(cmd.Params, &p)
		fb.mu.Lock()
		url, ok := fb.urls[p.TargetID]
		fb.mu.Unlock()
		if !ok {
			fb.write(map[string]any{"id": cmd.ID, "error": map[string]any{"code": -32602, "message": "No target with given id found"}})
			return
		}
		result = map[string]any{"targetInfo": map[string]any{"targetId": p.TargetID, "type": "page", "title": "", "url": url, "attached": true, "canAccessOpener": false}}
	case "Page.navigate":
		var p struct {
			URL string `json:"url"`
		}
		_ = json.Unmarshal(cmd.Params, &p)
		if strings.HasPrefix(p.URL, "https://unreachable.") {
			result = map[string]any{"frameId": "T1", "errorText": "net::ERR_NAME_NOT_RESOLVED"}
		} else {
			result = map[string]any{"frameId": "T1", "loaderId": "L-nav"}
		}
	}
	fb.write(map[string]any{"id": cmd.ID, "result": result})
}

func (fb *fakeBrowser) write(v any) {
	data, _ := json.Marshal(v)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.conn != nil {
		_ = wsutil.WriteServerText(fb.conn, data)
	}
}

func (fb *fakeBrowser) emit(method, sessionID string, params any) {
	msg := map[string]any{"method": method, "params": params}
	if sessionID != "" {
		msg["sessionId"] = sessionID
	}
	fb.write(msg)
}

func (fb *fakeBrowser) sent(method string) []fakeCommand {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var out []fakeCommand
	for _, c := range fb.commands {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

type handlerCall struct {
	kind string
	ev   types.NavigationEvent
	tab  int
}

type recordingHandler struct {
	calls chan handlerCall
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{calls: make(chan handlerCall, 16)}
}

func (h *recordingHandler) Dispatch(_ context.Context, ev types.NavigationEvent) error {
	kind := map[types.Hook]string{
		types.HookBeforeNavigate:      "before",
		types.HookCompleted:           "completed",
		types.HookHistoryStateUpdated: "history",
	}[ev.Hook]
	h.calls <- handlerCall{kind: kind, ev: ev}
	return nil
}

func (h *recordingHandler) TabRemoved(tabID int) {
	h.calls <- handlerCall{kind: "removed", tab: tabID}
}

func (h *recordingHandler) next(t *testing.T) handlerCall {
	t.Helper()
	select {
	case c := <-h.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler call")
		return handlerCall{}
	}
}

func connectClient(t *testing.T) (*Client, *fakeBrowser, *recordingHandler) {
	t.Helper()
	fb := newFakeBrowser(t)
	h := newRecordingHandler()
	c := NewClient(fb.config(), NewTabRegistry())
	if err := c.Connect(context.Background(), h); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, fb, h
}

func TestConnectAttachesToPages(t *testing.T) {
	c, fb, _ := connectClient(t)

	tabs := c.Tabs()
	if len(tabs) != 1 || tabs[0].TargetID != "T1" || tabs[0].TabID != 1 {
		t.Fatalf("Tabs() = %+v; want only T1 as tab 1", tabs)
	}
	if n := len(fb.sent("Target.setDiscoverTargets")); n != 1 {
		t.Fatalf("setDiscoverTargets sent %d times; want 1", n)
	}
	for _, method := range []string{"Network.enable", "Page.enable"} {
		cmds := fb.sent(method)
		if len(cmds) != 1 || cmds[0].SessionID != "S-T1" {
			t.Fatalf("%s commands = %+v; want one on S-T1", method, cmds)
		}
	}
}

func TestEventsReachHandler(t *testing.T) {
	_, fb, h := connectClient(t)

	fb.emit("Network.requestWillBeSent", "S-T1", map[string]any{
		"requestId": "L1", "loaderId": "L1", "type": "Document", "frameId": "T1",
		"request": map[string]any{"url": "https://example.com/story"},
	})
	call := h.next(t)
	if call.kind != "before" || call.ev.TabID != 1 || call.ev.FrameID != 0 || call.ev.URL != "https://example.com/story" {
		t.Fatalf("first call = %+v; want before-navigate for tab 1", call)
	}

	fb.emit("Page.frameStoppedLoading", "S-T1", map[string]any{"frameId": "T1"})
	if call := h.next(t); call.kind != "completed" || call.ev.FrameID != 0 {
		t.Fatalf("second call = %+v; want completed main frame", call)
	}

	fb.emit("Page.navigatedWithinDocument", "S-T1", map[string]any{"frameId": "T1", "url": "https://example.com/story#2"})
	if call := h.next(t); call.kind != "history" || call.ev.URL != "https://example.com/story#2" {
		t.Fatalf("third call = %+v; want history update", call)
	}

	fb.emit("Target.targetDestroyed", "", map[string]any{"targetId": "T1"})
	if call := h.next(t); call.kind != "removed" || call.tab != 1 {
		t.Fatalf("fourth call = %+v; want removed tab 1", call)
	}
}

func TestEventsFromUnknownSessionIgnored(t *testing.T) {
	_, fb, h := connectClient(t)

	fb.emit("Page.frameStoppedLoading", "S-other", map[string]any{"frameId": "X"})
	fb.emit("Page.frameStoppedLoading", "S-T1", map[string]any{"frameId": "T1"})

	if call := h.next(t); call.kind != "completed" || call.ev.TabID != 1 {
		t.Fatalf("call = %+v; want only the known session's event", call)
	}
}

func TestTargetCreatedAttachesNewTab(t *testing.T) {
	c, fb, _ := connectClient(t)
	fb.mu.Lock()
	fb.urls["T2"] = "https://second.example/"
	fb.mu.Unlock()

	fb.emit("Target.targetCreated", "", map[string]any{"targetInfo": map[string]any{
		"targetId": "T2", "type": "page", "title": "", "url": "https://second.example/", "attached": false, "canAccessOpener": false,
	}})

	deadline := time.Now().Add(2 * time.Second)
	for len(c.Tabs()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Tabs() = %+v; want T2 attached", c.Tabs())
		}
		time.Sleep(10 * time.Millisecond)
	}
	got, err := c.CurrentURL(context.Background(), 2)
	if err != nil || got != "https://second.example/" {
		t.Fatalf("CurrentURL(2) = %q, %v", got, err)
	}
}

func TestCurrentURLAndNavigate(t *testing.T) {
	c, fb, _ := connectClient(t)

	fb.mu.Lock()
	fb.urls["T1"] = "https://example.com/committed"
	fb.mu.Unlock()
	got, err := c.CurrentURL(context.Background(), 1)
	if err != nil || got != "https://example.com/committed" {
		t.Fatalf("CurrentURL() = %q, %v", got, err)
	}

	if err := c.Navigate(context.Background(), 1, "https://archive.is/newest/https://example.com/a"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	navs := fb.sent("Page.navigate")
	if len(navs) != 1 || navs[0].SessionID != "S-T1" || !strings.Contains(string(navs[0].Params), "archive.is/newest") {
		t.Fatalf("Page.navigate commands = %+v", navs)
	}

	if err := c.Navigate(context.Background(), 1, "https://unreachable.example/"); err == nil {
		t.Fatal("Navigate() error = nil; want errorText surfaced")
	}

	if _, err := c.CurrentURL(context.Background(), 42); !errors.Is(err, ErrUnknownTab) {
		t.Fatalf("CurrentURL(42) error = %v; want ErrUnknownTab", err)
	}
	if err := c.Navigate(context.Background(), 42, "https://x/"); !errors.Is(err, ErrUnknownTab) {
		t.Fatalf("Navigate(42) error = %v; want ErrUnknownTab", err)
	}
}

func TestProtocolErrorSurfaced(t *testing.T) {
	c, fb, _ := connectClient(t)
	fb.mu.Lock()
	delete(fb.urls, "T1")
	fb.mu.Unlock()

	_, err := c.CurrentURL(context.Background(), 1)
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Method != "Target.getTargetInfo" {
		t.Fatalf("CurrentURL() error = %v; want ProtocolError", err)
	}
}

func TestCloseDetachesWithoutClosingTabs(t *testing.T) {
	fb := newFakeBrowser(t)
	c := NewClient(fb.config(), NewTabRegistry())
	if err := c.Connect(context.Background(), newRecordingHandler()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := len(fb.sent("Target.detachFromTarget")); n != 1 {
		t.Fatalf("detachFromTarget sent %d times; want 1", n)
	}
	if n := len(fb.sent("Target.closeTarget")); n != 0 {
		t.Fatalf("closeTarget sent %d times; want 0", n)
	}
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() not closed after Close()")
	}
}
