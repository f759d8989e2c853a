package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

var errNotConnected = errors.New("cdp: not connected")

// ProtocolError is an error response returned by the browser for a command.
type ProtocolError struct {
	Method  string
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("cdp: %s: %s (%d)", e.Method, e.Message, e.Code)
}

// conn is a single browser-level WebSocket with flattened target sessions.
// Commands for a page are sent with that page's session ID in the envelope;
// browser commands use an empty session ID.
type conn struct {
	httpBase string // e.g. "http://127.0.0.1:9220"

	mu   sync.Mutex
	ws   net.Conn
	seq  atomic.Int64
	done chan struct{}

	pending   map[int64]chan message
	pendingMu sync.Mutex

	eventMu  sync.RWMutex
	handlers map[string][]eventHandler
}

type eventHandler struct {
	id int64
	fn func(sessionID string, params json.RawMessage)
}

type message struct {
	ID        int64           `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newConn(httpBase string) *conn {
	return &conn{
		httpBase: strings.TrimRight(httpBase, "/"),
		pending:  make(map[int64]chan message),
		handlers: make(map[string][]eventHandler),
		done:     make(chan struct{}),
	}
}

// connect dials the browser-level WebSocket endpoint.
func (c *conn) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws != nil {
		return nil
	}

	wsURL, err := c.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("cdp: browser ws url: %w", err)
	}

	slog.Debug("cdp connecting", "ws_url", wsURL)
	netConn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("cdp: dial: %w", err)
	}

	c.ws = netConn
	go c.readLoop(netConn)
	return nil
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
}

// closed is closed once the read loop exits.
func (c *conn) closed() <-chan struct{} {
	return c.done
}

func (c *conn) readLoop(netConn net.Conn) {
	defer close(c.done)
	defer c.closeAllPending()

	for {
		data, err := wsutil.ReadServerText(netConn)
		if err != nil {
			slog.Debug("cdp read loop exit", "error", err)
			return
		}

		var msg message
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		if msg.ID > 0 {
			c.pendingMu.Lock()
			ch, ok := c.pending[msg.ID]
			if ok {
				delete(c.pending, msg.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- msg
			}
		} else if msg.Method != "" {
			c.dispatchEvent(msg.Method, msg.SessionID, msg.Params)
		}
	}
}

func (c *conn) closeAllPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *conn) deletePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// call sends method on sessionID (empty for the browser) and decodes the
// result into out when out is non-nil.
func (c *conn) call(ctx context.Context, sessionID, method string, params, out any) error {
	c.mu.Lock()
	netConn := c.ws
	c.mu.Unlock()
	if netConn == nil {
		return errNotConnected
	}

	id := c.seq.Add(1)
	req := struct {
		ID        int64  `json:"id"`
		Method    string `json:"method"`
		SessionID string `json:"sessionId,omitempty"`
		Params    any    `json:"params,omitempty"`
	}{ID: id, Method: method, SessionID: sessionID, Params: params}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("cdp: marshal %s: %w", method, err)
	}

	ch := make(chan message, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.mu.Lock()
	err = wsutil.WriteClientText(netConn, data)
	c.mu.Unlock()
	if err != nil {
		c.deletePending(id)
		return fmt.Errorf("cdp: send %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("cdp: %s: connection closed", method)
		}
		if resp.Error != nil {
			return &ProtocolError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("cdp: unmarshal %s: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		c.deletePending(id)
		return ctx.Err()
	}
}

// on registers a handler for a CDP event method (e.g.
// "Page.frameStoppedLoading"). Handlers run on the read loop and must not
// block or issue commands synchronously. Returns an unregister function.
func (c *conn) on(method string, fn func(sessionID string, params json.RawMessage)) func() {
	id := c.seq.Add(1)
	c.eventMu.Lock()
	c.handlers[method] = append(c.handlers[method], eventHandler{id: id, fn: fn})
	c.eventMu.Unlock()
	return func() {
		c.eventMu.Lock()
		defer c.eventMu.Unlock()
		handlers := c.handlers[method]
		for i, h := range handlers {
			if h.id == id {
				c.handlers[method] = append(handlers[:i], handlers[i+1:]...)
				break
			}
		}
	}
}

func (c *conn) dispatchEvent(method, sessionID string, params json.RawMessage) {
	c.eventMu.RLock()
	handlers := make([]eventHandler, len(c.handlers[method]))
	copy(handlers, c.handlers[method])
	c.eventMu.RUnlock()
	for _, h := range handlers {
		h.fn(sessionID, params)
	}
}

// browserWSURL fetches the WebSocket debugger URL from /json/version.
func (c *conn) browserWSURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.httpBase+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cdp: /json/version: HTTP %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}
