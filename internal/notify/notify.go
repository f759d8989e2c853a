// Package notify pushes redirect notices to an ntfy-compatible endpoint.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/archive_redirector/internal/redirect"
	"github.com/dgnsrekt/archive_redirector/internal/types"
)

const sendTimeout = 5 * time.Second

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", "archive_redirector")
	req.Header.Set("Tags", "link")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

// Message renders the notice for a redirect decision.
func Message(rec types.DecisionRecord) string {
	return fmt.Sprintf("Tab %d: %s -> %s", rec.TabID, rec.URL, rec.Target)
}

// Notifier posts successful redirects. Sends run in the background and
// never hold up the navigation that triggered them.
type Notifier struct {
	endpoint string
	client   *http.Client
	wg       sync.WaitGroup
}

func NewNotifier(endpoint string, client *http.Client) *Notifier {
	return &Notifier{endpoint: endpoint, client: client}
}

// RecordDecision implements interceptor.Recorder.
func (n *Notifier) RecordDecision(rec types.DecisionRecord) {
	if rec.Outcome != redirect.Redirect.String() || rec.Error != "" {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := Send(ctx, n.client, n.endpoint, Message(rec)); err != nil {
			slog.Warn("redirect notification failed", "tab_id", rec.TabID, "error", err)
		}
	}()
}

// Close waits for in-flight sends.
func (n *Notifier) Close() {
	n.wg.Wait()
}
