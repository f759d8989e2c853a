package relay

import (
	"encoding/json"
	"testing"

	"github.com/dgnsrekt/archive_redirector/internal/types"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	id1, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()
	if b.ClientCount() != 2 {
		t.Fatalf("ClientCount() = %d; want 2", b.ClientCount())
	}

	b.Publish(Event{Kind: "redirect", Payload: "x"})
	if evt := <-ch1; evt.Kind != "redirect" {
		t.Fatalf("ch1 event = %+v", evt)
	}
	if evt := <-ch2; evt.Payload != "x" {
		t.Fatalf("ch2 event = %+v", evt)
	}

	b.Unsubscribe(id1)
	b.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Fatal("unsubscribed channel still open")
	}
	if b.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d; want 1", b.ClientCount())
	}
}

func TestBrokerDropsForSlowClients(t *testing.T) {
	b := NewBroker()
	b.Subscribe()
	for i := 0; i < subscriberBufSize+5; i++ {
		b.Publish(Event{Kind: "no_match"})
	}
	if got := b.Dropped(); got != 5 {
		t.Fatalf("Dropped() = %d; want 5", got)
	}
}

func TestDecisionPublisher(t *testing.T) {
	b := NewBroker()
	p := NewDecisionPublisher(b)

	// No clients: nothing to deliver, nothing dropped.
	p.RecordDecision(types.DecisionRecord{Outcome: "redirect"})
	if b.Dropped() != 0 {
		t.Fatal("publish without clients should be skipped")
	}

	_, ch := b.Subscribe()
	p.RecordDecision(types.DecisionRecord{Hook: types.HookBeforeNavigate, TabID: 3, URL: "https://example.com/a", Outcome: "redirect", Target: "https://archive.is/newest/https://example.com/a"})

	evt := <-ch
	if evt.Kind != "redirect" {
		t.Fatalf("event kind = %q; want redirect", evt.Kind)
	}
	var rec types.DecisionRecord
	if err := json.Unmarshal([]byte(evt.Payload), &rec); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if rec.TabID != 3 || rec.Target == "" {
		t.Fatalf("payload = %+v", rec)
	}
}

func TestConnectHook(t *testing.T) {
	var connects, disconnects int
	b := NewBroker(WithConnectHook(func(transport string) func() {
		if transport != "sse" {
			t.Fatalf("transport = %q; want sse", transport)
		}
		connects++
		return func() { disconnects++ }
	}))
	b.connected("sse")()
	if connects != 1 || disconnects != 1 {
		t.Fatalf("connects/disconnects = %d/%d; want 1/1", connects, disconnects)
	}
}
