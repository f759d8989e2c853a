package relay

import (
	"sync"
	"sync/atomic"
)

const subscriberBufSize = 256

// Event is a single decision published to stream clients.
type Event struct {
	Kind    string
	Payload string
}

// Broker fans out events to all subscribed SSE and WebSocket clients.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
	dropped     atomic.Int64
	onConnect   func(transport string) func()
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithConnectHook is called when a stream client connects; the returned
// func runs when it disconnects.
func WithConnectHook(fn func(transport string) func()) BrokerOption {
	return func(b *Broker) { b.onConnect = fn }
}

// NewBroker creates a new event broker.
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		subscribers: make(map[int64]chan Event),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new client. Returns the subscriber ID and a channel
// to receive events on. The channel is buffered; slow consumers will have
// events dropped.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers. Non-blocking: slow clients
// have events dropped.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped for slow clients.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Broker) connected(transport string) func() {
	if b.onConnect == nil {
		return func() {}
	}
	return b.onConnect(transport)
}
