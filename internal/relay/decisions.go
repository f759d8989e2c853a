package relay

import (
	"encoding/json"
	"log/slog"

	"github.com/dgnsrekt/archive_redirector/internal/types"
)

// DecisionPublisher publishes interceptor decisions to a Broker as JSON.
// It satisfies interceptor.Recorder.
type DecisionPublisher struct {
	broker *Broker
}

func NewDecisionPublisher(broker *Broker) *DecisionPublisher {
	return &DecisionPublisher{broker: broker}
}

// RecordDecision publishes rec under its outcome as the event kind.
func (p *DecisionPublisher) RecordDecision(rec types.DecisionRecord) {
	if p.broker.ClientCount() == 0 {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Debug("relay: marshal decision", "error", err)
		return
	}
	p.broker.Publish(Event{Kind: rec.Outcome, Payload: string(payload)})
}
