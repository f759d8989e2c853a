package types

import "time"

// DecisionRecord describes one evaluated navigation that reached the
// decision function.
type DecisionRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	Hook          Hook      `json:"hook"`
	TabID         int       `json:"tab_id"`
	URL           string    `json:"url"`
	Outcome       string    `json:"outcome"`
	Target        string    `json:"target,omitempty"`
	MatchedDomain string    `json:"matched_domain,omitempty"`
	Error         string    `json:"error,omitempty"`
}
