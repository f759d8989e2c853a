package types

// TabInfo holds metadata about an attached browser tab.
// TabID is the stable integer handle used by the interceptor; TargetID is
// the CDP target it maps to.
type TabInfo struct {
	TabID    int    `json:"tab_id"`
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
}
