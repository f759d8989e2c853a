package types

// Hook names the navigation lifecycle point an event was observed at.
type Hook string

const (
	HookBeforeNavigate      Hook = "before_navigate"
	HookCompleted           Hook = "completed"
	HookHistoryStateUpdated Hook = "history_state_updated"
)

// NavigationEvent is a single navigation lifecycle notification for a tab.
// FrameID 0 is the top-level frame. URL may be empty for hooks whose
// payload does not carry it reliably.
type NavigationEvent struct {
	Hook    Hook   `json:"hook"`
	TabID   int    `json:"tab_id"`
	FrameID int    `json:"frame_id"`
	URL     string `json:"url,omitempty"`
}
