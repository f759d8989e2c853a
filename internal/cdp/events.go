package cdp

import (
	"encoding/json"

	cdptypes "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"

	"github.com/dgnsrekt/archive_redirector/internal/types"
)

// requestWillBeSent holds the Network.requestWillBeSent fields needed to
// spot the start of a document navigation.
type requestWillBeSent struct {
	RequestID network.RequestID    `json:"requestId"`
	LoaderID  cdptypes.LoaderID    `json:"loaderId"`
	Type      network.ResourceType `json:"type"`
	FrameID   cdptypes.FrameID     `json:"frameId"`
	Request   struct {
		URL string `json:"url"`
	} `json:"request"`
	RedirectResponse json.RawMessage `json:"redirectResponse,omitempty"`
}

// beforeNavigateEvent maps a document request to a BeforeNavigate event.
// A navigation's first request carries a request ID equal to its loader ID;
// redirect hops reuse the ID and carry the redirect response, so they are
// skipped.
func beforeNavigateEvent(reg *TabRegistry, targetID target.ID, ev requestWillBeSent) (types.NavigationEvent, bool) {
	if ev.Type != network.ResourceTypeDocument {
		return types.NavigationEvent{}, false
	}
	if string(ev.RequestID) != string(ev.LoaderID) {
		return types.NavigationEvent{}, false
	}
	if len(ev.RedirectResponse) > 0 && string(ev.RedirectResponse) != "null" {
		return types.NavigationEvent{}, false
	}
	return frameEvent(reg, types.HookBeforeNavigate, targetID, ev.FrameID, ev.Request.URL)
}

// frameEvent builds a NavigationEvent for a frame of targetID. Unknown
// targets yield false.
func frameEvent(reg *TabRegistry, hook types.Hook, targetID target.ID, frameID cdptypes.FrameID, url string) (types.NavigationEvent, bool) {
	info, ok := reg.Get(targetID)
	if !ok {
		return types.NavigationEvent{}, false
	}
	idx := reg.FrameIndex(targetID, frameID)
	if idx < 0 {
		return types.NavigationEvent{}, false
	}
	if idx == 0 && url != "" {
		reg.UpdateURL(targetID, url)
	}
	return types.NavigationEvent{Hook: hook, TabID: info.TabID, FrameID: idx, URL: url}, true
}
