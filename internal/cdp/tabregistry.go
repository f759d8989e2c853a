package cdp

import (
	"sort"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"

	"github.com/dgnsrekt/archive_redirector/internal/types"
)

// TabRegistry maps CDP target IDs to stable integer tab IDs and tab metadata.
type TabRegistry struct {
	tabs   map[target.ID]*tabEntry
	byTab  map[int]target.ID
	nextID int
	mu     sync.RWMutex
}

type tabEntry struct {
	info      types.TabInfo
	frames    map[cdp.FrameID]int
	nextFrame int
}

func NewTabRegistry() *TabRegistry {
	return &TabRegistry{
		tabs:  make(map[target.ID]*tabEntry),
		byTab: make(map[int]target.ID),
	}
}

// Register records targetID, assigning a new tab ID the first time it is
// seen. Registering a known target only refreshes its URL.
func (r *TabRegistry) Register(targetID target.ID, url string) types.TabInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.tabs[targetID]; ok {
		if url != "" {
			e.info.URL = url
		}
		return e.info
	}

	r.nextID++
	e := &tabEntry{
		info: types.TabInfo{
			TabID:    r.nextID,
			TargetID: string(targetID),
			URL:      url,
		},
		frames: make(map[cdp.FrameID]int),
	}
	r.tabs[targetID] = e
	r.byTab[e.info.TabID] = targetID
	return e.info
}

// UpdateURL refreshes the last known URL of a registered target.
func (r *TabRegistry) UpdateURL(targetID target.ID, url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tabs[targetID]
	if ok {
		e.info.URL = url
	}
	return ok
}

func (r *TabRegistry) Get(targetID target.ID) (*types.TabInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tabs[targetID]
	if !ok {
		return nil, false
	}
	info := e.info
	return &info, true
}

// TargetID resolves a tab ID back to its CDP target.
func (r *TabRegistry) TargetID(tabID int) (target.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTab[tabID]
	return id, ok
}

// FrameIndex returns the integer frame ID for a frame of targetID. The main
// frame of a page target shares the target's ID and is always 0; other
// frames are numbered from 1 in the order they are first seen. It returns
// -1 for unknown targets.
func (r *TabRegistry) FrameIndex(targetID target.ID, frameID cdp.FrameID) int {
	if string(frameID) == string(targetID) {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tabs[targetID]
	if !ok {
		return -1
	}
	if idx, ok := e.frames[frameID]; ok {
		return idx
	}
	e.nextFrame++
	e.frames[frameID] = e.nextFrame
	return e.nextFrame
}

// Remove forgets targetID and returns the tab ID it had.
func (r *TabRegistry) Remove(targetID target.ID) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tabs[targetID]
	if !ok {
		return 0, false
	}
	delete(r.tabs, targetID)
	delete(r.byTab, e.info.TabID)
	return e.info.TabID, true
}

// List returns all registered tabs ordered by tab ID.
func (r *TabRegistry) List() []types.TabInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.TabInfo, 0, len(r.tabs))
	for _, e := range r.tabs {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

func (r *TabRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}
