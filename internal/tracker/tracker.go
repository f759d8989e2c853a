// Package tracker remembers, per browser tab, which URLs have already been
// handled so a redirect is never evaluated twice for the same tab.
package tracker

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultCleanupDelay bounds how long a tab's entry lives after a redirect.
const DefaultCleanupDelay = 60 * time.Second

// Timer is the handle returned by an AfterFunc implementation.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d. time.AfterFunc satisfies it through
// stdAfterFunc; tests substitute a manual clock.
type AfterFunc func(d time.Duration, fn func()) Timer

func stdAfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// URLSet is a snapshot of the URLs handled for one tab.
type URLSet map[string]struct{}

// Has reports membership.
func (s URLSet) Has(url string) bool {
	_, ok := s[url]
	return ok
}

// TabState summarises one tab's entry for status output.
type TabState struct {
	TabID          int      `json:"tab_id"`
	URLs           []string `json:"urls"`
	PendingCleanup int      `json:"pending_cleanup"`
}

type entry struct {
	urls   URLSet
	timers map[uint64]Timer
}

// Tracker maps tab IDs to the set of URLs already handled in that tab.
type Tracker struct {
	mu        sync.Mutex
	tabs      map[int]*entry
	afterFunc AfterFunc
	nextTimer uint64
	onChange  func(tabs int)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithAfterFunc replaces the timer source.
func WithAfterFunc(fn AfterFunc) Option {
	return func(t *Tracker) { t.afterFunc = fn }
}

// WithOnChange registers a callback invoked with the number of tracked tabs
// whenever an entry is created or removed. It runs with the lock released.
func WithOnChange(fn func(tabs int)) Option {
	return func(t *Tracker) { t.onChange = fn }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		tabs:      make(map[int]*entry),
		afterFunc: stdAfterFunc,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetOrCreate returns a copy of the tab's set, creating an empty entry when
// the tab is not tracked yet.
func (t *Tracker) GetOrCreate(tabID int) URLSet {
	t.mu.Lock()
	e, created := t.entryLocked(tabID)
	out := make(URLSet, len(e.urls))
	for u := range e.urls {
		out[u] = struct{}{}
	}
	n := len(t.tabs)
	t.mu.Unlock()

	if created {
		t.changed(n)
	}
	return out
}

// Seen creates the tab's entry if needed and reports whether url was already
// handled for it. Unlike GetOrCreate it does not copy the set.
func (t *Tracker) Seen(tabID int, url string) bool {
	t.mu.Lock()
	e, created := t.entryLocked(tabID)
	ok := e.urls.Has(url)
	n := len(t.tabs)
	t.mu.Unlock()

	if created {
		t.changed(n)
	}
	return ok
}

// Has reports whether url was handled for tabID. It never creates an entry.
func (t *Tracker) Has(tabID int, url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.tabs[tabID]
	if !ok {
		return false
	}
	return e.urls.Has(url)
}

// MarkHandled records urls for tabID, creating the entry if needed.
func (t *Tracker) MarkHandled(tabID int, urls ...string) {
	t.mu.Lock()
	e, created := t.entryLocked(tabID)
	for _, u := range urls {
		if u != "" {
			e.urls[u] = struct{}{}
		}
	}
	n := len(t.tabs)
	t.mu.Unlock()

	if created {
		t.changed(n)
	}
}

// Clear drops the tab's entry and stops its pending cleanups. Clearing an
// untracked tab is a no-op.
func (t *Tracker) Clear(tabID int) {
	t.mu.Lock()
	e, ok := t.tabs[tabID]
	if !ok {
		t.mu.Unlock()
		return
	}
	for _, timer := range e.timers {
		timer.Stop()
	}
	delete(t.tabs, tabID)
	n := len(t.tabs)
	t.mu.Unlock()

	slog.Debug("tracker cleared tab", "tab_id", tabID)
	t.changed(n)
}

// ScheduleCleanup clears tabID after delay if it is still tracked. Several
// schedules for the same tab may be pending at once; each fires on its own.
func (t *Tracker) ScheduleCleanup(tabID int, delay time.Duration) {
	if delay <= 0 {
		delay = DefaultCleanupDelay
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.tabs[tabID]
	if !ok {
		return
	}
	t.nextTimer++
	id := t.nextTimer
	e.timers[id] = t.afterFunc(delay, func() { t.expire(tabID, id) })
}

func (t *Tracker) expire(tabID int, timerID uint64) {
	t.mu.Lock()
	e, ok := t.tabs[tabID]
	if !ok {
		t.mu.Unlock()
		return
	}
	// A timer that lost a race with Clear must not remove a newer entry.
	if _, mine := e.timers[timerID]; !mine {
		t.mu.Unlock()
		return
	}
	delete(e.timers, timerID)
	for _, timer := range e.timers {
		timer.Stop()
	}
	delete(t.tabs, tabID)
	n := len(t.tabs)
	t.mu.Unlock()

	slog.Debug("tracker expired tab", "tab_id", tabID)
	t.changed(n)
}

// Len returns the number of tracked tabs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tabs)
}

// Snapshot returns every tracked tab, ordered by tab ID.
func (t *Tracker) Snapshot() []TabState {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TabState, 0, len(t.tabs))
	for id, e := range t.tabs {
		urls := make([]string, 0, len(e.urls))
		for u := range e.urls {
			urls = append(urls, u)
		}
		sort.Strings(urls)
		out = append(out, TabState{TabID: id, URLs: urls, PendingCleanup: len(e.timers)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

// Close stops every pending cleanup and forgets all tabs.
func (t *Tracker) Close() {
	t.mu.Lock()
	for _, e := range t.tabs {
		for _, timer := range e.timers {
			timer.Stop()
		}
	}
	t.tabs = make(map[int]*entry)
	t.mu.Unlock()
	t.changed(0)
}

func (t *Tracker) entryLocked(tabID int) (*entry, bool) {
	if e, ok := t.tabs[tabID]; ok {
		return e, false
	}
	e := &entry{urls: make(URLSet), timers: make(map[uint64]Timer)}
	t.tabs[tabID] = e
	return e, true
}

func (t *Tracker) changed(n int) {
	if t.onChange != nil {
		t.onChange(n)
	}
}
