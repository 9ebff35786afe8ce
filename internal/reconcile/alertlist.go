package reconcile

import (
	"sync"

	"farmwatch/internal/model"
)

// FilterMode selects which alerts the list view holds.
type FilterMode string

const (
	FilterActive FilterMode = "active" // unresolved only
	FilterAll    FilterMode = "all"
)

// AlertList is the canonical in-memory alert collection plus the active
// filter mode. Reads get snapshots; subscribers are notified after every
// visible change.
type AlertList struct {
	mu     sync.Mutex
	alerts []model.Alert
	filter FilterMode

	subs    map[int]func([]model.Alert)
	nextSub int
}

// NewAlertList constructs an empty list in the given filter mode.
func NewAlertList(filter FilterMode) *AlertList {
	if filter == "" {
		filter = FilterActive
	}
	return &AlertList{filter: filter, subs: map[int]func([]model.Alert){}}
}

// Filter returns the current filter mode.
func (l *AlertList) Filter() FilterMode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// SetFilter switches the filter mode. The caller is expected to Refresh
// afterwards; the list itself is not re-derived locally.
func (l *AlertList) SetFilter(f FilterMode) {
	l.mu.Lock()
	l.filter = f
	l.mu.Unlock()
}

// Snapshot returns a copy of the collection.
func (l *AlertList) Snapshot() []model.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Alert(nil), l.alerts...)
}

// Subscribe registers a listener invoked with a snapshot after every
// change. The returned function unsubscribes.
func (l *AlertList) Subscribe(fn func([]model.Alert)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *AlertList) notify() {
	l.mu.Lock()
	snap := append([]model.Alert(nil), l.alerts...)
	fns := make([]func([]model.Alert), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(append([]model.Alert(nil), snap...))
	}
}

// Replace swaps in a freshly fetched collection.
func (l *AlertList) Replace(alerts []model.Alert) {
	l.mu.Lock()
	l.alerts = append([]model.Alert(nil), alerts...)
	l.mu.Unlock()
	l.notify()
}

// MarkResolved flips IsResolved on the alert in place. The transition is
// monotonic; marking an already-resolved alert is a no-op.
func (l *AlertList) MarkResolved(id int64, label string) {
	l.mu.Lock()
	changed := false
	for i := range l.alerts {
		if l.alerts[i].ID == id && !l.alerts[i].IsResolved {
			l.alerts[i].IsResolved = true
			l.alerts[i].Info.StatusLabel = label
			changed = true
		}
	}
	l.mu.Unlock()
	if changed {
		l.notify()
	}
}

// Remove drops the alert from the collection.
func (l *AlertList) Remove(id int64) {
	l.mu.Lock()
	kept := l.alerts[:0]
	removed := false
	for _, a := range l.alerts {
		if a.ID == id {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	l.alerts = kept
	l.mu.Unlock()
	if removed {
		l.notify()
	}
}

// RemoveResolved drops the alert only if it is marked resolved (the
// deferred removal path; a re-fetch may already have replaced the row).
func (l *AlertList) RemoveResolved(id int64) {
	l.mu.Lock()
	kept := l.alerts[:0]
	removed := false
	for _, a := range l.alerts {
		if a.ID == id && a.IsResolved {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	l.alerts = kept
	l.mu.Unlock()
	if removed {
		l.notify()
	}
}
