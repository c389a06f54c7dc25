// Package progress broadcasts build progress per project. The latest
// event of every project is kept after its subscribers are gone, so a
// late subscriber sees the current state at once. Finished events are
// retained up to a count and an age; in-flight ones are always kept.
package progress

import (
	"sort"
	"sync"
	"time"
)

// Status is the state of a build.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Finished reports whether s ends a build.
func (s Status) Finished() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Event is one progress report.
type Event struct {
	Status  Status    `json:"status"`
	Step    string    `json:"step"`
	Percent int       `json:"percent"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// subscriberBuffer bounds how far a slow subscriber may fall behind.
// When it is full the oldest pending event is dropped.
const subscriberBuffer = 32

// Default retention of finished events.
const (
	DefaultRetainedFinished = 1000
	DefaultFinishedMaxAge   = 24 * time.Hour
)

// Hub fans progress events out to subscribers, keyed by project.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	latest map[string]Event
	now    func() time.Time

	maxFinished int
	maxAge      time.Duration
}

// NewHub creates an empty Hub with the default retention.
func NewHub() *Hub {
	return &Hub{
		subs:        make(map[string]map[chan Event]struct{}),
		latest:      make(map[string]Event),
		now:         time.Now,
		maxFinished: DefaultRetainedFinished,
		maxAge:      DefaultFinishedMaxAge,
	}
}

// SetRetention bounds the finished events kept for late subscribers.
// A non-positive value leaves that bound unchanged.
func (h *Hub) SetRetention(maxFinished int, maxAge time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if maxFinished > 0 {
		h.maxFinished = maxFinished
	}
	if maxAge > 0 {
		h.maxAge = maxAge
	}
	h.prune()
}

// Publish records e as the latest event of key and delivers it. A
// finished event closes and drops every subscriber of key.
func (h *Hub) Publish(key string, e Event) {
	if e.Percent < 0 {
		e.Percent = 0
	}
	if e.Percent > 100 {
		e.Percent = 100
	}
	if e.At.IsZero() {
		e.At = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest[key] = e
	for ch := range h.subs[key] {
		deliver(ch, e)
	}
	if e.Status.Finished() {
		for ch := range h.subs[key] {
			close(ch)
		}
		delete(h.subs, key)
		h.prune()
	}
}

// prune drops finished events past maxAge, then the oldest ones over
// maxFinished. Callers hold h.mu.
func (h *Hub) prune() {
	cutoff := h.now().Add(-h.maxAge)
	var finished []string
	for k, e := range h.latest {
		if !e.Status.Finished() {
			continue
		}
		if e.At.Before(cutoff) {
			delete(h.latest, k)
			continue
		}
		finished = append(finished, k)
	}
	if len(finished) <= h.maxFinished {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return h.latest[finished[i]].At.Before(h.latest[finished[j]].At)
	})
	for _, k := range finished[:len(finished)-h.maxFinished] {
		delete(h.latest, k)
	}
}

// deliver never blocks the publisher.
func deliver(ch chan Event, e Event) {
	select {
	case ch <- e:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- e:
	default:
	}
}

// MarkWaiting reports that a build was requested but has not started.
func (h *Hub) MarkWaiting(key string) {
	h.Publish(key, Event{Status: StatusWaiting, Step: "waiting", Percent: 0})
}

// Latest returns the last event published for key.
func (h *Hub) Latest(key string) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.latest[key]
	return e, ok
}

// Subscribe returns a channel of key's events, starting with the latest
// one if any. The channel is closed after a finished event, or when
// cancel is called. If the latest event is already finished the channel
// carries just that event.
func (h *Hub) Subscribe(key string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.latest[key]; ok {
		ch <- e
		if e.Status.Finished() {
			close(ch)
			return ch, func() {}
		}
	}

	if h.subs[key] == nil {
		h.subs[key] = make(map[chan Event]struct{})
	}
	h.subs[key][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, still := h.subs[key][ch]; still {
				delete(h.subs[key], ch)
				close(ch)
				if len(h.subs[key]) == 0 {
					delete(h.subs, key)
				}
			}
		})
	}
	return ch, cancel
}

// Subscribers counts the open subscriptions of key.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// Snapshot copies the latest event of every key.
func (h *Hub) Snapshot() map[string]Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]Event, len(h.latest))
	for k, e := range h.latest {
		out[k] = e
	}
	return out
}
