// Package notify keeps short-lived user notifications such as export errors.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a notification stays visible
const DefaultTTL = 5 * time.Second

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EventKind string

const (
	EventPushed    EventKind = "notification.pushed"
	EventDismissed EventKind = "notification.dismissed"
)

type Event struct {
	Kind         EventKind    `json:"kind"`
	Notification Notification `json:"notification"`
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Center stores active notifications and removes each one after the TTL
type Center struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	subMu     sync.RWMutex
	listeners map[int]func(Event)
	nextSub   int
}

func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		ttl:       ttl,
		now:       time.Now,
		entries:   make(map[string]*entry),
		listeners: make(map[int]func(Event)),
	}
}

// Push shows a notification and schedules its removal
func (c *Center) Push(level Level, message string) Notification {
	now := c.now()
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	e := &entry{n: n}
	c.entries[n.ID] = e
	e.timer = time.AfterFunc(c.ttl, func() { c.Dismiss(n.ID) })
	c.mu.Unlock()

	c.publish(Event{Kind: EventPushed, Notification: n})
	return n
}

// List returns active notifications, oldest first
func (c *Center) List() []Notification {
	c.mu.Lock()
	out := make([]Notification, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.n)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Dismiss removes a notification early. It reports false if it was already gone.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
		e.timer.Stop()
	}
	c.mu.Unlock()

	if ok {
		c.publish(Event{Kind: EventDismissed, Notification: e.n})
	}
	return ok
}

// Subscribe registers fn for push and dismiss events
func (c *Center) Subscribe(fn func(Event)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.listeners, id)
		c.subMu.Unlock()
	}
}

func (c *Center) publish(evt Event) {
	c.subMu.RLock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
