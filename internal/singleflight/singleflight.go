package singleflight

import (
	"sync"
	"time"
)

// Group admits at most one call per key. Unlike the classic singleflight
// pattern, a duplicate caller is rejected with ErrInProgress instead of
// waiting for the owner's result.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

type call struct {
	started time.Time
}

// New creates a new Group.
func New() *Group {
	return &Group{
		m: make(map[string]*call),
	}
}

// TryDo runs fn if no call with the same key is in progress. The key is
// released as soon as fn returns, even if fn panics, so a key can never be
// locked out permanently. The boolean reports whether fn was run.
func (g *Group) TryDo(key string, fn func() (interface{}, error)) (interface{}, error, bool) {
	c, ok := g.admit(key)
	if !ok {
		return nil, ErrInProgress, false
	}
	defer g.release(key, c)

	val, err := fn()
	return val, err, true
}

func (g *Group) admit(key string) (*call, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.m[key]; exists {
		return nil, false
	}
	c := &call{started: time.Now()}
	g.m[key] = c
	return c, true
}

func (g *Group) release(key string, c *call) {
	g.mu.Lock()
	// A ForgetKey/Reset may already have handed the key to a newer call.
	if g.m[key] == c {
		delete(g.m, key)
	}
	g.mu.Unlock()
}

// Started reports when the in-progress call for key was admitted.
func (g *Group) Started(key string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.m[key]
	if !ok {
		return time.Time{}, false
	}
	return c.started, true
}

// Len returns the number of calls currently in progress.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}

// ForgetKey removes the key from the group, allowing a new call with the
// same key to be admitted while the old one is still running.
func (g *Group) ForgetKey(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// Reset forgets every in-progress key.
func (g *Group) Reset() {
	g.mu.Lock()
	g.m = make(map[string]*call)
	g.mu.Unlock()
}
