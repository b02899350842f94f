// Package singleflight coalesces concurrent calls that share a key, so
// duplicate in-flight work collapses onto a single execution.
package singleflight

import (
	"sync"
	"time"
)

// Group manages in-flight calls by key. The zero value is not usable;
// construct with New.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

type call struct {
	wg  sync.WaitGroup
	val interface{}
	err error
}

// New creates an empty Group.
func New() *Group {
	return &Group{m: make(map[string]*call)}
}

// Do invokes fn, ensuring only one execution per key is in flight at a
// time. Callers arriving while an execution runs wait for it and receive
// the same results; shared reports whether the result came from another
// caller's execution.
func (g *Group) Do(key string, fn func() (interface{}, error)) (val interface{}, err error, shared bool) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	// Entries linger briefly so duplicates racing the completion still
	// coalesce, then get dropped to bound memory.
	go func() {
		time.Sleep(100 * time.Millisecond)
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
	}()

	return c.val, c.err, false
}
