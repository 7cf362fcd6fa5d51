package graph

import (
	"fmt"
	"sync"
)

// Context carries state shared by the units of one application, such as
// the counters used to give units and display windows distinct names. Pass
// the same Context to every unit that should share the numbering.
type Context struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{counters: make(map[string]int)}
}

// NextID returns kind followed by the next number for kind, starting at 0:
// "unit-0", "unit-1", "window-0".
func (c *Context) NextID(kind string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.counters[kind]
	c.counters[kind] = n + 1
	return fmt.Sprintf("%s-%d", kind, n)
}

// Count returns how many ids were handed out for kind.
func (c *Context) Count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[kind]
}

var defaultContext = NewContext()

// DefaultContext is used by units created without WithContext.
func DefaultContext() *Context { return defaultContext }
