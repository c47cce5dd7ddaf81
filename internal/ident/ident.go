// Package ident mints record identities.
package ident

import (
	"errors"
	"math"
	"sync/atomic"
)

// ErrExhausted is returned once every representable identity has been issued.
var ErrExhausted = errors.New("identity space exhausted")

// Allocator hands out unique, strictly increasing identities.
// Implementations must be safe for concurrent use.
type Allocator interface {
	Next() (uint64, error)
}

// Counter is the process-wide Allocator. Construct one in the composition
// root and share it with every store that mints identities.
type Counter struct {
	next atomic.Uint64
}

var _ Allocator = (*Counter)(nil)

// NewCounter returns a Counter whose first identity is start.
func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.next.Store(start)
	return c
}

// Next returns the current value and advances the counter by one.
// The counter never wraps: math.MaxUint64 is reserved as the exhausted marker.
func (c *Counter) Next() (uint64, error) {
	for {
		cur := c.next.Load()
		if cur == math.MaxUint64 {
			return 0, ErrExhausted
		}
		if c.next.CompareAndSwap(cur, cur+1) {
			return cur, nil
		}
	}
}

// Current reports the identity the next call to Next would return.
func (c *Counter) Current() uint64 {
	return c.next.Load()
}
