// Package queue holds the shared state of an upload session: the items
// still waiting for a worker and the filekeys that finished uploading.
package queue

import "sync"

// Pending is a double-ended queue of items safe for concurrent use.
// Items are taken from the front; Pop never blocks.
type Pending struct {
	mu    sync.Mutex
	items []Item
}

// NewPending creates an empty pending queue
func NewPending() *Pending {
	return &Pending{}
}

// Push appends items to the back of the queue
func (q *Pending) Push(items ...Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, items...)
}

// Pop removes the item at the front of the queue.
// It reports false when the queue is empty.
func (q *Pending) Pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, false
	}

	item := q.items[0]
	q.items[0] = Item{}
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of items still queued
func (q *Pending) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Clear drops every queued item
func (q *Pending) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
}

// Completed records filekeys that finished uploading, in completion order.
// It only backs the progress count; duplicates are kept.
type Completed struct {
	mu   sync.RWMutex
	keys []string
}

// NewCompleted creates an empty completed set
func NewCompleted() *Completed {
	return &Completed{}
}

// Add records a finished filekey and returns the new count
func (c *Completed) Add(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.keys = append(c.keys, key)
	return len(c.keys)
}

// Len returns the number of recorded filekeys
func (c *Completed) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.keys)
}

// Keys returns a copy of the recorded filekeys
func (c *Completed) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Clear forgets every recorded filekey
func (c *Completed) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.keys = nil
}
