// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package forward

import (
	"container/heap"
	"sync"
	"time"
)

// Identifier is implemented by items held in a RetryQueue.
type Identifier interface {
	ID() string
}

// retryItem is a queued value and the time it becomes due.
type retryItem[T Identifier] struct {
	value T
	due   time.Time
	index int
}

// retryHeap orders items by due time, earliest first.
type retryHeap[T Identifier] []*retryItem[T]

func (h retryHeap[T]) Len() int           { return len(h) }
func (h retryHeap[T]) Less(i, j int) bool { return h[i].due.Before(h[j].due) }

func (h retryHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *retryHeap[T]) Push(x any) {
	item := x.(*retryItem[T])
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *retryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// RetryQueue is a thread-safe, time-ordered queue of pending retries.
// An ID already present in the queue is not queued twice.
type RetryQueue[T Identifier] struct {
	mu    sync.Mutex
	items retryHeap[T]
	ids   map[string]struct{}
	now   func() time.Time
}

// NewRetryQueue returns an empty queue.
func NewRetryQueue[T Identifier]() *RetryQueue[T] {
	return &RetryQueue[T]{
		ids: make(map[string]struct{}),
		now: time.Now,
	}
}

// Push schedules item to become due after delay. It reports false when an
// item with the same ID is already queued.
func (q *RetryQueue[T]) Push(item T, delay time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := item.ID()
	if _, ok := q.ids[id]; ok {
		return false
	}
	heap.Push(&q.items, &retryItem[T]{value: item, due: q.now().Add(delay)})
	q.ids[id] = struct{}{}
	return true
}

// PopDue removes and returns, earliest first, every item due at or before now.
func (q *RetryQueue[T]) PopDue(now time.Time) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []T
	for len(q.items) > 0 && !q.items[0].due.After(now) {
		item := heap.Pop(&q.items).(*retryItem[T])
		delete(q.ids, item.value.ID())
		due = append(due, item.value)
	}
	return due
}

// Len returns the number of queued items.
func (q *RetryQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Peek returns the earliest item and its due time without removing it.
func (q *RetryQueue[T]) Peek() (T, time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, time.Time{}, false
	}
	return q.items[0].value, q.items[0].due, true
}
