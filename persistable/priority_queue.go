// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package persistable

import (
	"sync"

	gods "github.com/Workiva/go-datastructures/queue"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/serialization"
)

// Ordered is implemented by priority queue items
type Ordered[T any] interface {
	// Less reports whether the receiver is served before other
	Less(other T) bool
}

// PriorityQueue is a bounded priority queue serving the least item first.
// Items of equal priority are served in insertion order. A capacity of
// zero means unbounded. The zero value is an empty unbounded queue.
//
// It persists its capacity and items; on restore, items beyond the
// capacity are dropped.
type PriorityQueue[T Ordered[T]] struct {
	mu         sync.Mutex
	underlying *gods.PriorityQueue
	capacity   int
	sequence   uint64
}

var _ serialization.Persistable = (*PriorityQueue[priorityInt])(nil)

// entry adapts an item to the underlying heap. The sequence number breaks
// ties so that no two entries compare equal. Entries are stored by pointer
// because the heap keys its bookkeeping map by item.
type entry[T Ordered[T]] struct {
	value    T
	sequence uint64
}

var _ gods.Item = (*entry[priorityInt])(nil)

// Compare implements gods.Item
func (e *entry[T]) Compare(other gods.Item) int {
	o := other.(*entry[T])
	switch {
	case e.value.Less(o.value):
		return -1
	case o.value.Less(e.value):
		return 1
	case e.sequence < o.sequence:
		return -1
	case e.sequence > o.sequence:
		return 1
	default:
		return 0
	}
}

type queueProjection[T any] struct {
	Capacity int `persist:"maxsize"`
	Items    []T `persist:"queue"`
}

// NewPriorityQueue creates a queue holding at most capacity items
func NewPriorityQueue[T Ordered[T]](capacity int) *PriorityQueue[T] {
	return &PriorityQueue[T]{capacity: max(capacity, 0)}
}

// Put adds an item. It returns errors.ErrQueueFull when the queue is at capacity.
func (q *PriorityQueue[T]) Put(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.put(item)
}

// Get removes and returns the least item. ok is false when the queue is empty.
func (q *PriorityQueue[T]) Get() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.underlying == nil || q.underlying.Empty() {
		return item, false
	}
	items, err := q.underlying.Get(1)
	if err != nil || len(items) == 0 {
		return item, false
	}
	return items[0].(*entry[T]).value, true
}

// Peek returns the least item without removing it
func (q *PriorityQueue[T]) Peek() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.underlying == nil || q.underlying.Empty() {
		return item, false
	}
	return q.underlying.Peek().(*entry[T]).value, true
}

// Len returns the number of queued items
func (q *PriorityQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.underlying == nil {
		return 0
	}
	return q.underlying.Len()
}

// Cap returns the capacity, zero meaning unbounded
func (q *PriorityQueue[T]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Items returns the queued items in serving order without removing them
func (q *PriorityQueue[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drainAndRefill()
}

// ToPersisted implements serialization.Persistable
func (q *PriorityQueue[T]) ToPersisted() (any, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return queueProjection[T]{Capacity: q.capacity, Items: q.drainAndRefill()}, nil
}

// FromPersisted implements serialization.Persistable
func (q *PriorityQueue[T]) FromPersisted(decode func(target any) error) error {
	var projection queueProjection[T]
	if err := decode(&projection); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.underlying != nil {
		q.underlying.Dispose()
	}
	q.underlying = nil
	q.sequence = 0
	q.capacity = max(projection.Capacity, 0)
	for _, item := range projection.Items {
		if err := q.put(item); err != nil {
			break
		}
	}
	return nil
}

// put must be called with mu held
func (q *PriorityQueue[T]) put(item T) error {
	if q.underlying == nil {
		q.underlying = gods.NewPriorityQueue(max(q.capacity, 1), true)
	}
	if q.capacity > 0 && q.underlying.Len() >= q.capacity {
		return errors.ErrQueueFull
	}
	q.sequence++
	return q.underlying.Put(&entry[T]{value: item, sequence: q.sequence})
}

// drainAndRefill returns every item in serving order, leaving the queue
// unchanged. It must be called with mu held.
func (q *PriorityQueue[T]) drainAndRefill() []T {
	if q.underlying == nil || q.underlying.Empty() {
		return nil
	}

	count := q.underlying.Len()
	drained, err := q.underlying.Get(count)
	if err != nil {
		return nil
	}

	items := make([]T, len(drained))
	for i, raw := range drained {
		items[i] = raw.(*entry[T]).value
	}
	_ = q.underlying.Put(drained...)
	return items
}

// priorityInt is used for compile-time interface checks
type priorityInt int

func (p priorityInt) Less(other priorityInt) bool { return p < other }
