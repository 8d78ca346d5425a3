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

	"github.com/tochemey/emustate/serialization"
)

// Guarded is a value protected by a mutex and a condition variable, for
// state that goroutines wait on. Only the value is persisted; the lock and
// the waiters belong to the running process.
type Guarded[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value T
}

var _ serialization.Persistable = (*Guarded[int])(nil)

// NewGuarded creates a Guarded holding value
func NewGuarded[T any](value T) *Guarded[T] {
	return &Guarded[T]{value: value}
}

// Do runs fn with exclusive access to the value
func (g *Guarded[T]) Do(fn func(value *T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
}

// Load returns a copy of the value
func (g *Guarded[T]) Load() T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Wait blocks until ready reports true. ready is evaluated with exclusive
// access to the value, after every Broadcast.
func (g *Guarded[T]) Wait(ready func(value *T) bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cond := g.condition()
	for !ready(&g.value) {
		cond.Wait()
	}
}

// Broadcast wakes every goroutine blocked in Wait
func (g *Guarded[T]) Broadcast() {
	g.mu.Lock()
	cond := g.condition()
	g.mu.Unlock()
	cond.Broadcast()
}

// ToPersisted implements serialization.Persistable
func (g *Guarded[T]) ToPersisted() (any, error) {
	return g.Load(), nil
}

// FromPersisted implements serialization.Persistable
func (g *Guarded[T]) FromPersisted(decode func(target any) error) error {
	var value T
	if err := decode(&value); err != nil {
		return err
	}
	g.mu.Lock()
	g.value = value
	g.mu.Unlock()
	return nil
}

// condition must be called with mu held
func (g *Guarded[T]) condition() *sync.Cond {
	if g.cond == nil {
		g.cond = sync.NewCond(&g.mu)
	}
	return g.cond
}
