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

package testkit

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/tochemey/emustate/state"
)

// Hook names a lifecycle hook of a Service
type Hook int

const (
	BeforeLoad Hook = iota
	AfterLoad
	BeforeSave
	AfterSave
	hookCount
)

// Service is a fake emulated service exposing a fixed set of containers.
// It counts lifecycle hook invocations and can be made to fail them.
type Service struct {
	name string
	lazy bool

	mu         sync.RWMutex
	containers []state.Container
	failures   map[Hook]error
	callbacks  map[Hook]func(ctx context.Context)

	calls [hookCount]*atomic.Int32
}

var (
	_ state.Service           = (*Service)(nil)
	_ state.LazyLoader        = (*Service)(nil)
	_ state.BeforeStateLoader = (*Service)(nil)
	_ state.AfterStateLoader  = (*Service)(nil)
	_ state.BeforeStateSaver  = (*Service)(nil)
	_ state.AfterStateSaver   = (*Service)(nil)
)

// NewService creates a Service
func NewService(name string, containers ...state.Container) *Service {
	svc := &Service{
		name:       name,
		containers: containers,
		failures:   make(map[Hook]error),
		callbacks:  make(map[Hook]func(ctx context.Context)),
	}
	for i := range svc.calls {
		svc.calls[i] = atomic.NewInt32(0)
	}
	return svc
}

// Lazy makes the service require lazy loading
func (s *Service) Lazy() *Service {
	s.lazy = true
	return s
}

// AddContainer appends a container
func (s *Service) AddContainer(container state.Container) {
	s.mu.Lock()
	s.containers = append(s.containers, container)
	s.mu.Unlock()
}

// FailHook makes hook return err. A nil err clears the failure.
func (s *Service) FailHook(hook Hook, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, hook)
		return
	}
	s.failures[hook] = err
}

// OnHook runs fn whenever hook is invoked, before its failure is returned
func (s *Service) OnHook(hook Hook, fn func(ctx context.Context)) {
	s.mu.Lock()
	s.callbacks[hook] = fn
	s.mu.Unlock()
}

// Calls returns how many times hook ran
func (s *Service) Calls(hook Hook) int {
	return int(s.calls[hook].Load())
}

// Name implements state.Service
func (s *Service) Name() string {
	return s.name
}

// AcceptStateVisitor implements state.Service
func (s *Service) AcceptStateVisitor(ctx context.Context, visitor state.Visitor) error {
	s.mu.RLock()
	containers := append([]state.Container(nil), s.containers...)
	s.mu.RUnlock()
	return state.VisitAll(ctx, visitor, containers...)
}

// RequiresLazyLoad implements state.LazyLoader
func (s *Service) RequiresLazyLoad() bool {
	return s.lazy
}

// BeforeStateLoad implements state.BeforeStateLoader
func (s *Service) BeforeStateLoad(ctx context.Context) error {
	return s.invoke(ctx, BeforeLoad)
}

// AfterStateLoad implements state.AfterStateLoader
func (s *Service) AfterStateLoad(ctx context.Context) error {
	return s.invoke(ctx, AfterLoad)
}

// BeforeStateSave implements state.BeforeStateSaver
func (s *Service) BeforeStateSave(ctx context.Context) error {
	return s.invoke(ctx, BeforeSave)
}

// AfterStateSave implements state.AfterStateSaver
func (s *Service) AfterStateSave(ctx context.Context) error {
	return s.invoke(ctx, AfterSave)
}

func (s *Service) invoke(ctx context.Context, hook Hook) error {
	s.calls[hook].Inc()
	s.mu.RLock()
	callback, err := s.callbacks[hook], s.failures[hook]
	s.mu.RUnlock()
	if callback != nil {
		callback(ctx)
	}
	return err
}
