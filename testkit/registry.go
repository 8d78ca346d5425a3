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
	"sort"
	"sync"

	"github.com/tochemey/emustate/state"
)

// Registry is an in-memory state.Registry
type Registry struct {
	mu       sync.RWMutex
	services map[string]state.Service
}

var _ state.Registry = (*Registry)(nil)

// NewRegistry creates a Registry holding services
func NewRegistry(services ...state.Service) *Registry {
	registry := &Registry{services: make(map[string]state.Service, len(services))}
	for _, svc := range services {
		registry.Register(svc)
	}
	return registry
}

// Register adds or replaces a service
func (r *Registry) Register(svc state.Service) {
	r.mu.Lock()
	r.services[svc.Name()] = svc
	r.mu.Unlock()
}

// Deregister removes a service
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	delete(r.services, name)
	r.mu.Unlock()
}

// Names implements state.Registry
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service implements state.Registry
func (r *Registry) Service(name string) (state.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}
