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
	"slices"
	"sync"

	"github.com/tochemey/emustate/tracker"
)

// Pipeline is an in-memory tracker.Pipeline that dispatches requests to
// fake handlers through its interceptors.
type Pipeline struct {
	mu           sync.RWMutex
	interceptors []tracker.Interceptor
}

var _ tracker.Pipeline = (*Pipeline)(nil)

// NewPipeline creates an empty Pipeline
func NewPipeline() *Pipeline {
	return new(Pipeline)
}

// AddInterceptor implements tracker.Pipeline
func (p *Pipeline) AddInterceptor(interceptor tracker.Interceptor) {
	p.mu.Lock()
	p.interceptors = append(p.interceptors, interceptor)
	p.mu.Unlock()
}

// RemoveInterceptor implements tracker.Pipeline
func (p *Pipeline) RemoveInterceptor(interceptor tracker.Interceptor) {
	p.mu.Lock()
	p.interceptors = slices.DeleteFunc(p.interceptors, func(registered tracker.Interceptor) bool {
		return registered == interceptor
	})
	p.mu.Unlock()
}

// Interceptors returns the registered interceptors
func (p *Pipeline) Interceptors() []tracker.Interceptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.interceptors)
}

// Dispatch runs req through every interceptor around handler. The response
// callbacks only run when handler succeeds; finalizers always run.
func (p *Pipeline) Dispatch(ctx context.Context, req *tracker.RequestContext, handler func(ctx context.Context) error) error {
	interceptors := p.Interceptors()
	for _, interceptor := range interceptors {
		next, err := interceptor.OnRequestBegin(ctx, req)
		defer interceptor.OnRequestFinalize(next)
		if err != nil {
			return err
		}
		ctx = next
	}

	if err := handler(ctx); err != nil {
		return err
	}
	for _, interceptor := range interceptors {
		interceptor.OnResponseComplete(ctx, req)
	}
	return nil
}
