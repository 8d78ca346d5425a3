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

package tracker

import (
	"context"
	"slices"
	"strings"
	"sync"
)

var idempotentVerbs = []string{"GET", "HEAD", "QUERY", "LIST", "DESCRIBE"}

// RequestContext describes a request handled by an emulated service
type RequestContext struct {
	// Service is the target service name
	Service string
	// Method is the HTTP method of the request
	Method string
	// Operation is the name of the invoked API operation
	Operation string
}

// Idempotent reports whether the request cannot mutate state: its method is
// a read verb or its operation name starts with one.
func (r *RequestContext) Idempotent() bool {
	if slices.Contains(idempotentVerbs, strings.ToUpper(r.Method)) {
		return true
	}
	operation := strings.ToUpper(r.Operation)
	for _, verb := range idempotentVerbs {
		if strings.HasPrefix(operation, verb) {
			return true
		}
	}
	return false
}

// Interceptor observes the requests dispatched by the host
type Interceptor interface {
	// OnRequestBegin runs before the request is handled. The returned
	// context is the one passed to the other callbacks.
	OnRequestBegin(ctx context.Context, req *RequestContext) (context.Context, error)
	// OnResponseComplete runs once the response is produced
	OnResponseComplete(ctx context.Context, req *RequestContext)
	// OnRequestFinalize runs on every exit path of the request
	OnRequestFinalize(ctx context.Context)
}

// Pipeline is the host's request dispatch chain
type Pipeline interface {
	AddInterceptor(interceptor Interceptor)
	RemoveInterceptor(interceptor Interceptor)
}

type guardKey struct{}

// heldGuard is the read side of a service guard held by a request
type heldGuard struct {
	once  sync.Once
	guard *sync.RWMutex
}

func (h *heldGuard) release() {
	h.once.Do(h.guard.RUnlock)
}

func withGuard(ctx context.Context, guard *sync.RWMutex) context.Context {
	return context.WithValue(ctx, guardKey{}, &heldGuard{guard: guard})
}

func guardFrom(ctx context.Context) (*heldGuard, bool) {
	if ctx == nil {
		return nil, false
	}
	held, ok := ctx.Value(guardKey{}).(*heldGuard)
	return held, ok
}
