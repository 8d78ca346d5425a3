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

package state

import "context"

// Service is the host's view of one emulated service.
type Service interface {
	// Name returns the service name
	Name() string
	// AcceptStateVisitor dispatches each of the service's containers to visitor.
	// Implementations typically call VisitAll.
	AcceptStateVisitor(ctx context.Context, visitor Visitor) error
}

// Registry lists the services known to the host process.
type Registry interface {
	// Names returns the names of the active services
	Names() []string
	// Service returns the named service
	Service(name string) (Service, bool)
}

// BeforeStateLoader is implemented by services that need to run code before
// their state is loaded.
type BeforeStateLoader interface {
	BeforeStateLoad(ctx context.Context) error
}

// AfterStateLoader is implemented by services that need to run code after
// their state is loaded, e.g. to restart background workers.
type AfterStateLoader interface {
	AfterStateLoad(ctx context.Context) error
}

// BeforeStateSaver is implemented by services that need to run code before
// their state is saved.
type BeforeStateSaver interface {
	BeforeStateSave(ctx context.Context) error
}

// AfterStateSaver is implemented by services that need to run code after
// their state is saved.
type AfterStateSaver interface {
	AfterStateSave(ctx context.Context) error
}

// LazyLoader is implemented by services whose state can only be loaded once
// other services are serving, so loading is deferred to their first request.
type LazyLoader interface {
	RequiresLazyLoad() bool
}

// RequiresLazyLoad reports whether svc asks for its load to be deferred
func RequiresLazyLoad(svc Service) bool {
	lazy, ok := svc.(LazyLoader)
	return ok && lazy.RequiresLazyLoad()
}
