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

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/serialization"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a Tracker.
	Apply(*Tracker)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Tracker)

// Apply applies the Tracker's option
func (f OptionFunc) Apply(t *Tracker) {
	f(t)
}

// WithLogger sets the tracker logger. It defaults to the configured logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(t *Tracker) {
		t.logger = logger
	})
}

// WithPipeline sets the request pipeline the tracker registers itself on
// when started
func WithPipeline(pipeline Pipeline) Option {
	return OptionFunc(func(t *Tracker) {
		t.pipeline = pipeline
	})
}

// WithPreparer registers a function run once for service before its first
// load or request
func WithPreparer(service string, prepare func(ctx context.Context) error) Option {
	return OptionFunc(func(t *Tracker) {
		t.preparers[service] = prepare
	})
}

// WithEngineOptions adds options to the serialization engine, e.g. the types
// of interface values or migrations
func WithEngineOptions(opts ...serialization.Option) Option {
	return OptionFunc(func(t *Tracker) {
		t.engineOptions = append(t.engineOptions, opts...)
	})
}

// WithoutManifest disables the write manifest
func WithoutManifest() Option {
	return OptionFunc(func(t *Tracker) {
		t.useManifest = false
	})
}

// WithoutDirectoryWatch disables watching of asset directories
func WithoutDirectoryWatch() Option {
	return OptionFunc(func(t *Tracker) {
		t.watch = false
	})
}

// WithMetric enables the OpenTelemetry instruments of the tracker, recorded
// through the global meter provider
func WithMetric() Option {
	return OptionFunc(func(t *Tracker) {
		t.metricEnabled = true
	})
}

// WithMeterProvider enables the tracker instruments and records them through
// provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(t *Tracker) {
		t.metricEnabled = true
		t.meterProvider = provider
	})
}
