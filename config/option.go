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

package config

import (
	"time"

	"github.com/tochemey/emustate/internal/compression"
	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/serialization"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(config *Config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Config)

// Apply applies the configuration option
func (f OptionFunc) Apply(c *Config) {
	f(c)
}

// WithBaseDir sets the persistence root
func WithBaseDir(dir string) Option {
	return OptionFunc(func(c *Config) {
		c.BaseDir = dir
	})
}

// WithFormats replaces the written encodings. Duplicates are ignored.
func WithFormats(formats ...serialization.Format) Option {
	return OptionFunc(func(c *Config) {
		c.Formats = nil
		c.addFormats(formats...)
	})
}

// WithCompression sets the compression of the binary encoding
func WithCompression(algorithm compression.Algorithm) Option {
	return OptionFunc(func(c *Config) {
		c.Compression = algorithm
	})
}

// WithFlushInterval sets the flush period
func WithFlushInterval(interval time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.FlushInterval = interval
	})
}

// WithLoadConcurrency sets the number of services loaded concurrently
func WithLoadConcurrency(concurrency int) Option {
	return OptionFunc(func(c *Config) {
		c.LoadConcurrency = concurrency
	})
}

// WithService enables or disables persistence of a single service
func WithService(name string, enabled bool) Option {
	return OptionFunc(func(c *Config) {
		c.setService(name, enabled)
	})
}

// WithDefaultEnabled sets whether unlisted services are persisted
func WithDefaultEnabled(enabled bool) Option {
	return OptionFunc(func(c *Config) {
		c.DefaultEnabled = enabled
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Config) {
		c.Logger = logger
	})
}
