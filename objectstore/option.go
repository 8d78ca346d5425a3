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

package objectstore

import (
	"github.com/spf13/afero"

	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a Store.
	Apply(*Store)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Store)

// Apply applies the Store's option
func (f OptionFunc) Apply(s *Store) {
	f(s)
}

// WithLogger sets the store logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *Store) {
		s.logger = logger
	})
}

// WithService sets the name of the owning service
func WithService(service string) Option {
	return OptionFunc(func(s *Store) {
		s.service = service
	})
}

// WithFileSystem sets the filesystem holding the blobs
func WithFileSystem(fs afero.Fs) Option {
	return OptionFunc(func(s *Store) {
		s.fs = fs
	})
}

// WithManifest records the legacy migration in m
func WithManifest(m *manifest.Manifest) Option {
	return OptionFunc(func(s *Store) {
		s.manifest = m
	})
}

// WithLegacyFile sets the path of the single-document store migrated by
// Prepare. It defaults to objects.json next to the store root.
func WithLegacyFile(path string) Option {
	return OptionFunc(func(s *Store) {
		s.legacy = path
	})
}
