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

package serialization

import (
	"github.com/spf13/afero"

	"github.com/tochemey/emustate/internal/compression"
	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of an Engine.
	Apply(*Engine)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Engine)

// Apply applies the Engine's option
func (f OptionFunc) Apply(e *Engine) {
	f(e)
}

// WithLogger sets the engine logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(e *Engine) {
		e.logger = logger
	})
}

// WithFormats sets the formats written on every save, in declaration order.
// Duplicates are ignored. The default is FormatJSON alone.
func WithFormats(formats ...Format) Option {
	return OptionFunc(func(e *Engine) {
		if len(formats) == 0 {
			return
		}
		e.formats = e.formats[:0]
		for _, format := range formats {
			if !e.enabled(format) {
				e.formats = append(e.formats, format)
			}
		}
	})
}

// WithCompression sets the compression of the binary format
func WithCompression(algorithm compression.Algorithm) Option {
	return OptionFunc(func(e *Engine) {
		e.compression = algorithm
	})
}

// WithFileSystem sets the filesystem the engine reads and writes
func WithFileSystem(fs afero.Fs) Option {
	return OptionFunc(func(e *Engine) {
		e.fs = fs
	})
}

// WithManifest lets the engine skip rewriting documents whose content
// already matches the digest recorded for them. Keys are recorded relative
// to root.
func WithManifest(m *manifest.Manifest, root string) Option {
	return OptionFunc(func(e *Engine) {
		e.manifest = m
		e.root = root
	})
}

// WithTypes registers the concrete types that may appear behind interface
// values. Pass pointers to values, or reflect.Type.
func WithTypes(values ...any) Option {
	return OptionFunc(func(e *Engine) {
		for _, value := range values {
			e.types.Register(value)
		}
	})
}

// WithRename maps persisted type names starting with oldPrefix to newPrefix
// before they are resolved.
func WithRename(oldPrefix, newPrefix string) Option {
	return OptionFunc(func(e *Engine) {
		e.types.Rename(oldPrefix, newPrefix)
	})
}

// WithCodec registers a codec, replacing any codec of the same type
func WithCodec(codec Codec) Option {
	return OptionFunc(func(e *Engine) {
		e.codecs.Set(codec.Type, codec)
	})
}

// WithMigration registers a migration
func WithMigration(migration Migration) Option {
	return OptionFunc(func(e *Engine) {
		e.migrations[migrationKey{
			service: migration.Service,
			kind:    migration.Kind,
			from:    migration.From,
		}] = migration
	})
}
