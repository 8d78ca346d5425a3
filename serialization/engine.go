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
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"
	"go.uber.org/multierr"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/compression"
	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/internal/types"
	"github.com/tochemey/emustate/internal/xsync"
	"github.com/tochemey/emustate/log"
)

// Engine writes object graphs to disk inside a versioned envelope and reads
// them back. Every registry it consults lives on the engine and is populated
// at construction, so an Engine is safe for concurrent use.
type Engine struct {
	logger      log.Logger
	fs          afero.Fs
	formats     []Format
	compression compression.Algorithm
	manifest    *manifest.Manifest
	root        string
	types       types.Registry
	codecs      *xsync.Map[reflect.Type, Codec]
	migrations  map[migrationKey]Migration
}

// NewEngine creates an Engine. By default it writes JSON only, on the
// operating system filesystem.
func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		logger:      log.DefaultLogger,
		fs:          afero.NewOsFs(),
		formats:     []Format{FormatJSON},
		compression: compression.None,
		types:       types.NewRegistry(),
		codecs:      xsync.NewMap[reflect.Type, Codec](),
		migrations:  make(map[migrationKey]Migration),
	}

	for _, rtype := range builtinTypes {
		engine.types.Register(rtype)
	}
	for _, codec := range builtinCodecs() {
		engine.codecs.Set(codec.Type, codec)
	}

	for _, opt := range opts {
		opt.Apply(engine)
	}
	return engine
}

// Formats returns the formats written on save, in declaration order
func (e *Engine) Formats() []Format {
	return append([]Format(nil), e.formats...)
}

// Flatten converts value into its persisted tree without writing it
func (e *Engine) Flatten(value any) (any, error) {
	return newFlattener(e).flatten(reflect.ValueOf(value), "$")
}

// Restore fills target, a non-nil pointer, from a persisted tree
func (e *Engine) Restore(data any, target any) error {
	value := reflect.ValueOf(target)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return errors.ErrInvalidTarget
	}
	return (&restorer{engine: e}).restore(data, value.Elem(), "$")
}

// Write persists value at basePath plus the extension of every enabled
// format. Each file is replaced atomically. When the JSON encoding cannot
// represent the graph the binary encoding is written instead. Files of the
// formats not written are removed afterwards.
func (e *Engine) Write(ctx context.Context, basePath string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rtype := reflect.TypeOf(value)
	if rtype == nil {
		return fmt.Errorf("%w: nil value", errors.ErrUnsupportedType)
	}

	data, err := e.Flatten(value)
	if err != nil {
		return err
	}

	envelope := &Envelope{
		Version: Version,
		Type:    types.NameOf(derefType(rtype)),
		Shape:   e.Shape(rtype),
		Data:    data,
	}

	written := make(map[Format]struct{}, len(e.formats))
	for _, format := range e.formats {
		if _, ok := written[format]; ok {
			continue
		}

		bytea, err := e.encode(format, envelope)
		if err != nil && format == FormatJSON && stderrors.Is(err, errNotRepresentable) {
			e.logger.Warnf("state at %s cannot be represented as JSON, falling back to the binary format: %v", basePath, err)
			format = FormatBinary
			if _, ok := written[format]; ok {
				continue
			}
			bytea, err = e.encode(format, envelope)
		}
		if err != nil {
			return fmt.Errorf("encoding %s as %s: %w", basePath, format, err)
		}

		if err := e.writeFile(basePath+format.Extension(), bytea); err != nil {
			return err
		}
		written[format] = struct{}{}
	}

	var removeErr error
	for _, format := range knownFormats {
		if _, ok := written[format]; ok {
			continue
		}
		removeErr = multierr.Append(removeErr, e.removeFile(basePath+format.Extension()))
	}
	return removeErr
}

// Read restores the document persisted at basePath into target, a non-nil
// pointer. It returns false when nothing is persisted there.
//
// When several encodings exist, the most recently modified file is read. On
// an exact modification time tie the enabled formats are preferred, and
// among those the last declared one.
func (e *Engine) Read(ctx context.Context, basePath string, target any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	value := reflect.ValueOf(target)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return false, errors.ErrInvalidTarget
	}

	format, found, err := e.Select(basePath)
	if err != nil || !found {
		return false, err
	}

	path := basePath + format.Extension()
	raw, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	envelope, err := e.decode(format, path, raw)
	if err != nil {
		return false, err
	}

	if envelope.Version != Version {
		e.logger.Warnf("persisted state at %s has unsupported version %d - trying to load it anyway...", path, envelope.Version)
	}

	targetType := value.Type().Elem()
	if envelope.Type != "" {
		if resolved, expected := e.types.Resolve(envelope.Type), types.NameOf(derefType(targetType)); resolved != expected {
			e.logger.Debugf("persisted state at %s was written as %s, restoring into %s", path, resolved, expected)
		}
	}

	data := envelope.Data
	if envelope.Shape == "" {
		e.logger.Debugf("persisted state at %s carries no shape, restoring best-effort", path)
	} else if current := e.Shape(targetType); envelope.Shape != current {
		service, kind := filepath.Base(filepath.Dir(basePath)), filepath.Base(basePath)
		if data, err = e.migrate(service, kind, envelope.Shape, current, data); err != nil {
			return false, err
		}
	}

	if err := (&restorer{engine: e}).restore(data, value.Elem(), "$"); err != nil {
		return false, err
	}
	return true, nil
}

// Inspect decodes the envelope stored at path without restoring it. The
// format is derived from the file extension.
func (e *Engine) Inspect(path string) (*Envelope, Format, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, format, fmt.Errorf("%w: %s", errors.ErrUnknownFormat, filepath.Ext(path))
	}
	raw, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, format, err
	}
	envelope, err := e.decode(format, path, raw)
	return envelope, format, err
}

// Select returns the format of the document to read at basePath
func (e *Engine) Select(basePath string) (Format, bool, error) {
	var (
		chosen    Format
		chosenAt  time.Time
		found     bool
		chosenPri int
	)
	for _, format := range knownFormats {
		info, err := e.fs.Stat(basePath + format.Extension())
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return chosen, false, err
		}
		if info.IsDir() {
			continue
		}

		modified, priority := info.ModTime(), e.priority(format)
		switch {
		case !found, modified.After(chosenAt), modified.Equal(chosenAt) && priority > chosenPri:
			chosen, chosenAt, chosenPri, found = format, modified, priority, true
		}
	}
	return chosen, found, nil
}

// priority ranks formats for tie-breaking: disabled formats rank 0, enabled
// formats rank by declaration order starting at 1.
func (e *Engine) priority(format Format) int {
	for i, enabled := range e.formats {
		if enabled == format {
			return i + 1
		}
	}
	return 0
}

func (e *Engine) enabled(format Format) bool {
	return e.priority(format) > 0
}

// writeFile replaces path atomically: the content is written to a
// temporary file in the same directory, synced, then renamed.
func (e *Engine) writeFile(path string, bytea []byte) error {
	digest := xxh3.Hash(bytea)
	key := e.manifestKey(path)
	if e.manifest != nil {
		if recorded, ok := e.manifest.Digest(key); ok && recorded == digest {
			if exists, _ := afero.Exists(e.fs, path); exists {
				e.logger.Debugf("state at %s is unchanged, skipping write", path)
				return nil
			}
		}
	}

	dir := filepath.Dir(path)
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	file, err := e.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	if _, err := file.Write(bytea); err != nil {
		_ = file.Close()
		_ = e.fs.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = e.fs.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		_ = e.fs.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := e.fs.Rename(tmp, path); err != nil {
		_ = e.fs.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}

	if e.manifest != nil {
		if err := e.manifest.Record(key, digest); err != nil {
			e.logger.Warnf("recording %s in the manifest: %v", key, err)
		}
	}
	return nil
}

func (e *Engine) removeFile(path string) error {
	if err := e.fs.Remove(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	if e.manifest != nil {
		if err := e.manifest.Forget(e.manifestKey(path)); err != nil {
			e.logger.Warnf("forgetting %s in the manifest: %v", path, err)
		}
	}
	return nil
}

func (e *Engine) manifestKey(path string) string {
	if e.root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(e.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func derefType(rtype reflect.Type) reflect.Type {
	for rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}
	return rtype
}
