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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTrackerAlreadyStarted is raised when Start is called on a running tracker.
	ErrTrackerAlreadyStarted = errors.New("state tracker has already started")

	// ErrTrackerNotStarted is raised when Stop is called on a tracker that is not running.
	ErrTrackerNotStarted = errors.New("state tracker is not running")

	// ErrServiceNotFound is returned when the host registry does not know the service.
	ErrServiceNotFound = errors.New("service not found in registry")

	// ErrUnexpectedContainer is returned when a visitor receives a container it cannot route.
	ErrUnexpectedContainer = errors.New("unexpected state container")

	// ErrInvalidEnvelope is returned when a persisted document is not a well-formed envelope.
	ErrInvalidEnvelope = errors.New("invalid persisted envelope")

	// ErrUnknownFormat is returned for an unknown serialization format name.
	ErrUnknownFormat = errors.New("unknown serialization format")

	// ErrUnknownCompression is returned for an unknown compression name.
	ErrUnknownCompression = errors.New("unknown compression")

	// ErrUnsupportedType is returned when a value in the graph has no
	// structured representation and no registered codec.
	ErrUnsupportedType = errors.New("unsupported type in state graph")

	// ErrCyclicGraph is returned when a pointer cycle is found while flattening.
	ErrCyclicGraph = errors.New("cyclic reference in state graph")

	// ErrUnknownType is returned when a persisted type name cannot be resolved.
	ErrUnknownType = errors.New("unknown persisted type")

	// ErrShapeMismatch is returned when the persisted shape differs from the
	// current shape and no migration applies.
	ErrShapeMismatch = errors.New("persisted state shape does not match")

	// ErrNoMigration is returned alongside ErrShapeMismatch when no migration is
	// registered for the recorded shape.
	ErrNoMigration = errors.New("no migration registered for persisted shape")

	// ErrInvalidTarget is returned when a restore target is not a non-nil pointer.
	ErrInvalidTarget = errors.New("restore target must be a non-nil pointer")

	// ErrInvalidName is returned for a bucket name or upload id that is not a
	// single path element.
	ErrInvalidName = errors.New("invalid name")

	// ErrBucketNotFound is returned when a bucket directory does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrObjectNotFound is returned when an object file does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrPartNotFound is returned when a multipart fragment does not exist.
	ErrPartNotFound = errors.New("multipart part not found")

	// ErrHandleClosed is returned when using a stored object after Close.
	ErrHandleClosed = errors.New("stored object is closed")

	// ErrReadOnlyHandle is returned when writing through a handle opened for reading.
	ErrReadOnlyHandle = errors.New("stored object is opened for reading")

	// ErrUnsupportedChecksum is returned for an unknown checksum algorithm.
	ErrUnsupportedChecksum = errors.New("unsupported checksum algorithm")

	// ErrInvalidRange is returned when a requested byte range is out of bounds.
	ErrInvalidRange = errors.New("invalid byte range")

	// ErrQueueFull is returned when inserting into a bounded queue at capacity.
	ErrQueueFull = errors.New("queue is full")

	// ErrInvalidCertificate is returned when certificate material cannot be parsed.
	ErrInvalidCertificate = errors.New("invalid certificate material")

	// ErrSynchronizerClosed is returned when watching through a closed synchronizer.
	ErrSynchronizerClosed = errors.New("directory synchronizer is closed")

	// ErrManifestClosed is returned when using a closed manifest.
	ErrManifestClosed = errors.New("manifest is closed")
)

// LoadError describes a failure to restore one state container of a service.
// The container keeps its in-process default state.
type LoadError struct {
	Service   string
	Container string
	err       error
}

// enforce compilation error
var _ error = (*LoadError)(nil)

// NewLoadError returns an instance of LoadError
func NewLoadError(service, container string, err error) *LoadError {
	return &LoadError{
		Service:   service,
		Container: container,
		err:       fmt.Errorf("load %s/%s: %w", service, container, err),
	}
}

// Error implements the standard error interface
func (e *LoadError) Error() string {
	return e.err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.err
}

// SaveError describes a failure to persist one state container of a service.
type SaveError struct {
	Service   string
	Container string
	err       error
}

var _ error = (*SaveError)(nil)

// NewSaveError returns an instance of SaveError
func NewSaveError(service, container string, err error) *SaveError {
	return &SaveError{
		Service:   service,
		Container: container,
		err:       fmt.Errorf("save %s/%s: %w", service, container, err),
	}
}

// Error implements the standard error interface
func (e *SaveError) Error() string {
	return e.err.Error()
}

func (e *SaveError) Unwrap() error {
	return e.err
}

// CodecError wraps a failure raised while flattening or restoring a value of
// a specific type, with the path of the value inside the graph.
type CodecError struct {
	Type string
	Path string
	err  error
}

var _ error = (*CodecError)(nil)

// NewCodecError returns an instance of CodecError
func NewCodecError(typeName, path string, err error) *CodecError {
	return &CodecError{
		Type: typeName,
		Path: path,
		err:  fmt.Errorf("codec %s at %s: %w", typeName, path, err),
	}
}

// Error implements the standard error interface
func (e *CodecError) Error() string {
	return e.err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.err
}
