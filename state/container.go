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

import (
	"context"

	"go.uber.org/multierr"
)

// Container is one unit of persistable state belonging to a service.
// The set of variants is closed: StructuredStore, AssetDirectory and
// BlobStore. Each variant dispatches itself to the matching Visitor method.
type Container interface {
	Accept(ctx context.Context, visitor Visitor) error
}

// Visitor routes each container variant to the component that persists it.
type Visitor interface {
	// VisitStructuredStore handles a keyed in-memory store serialized as one document
	VisitStructuredStore(ctx context.Context, store StructuredStore) error
	// VisitAssetDirectory handles a directory mirrored file for file
	VisitAssetDirectory(ctx context.Context, dir *AssetDirectory) error
	// VisitBlobStore handles a collection of large binary payloads stored as files
	VisitBlobStore(ctx context.Context, store BlobStore) error
}

// StructuredStore is a keyed mapping of arbitrary nested service data.
type StructuredStore interface {
	Container
	// ServiceName returns the owning service
	ServiceName() string
	// Kind names the container on disk, e.g. "store" or "backend"
	Kind() string
	// Snapshot returns the graph to serialize. The caller holds the
	// service's write guard for the duration of the serialization.
	Snapshot() any
	// Restore allocates a fresh value of the snapshot type, fills it through
	// decode and merges it into the live store.
	Restore(decode func(target any) error) error
}

// BlobStore is a collection of binary payloads persisted as individual files.
type BlobStore interface {
	Container
	// ServiceName returns the owning service
	ServiceName() string
	// Prepare readies the on-disk layout, running one-time migrations
	Prepare(ctx context.Context) error
	// Flush makes every pending blob write durable
	Flush() error
}

// AssetDirectory is a filesystem directory a service reads and writes directly.
type AssetDirectory struct {
	// Service is the owning service
	Service string
	// Name identifies the directory inside the service's persisted assets.
	// Defaults to the base name of Path.
	Name string
	// Path is the live directory
	Path string
}

var _ Container = (*AssetDirectory)(nil)

// Accept implements Container
func (d *AssetDirectory) Accept(ctx context.Context, visitor Visitor) error {
	return visitor.VisitAssetDirectory(ctx, d)
}

// VisitAll dispatches every container to visitor. A failing container does
// not prevent the others from being visited; errors are combined.
func VisitAll(ctx context.Context, visitor Visitor, containers ...Container) error {
	var err error
	for _, container := range containers {
		if container == nil {
			continue
		}
		err = multierr.Append(err, container.Accept(ctx, visitor))
	}
	return err
}
