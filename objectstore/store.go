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
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/state"
)

// Mode is the access mode of a stored object
type Mode int

const (
	// ModeRead opens an existing blob for reading
	ModeRead Mode = iota
	// ModeWrite creates or truncates a blob for writing. The handle can be read too.
	ModeWrite
)

// Metadata is the part of an object's or part's metadata kept in sync with
// the stored bytes.
type Metadata struct {
	Size              int64
	ETag              string
	ChecksumAlgorithm ChecksumAlgorithm
	Checksum          string
	LastModified      time.Time
}

// Object identifies a blob by key and version. An empty version is the
// null version.
type Object struct {
	Key     string
	Version string
	Metadata
}

// Part identifies a fragment of a multipart upload
type Part struct {
	Number int
	Metadata
}

// Range is an inclusive byte range
type Range struct {
	Start int64
	End   int64
}

// Store keeps the blobs of one service as individual files, one directory
// per bucket. Open handles are tracked so that Flush can make every pending
// write durable before the structured state referring to them is saved.
type Store struct {
	service  string
	root     string
	legacy   string
	fs       afero.Fs
	logger   log.Logger
	manifest *manifest.Manifest
	handles  mapset.Set[*StoredObject]
}

var _ state.BlobStore = (*Store)(nil)

// New creates a Store rooted at root
func New(root string, opts ...Option) *Store {
	store := &Store{
		service: filepath.Base(filepath.Dir(root)),
		root:    root,
		legacy:  filepath.Join(filepath.Dir(root), legacyFileName),
		fs:      afero.NewOsFs(),
		logger:  log.DefaultLogger,
		handles: mapset.NewSet[*StoredObject](),
	}
	for _, opt := range opts {
		opt.Apply(store)
	}
	return store
}

// Accept implements state.Container
func (s *Store) Accept(ctx context.Context, visitor state.Visitor) error {
	return visitor.VisitBlobStore(ctx, s)
}

// ServiceName implements state.BlobStore
func (s *Store) ServiceName() string {
	return s.service
}

// Root returns the store directory
func (s *Store) Root() string {
	return s.root
}

// Open returns a handle on the blob of obj in bucket
func (s *Store) Open(bucket string, obj *Object, mode Mode) (*StoredObject, error) {
	path, err := s.objectPath(bucket, obj)
	if err != nil {
		return nil, err
	}
	return s.open(bucket, path, &obj.Metadata, mode, errors.ErrObjectNotFound)
}

// Remove deletes the blobs of objs. Missing blobs are ignored.
func (s *Store) Remove(bucket string, objs ...*Object) error {
	var err error
	for _, obj := range objs {
		path, e := s.objectPath(bucket, obj)
		if e != nil {
			return e
		}
		if e := s.fs.Remove(path); e != nil && !stderrors.Is(e, fs.ErrNotExist) {
			err = multierr.Append(err, fmt.Errorf("removing %s: %w", path, e))
		}
	}
	return err
}

// Copy copies the blob of src into dst. Copying a blob onto itself is a no-op.
// dst inherits the checksum algorithm of src unless it sets its own.
func (s *Store) Copy(srcBucket string, src *Object, dstBucket string, dst *Object) error {
	srcPath, err := s.objectPath(srcBucket, src)
	if err != nil {
		return err
	}
	dstPath, err := s.objectPath(dstBucket, dst)
	if err != nil {
		return err
	}
	if srcPath == dstPath {
		return nil
	}

	source, err := s.Open(srcBucket, src, ModeRead)
	if err != nil {
		return err
	}
	defer source.Close()

	if dst.ChecksumAlgorithm == ChecksumNone {
		dst.ChecksumAlgorithm = src.ChecksumAlgorithm
	}
	target, err := s.Open(dstBucket, dst, ModeWrite)
	if err != nil {
		return err
	}
	if _, err := target.Write(source); err != nil {
		_ = target.Close()
		return err
	}
	return target.Close()
}

// CreateBucket creates the bucket directory
func (s *Store) CreateBucket(bucket string) error {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return err
	}
	return s.fs.MkdirAll(dir, 0o755)
}

// DeleteBucket removes the bucket directory and everything below it
func (s *Store) DeleteBucket(bucket string) error {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return err
	}
	return s.fs.RemoveAll(dir)
}

// Buckets returns the sorted bucket names
func (s *Store) Buckets() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	buckets := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			buckets = append(buckets, entry.Name())
		}
	}
	sort.Strings(buckets)
	return buckets, nil
}

// Objects lists the blobs of bucket with their size and modification time,
// sorted by key then version.
func (s *Store) Objects(bucket string) ([]*Object, error) {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ErrBucketNotFound
		}
		return nil, err
	}

	objects := make([]*Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, version, err := parseObjectFileName(entry.Name())
		if err != nil {
			s.logger.Warnf("skipping %s in bucket %s: %v", entry.Name(), bucket, err)
			continue
		}
		objects = append(objects, &Object{
			Key:      key,
			Version:  version,
			Metadata: Metadata{Size: entry.Size(), LastModified: entry.ModTime()},
		})
	}
	sort.Slice(objects, func(i, j int) bool {
		if objects[i].Key != objects[j].Key {
			return objects[i].Key < objects[j].Key
		}
		return objects[i].Version < objects[j].Version
	})
	return objects, nil
}

// Multipart returns the fragments store of an upload, creating its directory
func (s *Store) Multipart(bucket, uploadID string) (*StoredMultipart, error) {
	dir, err := s.multipartPath(bucket, uploadID)
	if err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return &StoredMultipart{store: s, bucket: bucket, uploadID: uploadID, dir: dir}, nil
}

// RemoveMultipart deletes every fragment of an upload
func (s *Store) RemoveMultipart(bucket, uploadID string) error {
	dir, err := s.multipartPath(bucket, uploadID)
	if err != nil {
		return err
	}
	return s.fs.RemoveAll(dir)
}

// Flush syncs every handle opened for writing
func (s *Store) Flush() error {
	var err error
	for _, handle := range s.handles.ToSlice() {
		err = multierr.Append(err, handle.sync())
	}
	return err
}

// open opens path and registers the handle
func (s *Store) open(bucket, path string, meta *Metadata, mode Mode, notFound error) (*StoredObject, error) {
	hasher, err := newHasher(meta.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}

	var file afero.File
	switch mode {
	case ModeRead:
		file, err = s.fs.Open(path)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				if exists, _ := afero.DirExists(s.fs, filepath.Join(s.root, bucket)); !exists {
					return nil, fmt.Errorf("%w: %s", errors.ErrBucketNotFound, bucket)
				}
				return nil, fmt.Errorf("%w: %s", notFound, path)
			}
			return nil, err
		}
		hasher = nil
	case ModeWrite:
		if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		file, err = s.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown mode %d", mode)
	}

	handle := &StoredObject{
		store:  s,
		file:   file,
		path:   path,
		mode:   mode,
		meta:   meta,
		hasher: hasher,
	}
	if mode == ModeWrite {
		handle.publish()
	}
	s.handles.Add(handle)
	return handle, nil
}
