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
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/bufferpool"
)

// StoredObject is an open blob. Writes stream through the MD5 ETag hash and
// the optional checksum chunk by chunk; the resulting ETag, checksum and size
// are written back to the object's metadata after every write and on Close.
//
// A StoredObject is not meant to be shared between goroutines beyond the
// store's own Flush.
type StoredObject struct {
	store *Store
	file  afero.File
	path  string
	mode  Mode
	meta  *Metadata

	mu     sync.Mutex
	closed bool
	// hasher covers the whole file content when non-nil
	hasher *hasher
	size   int64
}

var _ io.ReadSeekCloser = (*StoredObject)(nil)

// Write replaces the blob content with src and returns the bytes written
func (o *StoredObject) Write(src io.Reader) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.writable(); err != nil {
		return 0, err
	}

	if err := o.file.Truncate(0); err != nil {
		return 0, err
	}
	if _, err := o.file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	hasher, err := newHasher(o.meta.ChecksumAlgorithm)
	if err != nil {
		return 0, err
	}
	written, err := copyChunks(o.file, src, hasher)
	o.hasher, o.size = hasher, written
	if err != nil {
		o.hasher = nil
		return written, err
	}
	o.publish()

	_, err = o.file.Seek(0, io.SeekStart)
	return written, err
}

// Append adds src at the end of the blob and returns the bytes appended
func (o *StoredObject) Append(src io.Reader) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.writable(); err != nil {
		return 0, err
	}

	if o.hasher == nil {
		if err := o.computeHashes(); err != nil {
			return 0, err
		}
	}
	if _, err := o.file.Seek(0, io.SeekEnd); err != nil {
		return 0, err
	}

	written, err := copyChunks(o.file, src, o.hasher)
	o.size += written
	if err != nil {
		o.hasher = nil
		return written, err
	}
	o.publish()
	return written, nil
}

// Truncate changes the blob size. The hashes are recomputed lazily.
func (o *StoredObject) Truncate(size int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.writable(); err != nil {
		return err
	}
	if err := o.file.Truncate(size); err != nil {
		return err
	}
	o.hasher = nil
	o.size = size
	o.meta.Size = size
	return nil
}

// Read implements io.Reader
func (o *StoredObject) Read(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, errors.ErrHandleClosed
	}
	return o.file.Read(p)
}

// Seek implements io.Seeker
func (o *StoredObject) Seek(offset int64, whence int) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, errors.ErrHandleClosed
	}
	return o.file.Seek(offset, whence)
}

// Chunks reads the blob from the current offset in chunks of at most
// bufferpool.ChunkSize bytes. A chunk is only valid until the next iteration.
func (o *StoredObject) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		chunk := bufferpool.Chunks.Get()
		defer bufferpool.Chunks.Put(chunk)
		for {
			n, err := o.Read(*chunk)
			if n > 0 && !yield((*chunk)[:n], nil) {
				return
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// ETag returns the hex MD5 of the blob, computing it if needed
func (o *StoredObject) ETag() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.ensureHashes(); err != nil {
		return "", err
	}
	return o.hasher.ETag(), nil
}

// Checksum returns the base64 checksum of the blob, computing it if needed.
// It is empty when the object has no checksum algorithm.
func (o *StoredObject) Checksum() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.ensureHashes(); err != nil {
		return "", err
	}
	return o.hasher.Checksum(), nil
}

// Size returns the blob size
func (o *StoredObject) Size() (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, errors.ErrHandleClosed
	}
	info, err := o.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// LastModified returns the blob modification time
func (o *StoredObject) LastModified() (time.Time, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return time.Time{}, errors.ErrHandleClosed
	}
	info, err := o.file.Stat()
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Close publishes the final metadata of a written blob and releases the
// file. Closing twice is a no-op.
func (o *StoredObject) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}

	var err error
	if o.mode == ModeWrite {
		if o.hasher == nil {
			err = o.computeHashes()
		}
		if err == nil {
			o.publish()
			if info, statErr := o.file.Stat(); statErr == nil {
				o.meta.LastModified = info.ModTime()
			}
		}
	}

	o.closed = true
	o.store.handles.Remove(o)
	if closeErr := o.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// sync makes pending writes durable; used by Store.Flush
func (o *StoredObject) sync() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.mode != ModeWrite {
		return nil
	}
	if err := o.file.Sync(); err != nil && !stderrors.Is(err, os.ErrClosed) {
		return fmt.Errorf("syncing %s: %w", o.path, err)
	}
	return nil
}

func (o *StoredObject) writable() error {
	if o.closed {
		return errors.ErrHandleClosed
	}
	if o.mode != ModeWrite {
		return errors.ErrReadOnlyHandle
	}
	return nil
}

func (o *StoredObject) ensureHashes() error {
	if o.closed {
		return errors.ErrHandleClosed
	}
	if o.hasher != nil {
		return nil
	}
	return o.computeHashes()
}

// computeHashes streams the whole file through fresh hashes without moving
// the handle offset.
func (o *StoredObject) computeHashes() error {
	info, err := o.file.Stat()
	if err != nil {
		return err
	}

	hasher, err := newHasher(o.meta.ChecksumAlgorithm)
	if err != nil {
		return err
	}

	chunk := bufferpool.Chunks.Get()
	defer bufferpool.Chunks.Put(chunk)
	if _, err := io.CopyBuffer(hasher, io.NewSectionReader(o.file, 0, info.Size()), *chunk); err != nil {
		return err
	}

	o.hasher = hasher
	o.size = info.Size()
	o.publish()
	return nil
}

// publish writes the current hashes and size back onto the metadata
func (o *StoredObject) publish() {
	if o.hasher == nil {
		return
	}
	o.meta.Size = o.size
	o.meta.ETag = o.hasher.ETag()
	o.meta.Checksum = o.hasher.Checksum()
}

// copyChunks copies src into dst through h, one chunk at a time
func copyChunks(dst io.Writer, src io.Reader, h *hasher) (int64, error) {
	chunk := bufferpool.Chunks.Get()
	defer bufferpool.Chunks.Put(chunk)

	var written int64
	for {
		n, err := src.Read(*chunk)
		if n > 0 {
			data := (*chunk)[:n]
			if _, werr := dst.Write(data); werr != nil {
				return written, werr
			}
			_, _ = h.Write(data)
			written += int64(n)
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
