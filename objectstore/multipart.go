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
	"io/fs"
	"path/filepath"

	"github.com/tochemey/emustate/errors"
)

// StoredMultipart holds the fragments of one multipart upload
type StoredMultipart struct {
	store    *Store
	bucket   string
	uploadID string
	dir      string
}

// UploadID returns the upload identifier
func (m *StoredMultipart) UploadID() string {
	return m.uploadID
}

// Open returns a handle on the fragment of part
func (m *StoredMultipart) Open(part *Part, mode Mode) (*StoredObject, error) {
	return m.store.open(m.bucket, m.partPath(part.Number), &part.Metadata, mode, errors.ErrPartNotFound)
}

// RemovePart deletes the fragment of part
func (m *StoredMultipart) RemovePart(part *Part) error {
	if err := m.store.fs.Remove(m.partPath(part.Number)); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %d", errors.ErrPartNotFound, part.Number)
		}
		return err
	}
	return nil
}

// CopyFromObject fills part with the blob of src, or with the inclusive
// byte range of it when byteRange is not nil.
func (m *StoredMultipart) CopyFromObject(part *Part, srcBucket string, src *Object, byteRange *Range) error {
	source, err := m.store.Open(srcBucket, src, ModeRead)
	if err != nil {
		return err
	}
	defer source.Close()

	var reader io.Reader = source
	if byteRange != nil {
		size, err := source.Size()
		if err != nil {
			return err
		}
		if byteRange.Start < 0 || byteRange.End < byteRange.Start || byteRange.End >= size {
			return fmt.Errorf("%w: bytes=%d-%d of %d", errors.ErrInvalidRange, byteRange.Start, byteRange.End, size)
		}
		if _, err := source.Seek(byteRange.Start, io.SeekStart); err != nil {
			return err
		}
		reader = io.LimitReader(source, byteRange.End-byteRange.Start+1)
	}

	target, err := m.Open(part, ModeWrite)
	if err != nil {
		return err
	}
	if _, err := target.Write(reader); err != nil {
		_ = target.Close()
		return err
	}
	return target.Close()
}

// Complete concatenates the fragments of parts, in the order given, into
// the blob of target while hashing it, then removes the upload directory.
// The blob is assembled aside and moved into place only once every part has
// been appended, so a failed completion leaves the existing blob of target
// and its metadata untouched.
func (m *StoredMultipart) Complete(target *Object, parts []int) error {
	for _, number := range parts {
		if _, err := m.store.fs.Stat(m.partPath(number)); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %d", errors.ErrPartNotFound, number)
			}
			return err
		}
	}

	metadata := target.Metadata
	assembling := filepath.Join(m.dir, assemblingFile)
	stored, err := m.store.open(m.bucket, assembling, &metadata, ModeWrite, errors.ErrObjectNotFound)
	if err != nil {
		return err
	}

	for _, number := range parts {
		if err := m.appendPart(stored, number); err != nil {
			_ = stored.Close()
			_ = m.store.fs.Remove(assembling)
			return err
		}
	}
	if err := stored.Close(); err != nil {
		_ = m.store.fs.Remove(assembling)
		return err
	}

	path, err := m.store.objectPath(m.bucket, target)
	if err != nil {
		_ = m.store.fs.Remove(assembling)
		return err
	}
	if err := m.store.fs.Rename(assembling, path); err != nil {
		_ = m.store.fs.Remove(assembling)
		return err
	}
	target.Metadata = metadata
	return m.Remove()
}

// Remove deletes every fragment of the upload
func (m *StoredMultipart) Remove() error {
	return m.store.RemoveMultipart(m.bucket, m.uploadID)
}

func (m *StoredMultipart) appendPart(stored *StoredObject, number int) error {
	fragment, err := m.store.fs.Open(m.partPath(number))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %d", errors.ErrPartNotFound, number)
		}
		return err
	}
	defer fragment.Close()
	_, err = stored.Append(fragment)
	return err
}

func (m *StoredMultipart) partPath(number int) string {
	return filepath.Join(m.dir, partFileName(number))
}
