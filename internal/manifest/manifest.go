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

package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/emustate/errors"
)

// FileName is the manifest file name inside a persistence root
const FileName = ".manifest.db"

const (
	fileMode         os.FileMode = 0o600
	digestsBucket                = "digests"
	migrationsBucket             = "migrations"
)

var (
	openTimeout = 5 * time.Second
	encMode     cbor.EncMode
	decMode     cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	if encMode, err = encOptions.EncMode(); err != nil {
		panic(fmt.Sprintf("manifest: building cbor encoder: %v", err))
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(fmt.Sprintf("manifest: building cbor decoder: %v", err))
	}
}

// Entry is the last recorded write of one persisted container
type Entry struct {
	Key       string    `cbor:"-"`
	Digest    uint64    `cbor:"1,keyasint"`
	WrittenAt time.Time `cbor:"2,keyasint"`
}

// Manifest keeps, per persisted container, the digest of the last document
// written and the set of one-time migrations already performed.
//
// bbolt provides single-writer/multi-reader semantics; the manifest only
// guards its closed state.
type Manifest struct {
	db     *bbolt.DB
	path   string
	closed *atomic.Bool
}

// Open opens or creates the manifest at path
func Open(path string) (*Manifest, error) {
	return open(path, false)
}

// OpenReadOnly opens an existing manifest without taking the writer lock
func OpenReadOnly(path string) (*Manifest, error) {
	return open(path, true)
}

func open(path string, readOnly bool) (*Manifest, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("manifest: creating directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, fileMode, &bbolt.Options{
		Timeout:    openTimeout,
		NoGrowSync: true,
		ReadOnly:   readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: opening %s: %w", path, err)
	}

	if !readOnly {
		if err := db.Update(func(tx *bbolt.Tx) error {
			for _, name := range []string{digestsBucket, migrationsBucket} {
				if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("manifest: initializing buckets: %w", err)
		}
	}

	return &Manifest{db: db, path: path, closed: atomic.NewBool(false)}, nil
}

// Path returns the manifest file path
func (m *Manifest) Path() string {
	return m.path
}

// Record stores the digest of the document just written for key
func (m *Manifest) Record(key string, digest uint64) error {
	if m.closed.Load() {
		return gerrors.ErrManifestClosed
	}

	bytea, err := encMode.Marshal(Entry{Digest: digest, WrittenAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("manifest: encoding entry: %w", err)
	}

	return m.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(digestsBucket))
		if bucket == nil {
			return fmt.Errorf("manifest: bucket %q missing", digestsBucket)
		}
		return bucket.Put([]byte(key), bytea)
	})
}

// Digest returns the last digest recorded for key
func (m *Manifest) Digest(key string) (uint64, bool) {
	entry, ok := m.entry(key)
	return entry.Digest, ok
}

// Forget drops the record of key
func (m *Manifest) Forget(key string) error {
	if m.closed.Load() {
		return gerrors.ErrManifestClosed
	}
	return m.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(digestsBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// MarkMigrated records that the one-time migration name has run
func (m *Manifest) MarkMigrated(name string) error {
	if m.closed.Load() {
		return gerrors.ErrManifestClosed
	}

	bytea, err := encMode.Marshal(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("manifest: encoding migration marker: %w", err)
	}

	return m.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(migrationsBucket))
		if bucket == nil {
			return fmt.Errorf("manifest: bucket %q missing", migrationsBucket)
		}
		return bucket.Put([]byte(name), bytea)
	})
}

// Migrated reports whether the one-time migration name has run
func (m *Manifest) Migrated(name string) bool {
	if m.closed.Load() {
		return false
	}

	var found bool
	_ = m.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(migrationsBucket))
		if bucket == nil {
			return nil
		}
		found = bucket.Get([]byte(name)) != nil
		return nil
	})
	return found
}

// Entries returns every recorded entry sorted by key
func (m *Manifest) Entries() ([]Entry, error) {
	if m.closed.Load() {
		return nil, gerrors.ErrManifestClosed
	}

	var entries []Entry
	err := m.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(digestsBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := decMode.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("manifest: decoding entry %q: %w", k, err)
			}
			entry.Key = string(k)
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Close releases the underlying database
func (m *Manifest) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if err := m.db.Close(); err != nil && !errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return err
	}
	return nil
}

func (m *Manifest) entry(key string) (Entry, bool) {
	var entry Entry
	if m.closed.Load() {
		return entry, false
	}

	var found bool
	_ = m.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(digestsBucket))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := decMode.Unmarshal(raw, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})
	entry.Key = key
	return entry, found
}
