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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	legacyFileName       = "objects.json"
	legacyMigratedSuffix = ".migrated"
)

// legacyPayload is a blob of the single-document store, as text or base64
type legacyPayload struct {
	Text *string `json:"text"`
	B64  *string `json:"b64"`
}

type legacyMultipart struct {
	Parts map[string]legacyPayload `json:"parts"`
}

type legacyBucket struct {
	Keys       map[string]legacyPayload   `json:"keys"`
	Multiparts map[string]legacyMultipart `json:"multiparts"`
}

// legacyDocument is the single JSON document of every bucket. It may be
// wrapped in a persisted envelope.
type legacyDocument struct {
	Data       *legacyDocument         `json:"data"`
	Filesystem map[string]legacyBucket `json:"_filesystem"`
}

// Prepare runs the one-time migration of the legacy single-document store.
// It only runs when the store root does not exist yet; the root is created
// afterwards so that it never runs again, and the legacy file is renamed.
func (s *Store) Prepare(ctx context.Context) error {
	exists, err := afero.DirExists(s.fs, s.root)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	legacyExists, err := afero.Exists(s.fs, s.legacy)
	if err != nil {
		return err
	}
	if legacyExists {
		if err := s.migrateLegacy(ctx); err != nil {
			return fmt.Errorf("migrating %s: %w", s.legacy, err)
		}
	}

	return s.fs.MkdirAll(s.root, 0o755)
}

func (s *Store) migrateLegacy(ctx context.Context) error {
	raw, err := afero.ReadFile(s.fs, s.legacy)
	if err != nil {
		return err
	}

	document := new(legacyDocument)
	if err := json.Unmarshal(raw, document); err != nil {
		return err
	}
	for document.Filesystem == nil && document.Data != nil {
		document = document.Data
	}

	s.logger.Infof("migrating %d legacy bucket(s) of service %s from %s", len(document.Filesystem), s.service, s.legacy)

	buckets := make([]string, 0, len(document.Filesystem))
	for bucket := range document.Filesystem {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	for _, name := range buckets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.migrateBucket(name, document.Filesystem[name]); err != nil {
			return err
		}
	}

	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return err
	}
	if err := s.fs.Rename(s.legacy, s.legacy+legacyMigratedSuffix); err != nil {
		return err
	}
	if s.manifest != nil {
		if err := s.manifest.MarkMigrated(filepath.ToSlash(filepath.Join(s.service, legacyFileName))); err != nil {
			s.logger.Warnf("recording the migration of %s: %v", s.legacy, err)
		}
	}
	return nil
}

func (s *Store) migrateBucket(name string, bucket legacyBucket) error {
	if err := s.CreateBucket(name); err != nil {
		return err
	}

	for composite, payload := range bucket.Keys {
		key, version := composite, ""
		if at := strings.LastIndex(composite, "?"); at >= 0 {
			key, version = composite[:at], composite[at+1:]
		}
		if version == nullVersion || version == "None" {
			version = ""
		}

		content, err := payload.bytes()
		if err != nil {
			return fmt.Errorf("object %s/%s: %w", name, composite, err)
		}
		if err := s.writeBlob(name, &Object{Key: key, Version: version}, content); err != nil {
			return err
		}
	}

	for uploadID, upload := range bucket.Multiparts {
		multipart, err := s.Multipart(name, uploadID)
		if err != nil {
			return err
		}
		for number, payload := range upload.Parts {
			partNumber, err := strconv.Atoi(number)
			if err != nil {
				return fmt.Errorf("upload %s/%s: invalid part number %q", name, uploadID, number)
			}
			content, err := payload.bytes()
			if err != nil {
				return fmt.Errorf("upload %s/%s part %d: %w", name, uploadID, partNumber, err)
			}

			stored, err := multipart.Open(&Part{Number: partNumber}, ModeWrite)
			if err != nil {
				return err
			}
			if _, err := stored.Write(bytes.NewReader(content)); err != nil {
				_ = stored.Close()
				return err
			}
			if err := stored.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) writeBlob(bucket string, obj *Object, content []byte) error {
	stored, err := s.Open(bucket, obj, ModeWrite)
	if err != nil {
		return err
	}
	if _, err := stored.Write(bytes.NewReader(content)); err != nil {
		_ = stored.Close()
		return err
	}
	return stored.Close()
}

func (p legacyPayload) bytes() ([]byte, error) {
	switch {
	case p.Text != nil:
		return []byte(*p.Text), nil
	case p.B64 != nil:
		return base64.StdEncoding.DecodeString(*p.B64)
	default:
		return nil, nil
	}
}
