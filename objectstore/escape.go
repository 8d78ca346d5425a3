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
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tochemey/emustate/errors"
)

const (
	nullVersion   = "null"
	multipartsDir = "multiparts"
	partPrefix    = "part-"
	// assemblingFile receives the blob of a completing upload
	assemblingFile = "assembling"
)

// escapeFileName percent-escapes the characters that are unsafe in a file
// name on common filesystems: control characters, DEL, and \ / " : * ? | < > $ %.
func escapeFileName(name string) string {
	var builder strings.Builder
	builder.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if needsEscape(c) {
			fmt.Fprintf(&builder, "%%%02x", c)
			continue
		}
		builder.WriteByte(c)
	}
	return builder.String()
}

// unescapeFileName reverses escapeFileName
func unescapeFileName(name string) (string, error) {
	if !strings.Contains(name, "%") {
		return name, nil
	}
	var builder strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] != '%' {
			builder.WriteByte(name[i])
			continue
		}
		if i+2 >= len(name) {
			return "", fmt.Errorf("truncated escape in %q", name)
		}
		value, err := strconv.ParseUint(name[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid escape in %q: %w", name, err)
		}
		builder.WriteByte(byte(value))
		i += 2
	}
	return builder.String(), nil
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return true
	}
	switch c {
	case '\\', '/', '"', ':', '*', '?', '|', '<', '>', '$', '%':
		return true
	default:
		return false
	}
}

// objectFileName returns the file name of a key and version
func objectFileName(key, version string) string {
	if version == "" {
		version = nullVersion
	}
	return escapeFileName(key + "@" + version)
}

// parseObjectFileName splits a file name into key and version
func parseObjectFileName(name string) (key, version string, err error) {
	decoded, err := unescapeFileName(name)
	if err != nil {
		return "", "", err
	}
	at := strings.LastIndex(decoded, "@")
	if at < 0 {
		return "", "", fmt.Errorf("object file name %q has no version", name)
	}
	key, version = decoded[:at], decoded[at+1:]
	if version == nullVersion {
		version = ""
	}
	return key, version, nil
}

func partFileName(number int) string {
	return partPrefix + strconv.Itoa(number)
}

// checkName rejects bucket names and upload ids that would address a path
// outside of their parent directory
func checkName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %s %q", errors.ErrInvalidName, kind, name)
	}
	return nil
}

func (s *Store) bucketPath(bucket string) (string, error) {
	if err := checkName("bucket", bucket); err != nil {
		return "", err
	}
	return filepath.Join(s.root, bucket), nil
}

func (s *Store) objectPath(bucket string, obj *Object) (string, error) {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, objectFileName(obj.Key, obj.Version)), nil
}

func (s *Store) multipartPath(bucket, uploadID string) (string, error) {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	if err := checkName("upload id", uploadID); err != nil {
		return "", err
	}
	return filepath.Join(dir, multipartsDir, uploadID), nil
}
