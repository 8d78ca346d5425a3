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
	"crypto/md5"  //nolint:gosec
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"hash/crc64"
	"strings"

	"github.com/tochemey/emustate/errors"
)

// ChecksumAlgorithm names an additional object checksum
type ChecksumAlgorithm string

const (
	// ChecksumNone computes no additional checksum
	ChecksumNone ChecksumAlgorithm = ""
	// ChecksumCRC32 is CRC-32 (IEEE)
	ChecksumCRC32 ChecksumAlgorithm = "CRC32"
	// ChecksumCRC32C is CRC-32 (Castagnoli)
	ChecksumCRC32C ChecksumAlgorithm = "CRC32C"
	// ChecksumCRC64NVME is CRC-64/NVME
	ChecksumCRC64NVME ChecksumAlgorithm = "CRC64NVME"
	// ChecksumSHA1 is SHA-1
	ChecksumSHA1 ChecksumAlgorithm = "SHA1"
	// ChecksumSHA256 is SHA-256
	ChecksumSHA256 ChecksumAlgorithm = "SHA256"
)

var (
	castagnoliTable = crc32.MakeTable(crc32.Castagnoli)
	// nvmeTable uses the reversed CRC-64/NVME polynomial
	nvmeTable = crc64.MakeTable(0x9a6c9329ac4bc9b5)
)

// ParseChecksumAlgorithm maps a name to a ChecksumAlgorithm
func ParseChecksumAlgorithm(name string) (ChecksumAlgorithm, error) {
	algorithm := ChecksumAlgorithm(strings.ToUpper(strings.TrimSpace(name)))
	if _, err := algorithm.newHash(); err != nil {
		return ChecksumNone, err
	}
	return algorithm, nil
}

// newHash returns a fresh hash for the algorithm, nil for ChecksumNone
func (a ChecksumAlgorithm) newHash() (hash.Hash, error) {
	switch a {
	case ChecksumNone:
		return nil, nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumCRC32C:
		return crc32.New(castagnoliTable), nil
	case ChecksumCRC64NVME:
		return crc64.New(nvmeTable), nil
	case ChecksumSHA1:
		return sha1.New(), nil //nolint:gosec
	case ChecksumSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedChecksum, string(a))
	}
}

// hasher feeds written bytes into the MD5 ETag hash and the optional checksum
type hasher struct {
	md5      hash.Hash
	checksum hash.Hash
}

func newHasher(algorithm ChecksumAlgorithm) (*hasher, error) {
	checksum, err := algorithm.newHash()
	if err != nil {
		return nil, err
	}
	return &hasher{md5: md5.New(), checksum: checksum}, nil //nolint:gosec
}

// Write implements io.Writer
func (h *hasher) Write(p []byte) (int, error) {
	h.md5.Write(p)
	if h.checksum != nil {
		h.checksum.Write(p)
	}
	return len(p), nil
}

// ETag returns the hex MD5 of the bytes written so far
func (h *hasher) ETag() string {
	return hex.EncodeToString(h.md5.Sum(nil))
}

// Checksum returns the base64 checksum of the bytes written so far
func (h *hasher) Checksum() string {
	if h.checksum == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(h.checksum.Sum(nil))
}
