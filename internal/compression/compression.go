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

package compression

import (
	"fmt"
	"io"
	"strings"

	"github.com/tochemey/emustate/errors"
)

// Algorithm identifies how a binary document is compressed on disk.
type Algorithm int

const (
	// None stores the document as is
	None Algorithm = iota
	// Zstd compresses with Zstandard
	Zstd
	// Brotli compresses with Brotli
	Brotli
)

// String returns the configuration name of the algorithm
func (a Algorithm) String() string {
	switch a {
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	default:
		return "none"
	}
}

// Parse maps a configuration name to an Algorithm.
func Parse(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "brotli", "br":
		return Brotli, nil
	default:
		return None, fmt.Errorf("%w: %q", errors.ErrUnknownCompression, name)
	}
}

// NewWriter wraps w so that everything written is compressed with a.
// Close must be called to flush the compressed stream; it does not close w.
func NewWriter(a Algorithm, w io.Writer) (io.WriteCloser, error) {
	switch a {
	case None:
		return nopWriteCloser{w}, nil
	case Zstd:
		return newZstdWriter(w)
	case Brotli:
		return newBrotliWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %d", errors.ErrUnknownCompression, int(a))
	}
}

// NewReader wraps r so that reads return the decompressed stream.
func NewReader(a Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch a {
	case None:
		return io.NopCloser(r), nil
	case Zstd:
		return newZstdReader(r)
	case Brotli:
		return newBrotliReader(r), nil
	default:
		return nil, fmt.Errorf("%w: %d", errors.ErrUnknownCompression, int(a))
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
