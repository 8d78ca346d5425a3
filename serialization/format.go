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

package serialization

import (
	"fmt"
	"strings"

	"github.com/tochemey/emustate/errors"
)

// Format is an on-disk encoding of an Envelope
type Format int

const (
	// FormatJSON is the structured text encoding, preferred for readability
	FormatJSON Format = iota
	// FormatBinary is a marker byte followed by an optionally compressed CBOR document
	FormatBinary
)

// knownFormats lists every format the engine can read, in extension probing order
var knownFormats = []Format{FormatJSON, FormatBinary}

const (
	markerPlain  byte = 'c'
	markerZstd   byte = 'z'
	markerBrotli byte = 'b'
)

// String returns the configuration name of the format
func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	default:
		return "json"
	}
}

// Extension returns the file extension of the format, including the dot
func (f Format) Extension() string {
	switch f {
	case FormatBinary:
		return ".bin"
	default:
		return ".json"
	}
}

// ParseFormat maps a configuration name to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "binary", "bin", "cbor":
		return FormatBinary, nil
	default:
		return FormatJSON, fmt.Errorf("%w: %q", errors.ErrUnknownFormat, name)
	}
}

// FormatOf returns the format of a persisted file from its extension
func FormatOf(path string) (Format, bool) {
	for _, format := range knownFormats {
		if strings.HasSuffix(path, format.Extension()) {
			return format, true
		}
	}
	return FormatJSON, false
}
