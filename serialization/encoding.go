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
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/bufferpool"
	"github.com/tochemey/emustate/internal/compression"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CanonicalEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	if cborEncMode, err = encOptions.EncMode(); err != nil {
		panic(fmt.Sprintf("serialization: building cbor encoder: %v", err))
	}

	decOptions := cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels:  1024,
		MaxArrayElements: 1 << 27,
		MaxMapPairs:      1 << 27,
	}
	if cborDecMode, err = decOptions.DecMode(); err != nil {
		panic(fmt.Sprintf("serialization: building cbor decoder: %v", err))
	}
}

// errNotRepresentable reports a graph the JSON encoding cannot carry
var errNotRepresentable = stderrors.New("value not representable in JSON")

// encode renders envelope in format
func (e *Engine) encode(format Format, envelope *Envelope) ([]byte, error) {
	switch format {
	case FormatJSON:
		bytea, err := json.Marshal(envelope)
		if err != nil {
			var unsupported *json.UnsupportedValueError
			if stderrors.As(err, &unsupported) {
				return nil, fmt.Errorf("%w: %w", errNotRepresentable, err)
			}
			return nil, err
		}
		return bytea, nil
	case FormatBinary:
		return encodeBinary(e.compression, envelope)
	default:
		return nil, fmt.Errorf("%w: %d", errors.ErrUnknownFormat, int(format))
	}
}

func encodeBinary(algorithm compression.Algorithm, envelope *Envelope) ([]byte, error) {
	buffer := bufferpool.Buffers.Get()
	defer bufferpool.Buffers.Put(buffer)

	buffer.WriteByte(markerOf(algorithm))
	writer, err := compression.NewWriter(algorithm, buffer)
	if err != nil {
		return nil, err
	}
	if err := cborEncMode.NewEncoder(writer).Encode(envelope); err != nil {
		_ = writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(buffer.Bytes()), nil
}

// decode parses a persisted document of format into an envelope
func (e *Engine) decode(format Format, path string, raw []byte) (*Envelope, error) {
	var (
		document any
		err      error
	)
	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		err = decoder.Decode(&document)
	case FormatBinary:
		document, err = e.decodeBinary(path, raw)
	default:
		err = fmt.Errorf("%w: %d", errors.ErrUnknownFormat, int(format))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrInvalidEnvelope, path, err)
	}
	return envelopeFrom(document)
}

func (e *Engine) decodeBinary(path string, raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	var (
		algorithm compression.Algorithm
		payload   = raw[1:]
	)
	switch raw[0] {
	case markerPlain:
		algorithm = compression.None
	case markerZstd:
		algorithm = compression.Zstd
	case markerBrotli:
		algorithm = compression.Brotli
	default:
		e.logger.Warnf("persisted state at %s has unexpected marker %q - trying to load it anyway...", path, raw[0])
		algorithm = compression.None
		payload = raw
	}

	reader, err := compression.NewReader(algorithm, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var document any
	if err := cborDecMode.NewDecoder(reader).Decode(&document); err != nil {
		return nil, err
	}
	return document, nil
}

func markerOf(algorithm compression.Algorithm) byte {
	switch algorithm {
	case compression.Zstd:
		return markerZstd
	case compression.Brotli:
		return markerBrotli
	default:
		return markerPlain
	}
}
