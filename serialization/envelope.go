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
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/tochemey/emustate/errors"
)

// Version is the current envelope format version
const Version = 1

const (
	versionKey = "v"
	typeKey    = "type"
	shapeKey   = "shape"
	dataKey    = "data"
)

// Envelope wraps a flattened graph on disk
type Envelope struct {
	// Version is the envelope format version
	Version int `json:"v" cbor:"v"`
	// Type is the persisted name of the root type
	Type string `json:"type,omitempty" cbor:"type,omitempty"`
	// Shape is the structural fingerprint of the root type. Legacy envelopes
	// carry none.
	Shape string `json:"shape,omitempty" cbor:"shape,omitempty"`
	// Data is the flattened graph
	Data any `json:"data" cbor:"data"`
}

// envelopeFrom validates a decoded document and extracts the envelope.
// A missing version is reported as -1 so that it surfaces as a mismatch.
func envelopeFrom(document any) (*Envelope, error) {
	fields, ok := document.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document is %T", errors.ErrInvalidEnvelope, document)
	}

	data, ok := fields[dataKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", errors.ErrInvalidEnvelope, dataKey)
	}

	envelope := &Envelope{Version: -1, Data: data}
	if raw, ok := fields[versionKey]; ok {
		version, err := toInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: version: %w", errors.ErrInvalidEnvelope, err)
		}
		envelope.Version = int(version)
	}
	if raw, ok := fields[typeKey].(string); ok {
		envelope.Type = raw
	}
	if raw, ok := fields[shapeKey].(string); ok {
		envelope.Shape = raw
	}
	return envelope, nil
}

func toInt64(data any) (int64, error) {
	switch x := data.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case json.Number:
		return strconv.ParseInt(x.String(), 10, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", data)
	}
}

func toUint64(data any) (uint64, error) {
	switch x := data.(type) {
	case uint64:
		return x, nil
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("%d is negative", x)
		}
		return uint64(x), nil
	case int:
		if x < 0 {
			return 0, fmt.Errorf("%d is negative", x)
		}
		return uint64(x), nil
	case float64:
		if x < 0 || x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an unsigned integer", x)
		}
		return uint64(x), nil
	case json.Number:
		return strconv.ParseUint(x.String(), 10, 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", data)
	}
}

func toFloat64(data any) (float64, error) {
	switch x := data.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	default:
		return 0, fmt.Errorf("expected a number, got %T", data)
	}
}
