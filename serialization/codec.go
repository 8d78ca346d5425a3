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
	"reflect"
	"sync"
	"time"
)

// Codec converts values of one type to and from their flattened form.
// Flatten must return a tree made of nil, bool, integers, floats, strings,
// []byte, []any and map[string]any.
type Codec struct {
	// Type is the type handled by the codec
	Type reflect.Type
	// Flatten converts a value of Type
	Flatten func(value reflect.Value) (any, error)
	// Restore fills target, a settable value of Type, from data
	Restore func(data any, target reflect.Value) error
}

// Persistable is implemented by types that control their persisted form
// through an explicit projection.
type Persistable interface {
	// ToPersisted returns the projection to persist in place of the value
	ToPersisted() (any, error)
	// FromPersisted rebuilds the value. decode restores the persisted
	// projection into the pointer it is given.
	FromPersisted(decode func(target any) error) error
}

var persistableType = reflect.TypeOf((*Persistable)(nil)).Elem()

// timeLayouts are tried in order when restoring a timestamp. The naive
// layouts accept timestamps written without a zone, read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// TimeCodec persists time.Time as an RFC 3339 string with nanoseconds,
// preserving the zone offset. It also restores the legacy
// {"isoformat": "..."} object form.
func TimeCodec() Codec {
	return Codec{
		Type: reflect.TypeOf(time.Time{}),
		Flatten: func(value reflect.Value) (any, error) {
			return value.Interface().(time.Time).Format(time.RFC3339Nano), nil
		},
		Restore: func(data any, target reflect.Value) error {
			var text string
			switch x := data.(type) {
			case string:
				text = x
			case map[string]any:
				iso, ok := x["isoformat"].(string)
				if !ok {
					return fmt.Errorf("timestamp object without isoformat")
				}
				text = iso
			default:
				return fmt.Errorf("expected a timestamp, got %T", data)
			}

			for _, layout := range timeLayouts {
				if parsed, err := time.Parse(layout, text); err == nil {
					target.Set(reflect.ValueOf(parsed))
					return nil
				}
			}
			return fmt.Errorf("unparsable timestamp %q", text)
		},
	}
}

// DurationCodec persists time.Duration as a Go duration string and also
// accepts a number of nanoseconds.
func DurationCodec() Codec {
	return Codec{
		Type: reflect.TypeOf(time.Duration(0)),
		Flatten: func(value reflect.Value) (any, error) {
			return time.Duration(value.Int()).String(), nil
		},
		Restore: func(data any, target reflect.Value) error {
			if text, ok := data.(string); ok {
				duration, err := time.ParseDuration(text)
				if err != nil {
					return err
				}
				target.SetInt(int64(duration))
				return nil
			}
			nanos, err := toInt64(data)
			if err != nil {
				return err
			}
			target.SetInt(nanos)
			return nil
		},
	}
}

// StatelessCodec persists nothing for values of rtype and restores them as
// their zero value. It fits synchronization primitives, whose state is
// meaningless across processes.
func StatelessCodec(rtype reflect.Type) Codec {
	return Codec{
		Type: rtype,
		Flatten: func(reflect.Value) (any, error) {
			return nil, nil
		},
		Restore: func(_ any, target reflect.Value) error {
			target.Set(reflect.Zero(target.Type()))
			return nil
		},
	}
}

// builtinCodecs returns the codecs every engine starts with
func builtinCodecs() []Codec {
	return []Codec{
		TimeCodec(),
		DurationCodec(),
		StatelessCodec(reflect.TypeOf(sync.Mutex{})),
		StatelessCodec(reflect.TypeOf(sync.RWMutex{})),
		StatelessCodec(reflect.TypeOf(sync.WaitGroup{})),
		StatelessCodec(reflect.TypeOf(sync.Once{})),
	}
}

// builtinTypes are registered so that interface values holding them resolve
var builtinTypes = []reflect.Type{
	reflect.TypeOf(false),
	reflect.TypeOf(""),
	reflect.TypeOf(int(0)),
	reflect.TypeOf(int8(0)),
	reflect.TypeOf(int16(0)),
	reflect.TypeOf(int32(0)),
	reflect.TypeOf(int64(0)),
	reflect.TypeOf(uint(0)),
	reflect.TypeOf(uint8(0)),
	reflect.TypeOf(uint16(0)),
	reflect.TypeOf(uint32(0)),
	reflect.TypeOf(uint64(0)),
	reflect.TypeOf(float32(0)),
	reflect.TypeOf(float64(0)),
	reflect.TypeOf([]byte(nil)),
	reflect.TypeOf([]string(nil)),
	reflect.TypeOf([]any(nil)),
	reflect.TypeOf(map[string]any(nil)),
	reflect.TypeOf(map[string]string(nil)),
	reflect.TypeOf(time.Time{}),
	reflect.TypeOf(time.Duration(0)),
}
