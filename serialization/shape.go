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
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Shape returns the structural fingerprint of rtype as recorded in
// envelopes. Pointer types share the fingerprint of their element type.
func (e *Engine) Shape(rtype reflect.Type) string {
	for rtype != nil && rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}
	if rtype == nil {
		return ""
	}
	var builder strings.Builder
	e.describe(&builder, rtype, make(map[reflect.Type]int))
	return fmt.Sprintf("%016x", xxh3.HashString(builder.String()))
}

// describe writes the structural description of rtype: the persisted field
// names and kinds reachable from it. Type names never enter the description
// so that renamed or moved types keep their fingerprint. A struct type already
// being described is written as a reference to its nesting depth, which keeps
// recursive types finite.
func (e *Engine) describe(builder *strings.Builder, rtype reflect.Type, seen map[reflect.Type]int) {
	if _, ok := e.codecs.Get(rtype); ok {
		builder.WriteString("codec(" + rtype.Kind().String() + ")")
		return
	}
	if rtype.Implements(persistableType) || (rtype.Kind() != reflect.Pointer && reflect.PointerTo(rtype).Implements(persistableType)) {
		builder.WriteString("persisted")
		return
	}

	switch rtype.Kind() {
	case reflect.Slice:
		builder.WriteString("[]")
		e.describe(builder, rtype.Elem(), seen)
	case reflect.Array:
		builder.WriteString("[" + strconv.Itoa(rtype.Len()) + "]")
		e.describe(builder, rtype.Elem(), seen)
	case reflect.Map:
		builder.WriteString("map[")
		e.describe(builder, rtype.Key(), seen)
		builder.WriteString("]")
		e.describe(builder, rtype.Elem(), seen)
	case reflect.Pointer:
		builder.WriteString("*")
		e.describe(builder, rtype.Elem(), seen)
	case reflect.Interface:
		builder.WriteString("any")
	case reflect.Struct:
		if depth, ok := seen[rtype]; ok {
			builder.WriteString("ref(" + strconv.Itoa(depth) + ")")
			return
		}
		seen[rtype] = len(seen)
		defer delete(seen, rtype)

		builder.WriteString("struct{")
		for _, field := range persistedFields(rtype) {
			builder.WriteString(field.name)
			builder.WriteByte(' ')
			e.describe(builder, rtype.FieldByIndex(field.index).Type, seen)
			builder.WriteByte(';')
		}
		builder.WriteString("}")
	default:
		builder.WriteString(rtype.Kind().String())
	}
}
