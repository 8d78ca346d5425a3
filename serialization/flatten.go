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
	"sort"
	"strconv"
	"strings"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/types"
)

const (
	typeTag  = "@type"
	valueTag = "@value"
	ptrMark  = "*"
)

// flattener turns a value into a tree of plain data
type flattener struct {
	engine *Engine
	// visiting holds the pointers and maps on the current path
	visiting map[uintptr]struct{}
}

func newFlattener(engine *Engine) *flattener {
	return &flattener{engine: engine, visiting: make(map[uintptr]struct{})}
}

func (f *flattener) flatten(value reflect.Value, path string) (any, error) {
	if !value.IsValid() {
		return nil, nil
	}

	rtype := value.Type()
	if codec, ok := f.engine.codecs.Get(rtype); ok {
		data, err := codec.Flatten(value)
		if err != nil {
			return nil, errors.NewCodecError(types.NameOf(rtype), path, err)
		}
		return data, nil
	}

	if persistable, ok := asPersistable(value); ok {
		if persistable == nil {
			return nil, nil
		}
		projection, err := persistable.ToPersisted()
		if err != nil {
			return nil, errors.NewCodecError(types.NameOf(rtype), path, err)
		}
		return f.flatten(reflect.ValueOf(projection), path)
	}

	switch rtype.Kind() {
	case reflect.Bool:
		return value.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return value.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return value.Float(), nil
	case reflect.String:
		return value.String(), nil
	case reflect.Slice:
		if value.IsNil() {
			return nil, nil
		}
		if rtype.Elem().Kind() == reflect.Uint8 {
			return append([]byte(nil), value.Bytes()...), nil
		}
		return f.flattenList(value, path)
	case reflect.Array:
		if rtype.Elem().Kind() == reflect.Uint8 {
			bytea := make([]byte, value.Len())
			reflect.Copy(reflect.ValueOf(bytea), value)
			return bytea, nil
		}
		return f.flattenList(value, path)
	case reflect.Map:
		if value.IsNil() {
			return nil, nil
		}
		return f.guarded(value.Pointer(), path, func() (any, error) {
			return f.flattenMap(value, path)
		})
	case reflect.Struct:
		return f.flattenStruct(value, path)
	case reflect.Pointer:
		if value.IsNil() {
			return nil, nil
		}
		return f.guarded(value.Pointer(), path, func() (any, error) {
			return f.flatten(value.Elem(), path)
		})
	case reflect.Interface:
		if value.IsNil() {
			return nil, nil
		}
		return f.flattenInterface(value.Elem(), path)
	default:
		return nil, errors.NewCodecError(types.NameOf(rtype), path, errors.ErrUnsupportedType)
	}
}

// guarded rejects re-entering a pointer or map already on the current path
func (f *flattener) guarded(address uintptr, path string, fn func() (any, error)) (any, error) {
	if _, ok := f.visiting[address]; ok {
		return nil, errors.NewCodecError("", path, errors.ErrCyclicGraph)
	}
	f.visiting[address] = struct{}{}
	defer delete(f.visiting, address)
	return fn()
}

func (f *flattener) flattenList(value reflect.Value, path string) (any, error) {
	list := make([]any, value.Len())
	for i := range list {
		item, err := f.flatten(value.Index(i), path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		list[i] = item
	}
	return list, nil
}

// flattenMap writes string-keyed maps as objects and any other map as a
// list of [key, value] pairs sorted by key.
func (f *flattener) flattenMap(value reflect.Value, path string) (any, error) {
	if value.Type().Key().Kind() == reflect.String {
		object := make(map[string]any, value.Len())
		iter := value.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			item, err := f.flatten(iter.Value(), path+"."+key)
			if err != nil {
				return nil, err
			}
			object[key] = item
		}
		return object, nil
	}

	type pair struct {
		sortKey string
		item    []any
	}
	pairs := make([]pair, 0, value.Len())
	iter := value.MapRange()
	for iter.Next() {
		key, err := f.flatten(iter.Key(), path+".<key>")
		if err != nil {
			return nil, err
		}
		sortKey := fmt.Sprint(key)
		item, err := f.flatten(iter.Value(), path+"["+sortKey+"]")
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{sortKey: sortKey, item: []any{key, item}})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].sortKey < pairs[j].sortKey })

	list := make([]any, len(pairs))
	for i, p := range pairs {
		list[i] = p.item
	}
	return list, nil
}

func (f *flattener) flattenStruct(value reflect.Value, path string) (any, error) {
	fields := persistedFields(value.Type())
	object := make(map[string]any, len(fields))
	for _, field := range fields {
		item, err := f.flatten(value.FieldByIndex(field.index), path+"."+field.name)
		if err != nil {
			return nil, err
		}
		object[field.name] = item
	}
	return object, nil
}

// flattenInterface tags the dynamic value with its registered type name
func (f *flattener) flattenInterface(value reflect.Value, path string) (any, error) {
	rtype := value.Type()
	name, base := interfaceTypeName(rtype)
	if _, ok := f.engine.types.TypeOf(types.NameOf(base)); !ok {
		return nil, errors.NewCodecError(name, path, fmt.Errorf("%w: unregistered interface type", errors.ErrUnsupportedType))
	}

	item, err := f.flatten(value, path)
	if err != nil {
		return nil, err
	}
	return map[string]any{typeTag: name, valueTag: item}, nil
}

// interfaceTypeName returns the tag of a dynamic type and the registered
// type it refers to. Pointers to named types are tagged "*name".
func interfaceTypeName(rtype reflect.Type) (string, reflect.Type) {
	if rtype.Kind() == reflect.Pointer && rtype.Elem().Name() != "" {
		return ptrMark + types.NameOf(rtype.Elem()), rtype.Elem()
	}
	return types.NameOf(rtype), rtype
}

// asPersistable returns the Persistable view of value when its type or its
// pointer type implements Persistable. A nil Persistable pointer is reported
// as ok with a nil result.
func asPersistable(value reflect.Value) (Persistable, bool) {
	rtype := value.Type()
	if rtype.Implements(persistableType) {
		if rtype.Kind() == reflect.Pointer && value.IsNil() {
			return nil, true
		}
		return value.Interface().(Persistable), true
	}
	if rtype.Kind() != reflect.Pointer && reflect.PointerTo(rtype).Implements(persistableType) {
		if value.CanAddr() {
			return value.Addr().Interface().(Persistable), true
		}
		copied := reflect.New(rtype)
		copied.Elem().Set(value)
		return copied.Interface().(Persistable), true
	}
	return nil, false
}

type persistedField struct {
	name  string
	index []int
}

// persistedFields lists the exported fields of a struct type under their
// persisted names. A `persist:"name"` tag renames a field and `persist:"-"`
// skips it.
func persistedFields(rtype reflect.Type) []persistedField {
	fields := make([]persistedField, 0, rtype.NumField())
	for i := 0; i < rtype.NumField(); i++ {
		field := rtype.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("persist"); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fields = append(fields, persistedField{name: name, index: field.Index})
	}
	return fields
}
