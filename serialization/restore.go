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
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/types"
)

// restorer fills typed values from a flattened tree
type restorer struct {
	engine *Engine
}

func (r *restorer) restore(data any, target reflect.Value, path string) error {
	rtype := target.Type()
	if codec, ok := r.engine.codecs.Get(rtype); ok {
		if err := codec.Restore(data, target); err != nil {
			return errors.NewCodecError(types.NameOf(rtype), path, err)
		}
		return nil
	}

	if rtype.Kind() != reflect.Interface {
		if handled, err := r.restorePersistable(data, target, path); handled {
			return err
		}
	}

	if data == nil {
		target.Set(reflect.Zero(rtype))
		return nil
	}

	var err error
	switch rtype.Kind() {
	case reflect.Bool:
		value, ok := data.(bool)
		if !ok {
			err = fmt.Errorf("expected a boolean, got %T", data)
			break
		}
		target.SetBool(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var value int64
		if value, err = toInt64(data); err == nil {
			if target.OverflowInt(value) {
				err = fmt.Errorf("%d overflows %s", value, rtype)
				break
			}
			target.SetInt(value)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var value uint64
		if value, err = toUint64(data); err == nil {
			if target.OverflowUint(value) {
				err = fmt.Errorf("%d overflows %s", value, rtype)
				break
			}
			target.SetUint(value)
		}
	case reflect.Float32, reflect.Float64:
		var value float64
		if value, err = toFloat64(data); err == nil {
			target.SetFloat(value)
		}
	case reflect.String:
		value, ok := data.(string)
		if !ok {
			err = fmt.Errorf("expected a string, got %T", data)
			break
		}
		target.SetString(value)
	case reflect.Slice:
		err = r.restoreSlice(data, target, path)
	case reflect.Array:
		err = r.restoreArray(data, target, path)
	case reflect.Map:
		err = r.restoreMap(data, target, path)
	case reflect.Struct:
		err = r.restoreStruct(data, target, path)
	case reflect.Pointer:
		value := reflect.New(rtype.Elem())
		if err = r.restore(data, value.Elem(), path); err == nil {
			target.Set(value)
		}
	case reflect.Interface:
		err = r.restoreInterface(data, target, path)
	default:
		err = errors.ErrUnsupportedType
	}

	if err != nil {
		if _, ok := err.(*errors.CodecError); ok {
			return err
		}
		return errors.NewCodecError(types.NameOf(rtype), path, err)
	}
	return nil
}

// restorePersistable rebuilds values whose type implements Persistable
func (r *restorer) restorePersistable(data any, target reflect.Value, path string) (bool, error) {
	rtype := target.Type()
	decode := func(projection any) error {
		value := reflect.ValueOf(projection)
		if value.Kind() != reflect.Pointer || value.IsNil() {
			return errors.ErrInvalidTarget
		}
		return r.restore(data, value.Elem(), path)
	}

	switch {
	case rtype.Kind() == reflect.Pointer && rtype.Implements(persistableType):
		if data == nil {
			target.Set(reflect.Zero(rtype))
			return true, nil
		}
		value := reflect.New(rtype.Elem())
		if err := value.Interface().(Persistable).FromPersisted(decode); err != nil {
			return true, errors.NewCodecError(types.NameOf(rtype.Elem()), path, err)
		}
		target.Set(value)
		return true, nil
	case rtype.Kind() != reflect.Pointer && reflect.PointerTo(rtype).Implements(persistableType):
		value := reflect.New(rtype)
		if data != nil {
			if err := value.Interface().(Persistable).FromPersisted(decode); err != nil {
				return true, errors.NewCodecError(types.NameOf(rtype), path, err)
			}
		}
		target.Set(value.Elem())
		return true, nil
	default:
		return false, nil
	}
}

func (r *restorer) restoreSlice(data any, target reflect.Value, path string) error {
	rtype := target.Type()
	if rtype.Elem().Kind() == reflect.Uint8 {
		bytea, err := toBytes(data)
		if err != nil {
			return err
		}
		target.SetBytes(bytea)
		return nil
	}

	list, ok := data.([]any)
	if !ok {
		return fmt.Errorf("expected a list, got %T", data)
	}
	slice := reflect.MakeSlice(rtype, len(list), len(list))
	for i, item := range list {
		if err := r.restore(item, slice.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	target.Set(slice)
	return nil
}

func (r *restorer) restoreArray(data any, target reflect.Value, path string) error {
	if target.Type().Elem().Kind() == reflect.Uint8 {
		bytea, err := toBytes(data)
		if err != nil {
			return err
		}
		reflect.Copy(target, reflect.ValueOf(bytea))
		return nil
	}

	list, ok := data.([]any)
	if !ok {
		return fmt.Errorf("expected a list, got %T", data)
	}
	for i := 0; i < target.Len() && i < len(list); i++ {
		if err := r.restore(list[i], target.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}

func (r *restorer) restoreMap(data any, target reflect.Value, path string) error {
	rtype := target.Type()
	keyType, elemType := rtype.Key(), rtype.Elem()

	if keyType.Kind() == reflect.String {
		object, ok := data.(map[string]any)
		if !ok {
			return fmt.Errorf("expected an object, got %T", data)
		}
		result := reflect.MakeMapWithSize(rtype, len(object))
		for key, item := range object {
			value := reflect.New(elemType).Elem()
			if err := r.restore(item, value, path+"."+key); err != nil {
				return err
			}
			result.SetMapIndex(reflect.ValueOf(key).Convert(keyType), value)
		}
		target.Set(result)
		return nil
	}

	pairs, ok := data.([]any)
	if !ok {
		return fmt.Errorf("expected a list of pairs, got %T", data)
	}
	result := reflect.MakeMapWithSize(rtype, len(pairs))
	for i, raw := range pairs {
		pair, ok := raw.([]any)
		if !ok || len(pair) != 2 {
			return fmt.Errorf("entry %d is not a [key, value] pair", i)
		}
		key := reflect.New(keyType).Elem()
		if err := r.restore(pair[0], key, path+".<key>"); err != nil {
			return err
		}
		value := reflect.New(elemType).Elem()
		if err := r.restore(pair[1], value, path+"["+fmt.Sprint(pair[0])+"]"); err != nil {
			return err
		}
		result.SetMapIndex(key, value)
	}
	target.Set(result)
	return nil
}

// restoreStruct fills the persisted fields present in data. Unknown keys
// are ignored and absent fields keep their zero value.
func (r *restorer) restoreStruct(data any, target reflect.Value, path string) error {
	object, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("expected an object, got %T", data)
	}
	for _, field := range persistedFields(target.Type()) {
		item, ok := object[field.name]
		if !ok {
			continue
		}
		if err := r.restore(item, target.FieldByIndex(field.index), path+"."+field.name); err != nil {
			return err
		}
	}
	return nil
}

func (r *restorer) restoreInterface(data any, target reflect.Value, path string) error {
	object, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("expected a tagged value, got %T", data)
	}
	name, ok := object[typeTag].(string)
	if !ok {
		return fmt.Errorf("tagged value without %s", typeTag)
	}

	pointer := strings.HasPrefix(name, ptrMark)
	rtype, ok := r.engine.types.TypeOf(strings.TrimPrefix(name, ptrMark))
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownType, name)
	}

	value := reflect.New(rtype)
	if err := r.restore(object[valueTag], value.Elem(), path); err != nil {
		return err
	}
	if !pointer {
		value = value.Elem()
	}
	if !value.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("%s is not assignable to %s", value.Type(), target.Type())
	}
	target.Set(value)
	return nil
}

// toBytes accepts raw bytes (binary encoding) and base64 text (JSON encoding)
func toBytes(data any) ([]byte, error) {
	switch x := data.(type) {
	case []byte:
		return x, nil
	case string:
		return base64.StdEncoding.DecodeString(x)
	default:
		return nil, fmt.Errorf("expected bytes, got %T", data)
	}
}
