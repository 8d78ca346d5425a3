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

package types

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Registry resolves persisted type names to Go types. Names are derived
// from the package path and type name, so they stay stable across builds.
// A rename table maps historical name prefixes (moved packages, renamed
// types) to the current ones before lookup.
type Registry interface {
	// Register records the type of v. v is a pointer to a value of the type,
	// or a reflect.Type.
	Register(v any)
	// Deregister removes the type of v from the registry
	Deregister(v any)
	// Exists returns true when the type of v is registered
	Exists(v any) bool
	// TypeOf resolves a persisted name, after applying renames
	TypeOf(name string) (reflect.Type, bool)
	// Rename maps every name starting with oldPrefix to newPrefix on lookup
	Rename(oldPrefix, newPrefix string)
	// Resolve applies the rename table to a name
	Resolve(name string) string
	// Names returns the sorted registered names
	Names() []string
}

type rename struct {
	old string
	new string
}

type registry struct {
	mu       sync.RWMutex
	typesMap map[string]reflect.Type
	renames  []rename
}

var _ Registry = (*registry)(nil)

// NewRegistry creates a new types registry
func NewRegistry() Registry {
	return &registry{
		typesMap: make(map[string]reflect.Type),
	}
}

// Register records the type of v
func (r *registry) Register(v any) {
	rtype := reflectType(v)
	r.mu.Lock()
	r.typesMap[NameOf(rtype)] = rtype
	r.mu.Unlock()
}

// Deregister removes the registered type from the registry
func (r *registry) Deregister(v any) {
	r.mu.Lock()
	delete(r.typesMap, NameOf(reflectType(v)))
	r.mu.Unlock()
}

// Exists return true when a given type is in the registry
func (r *registry) Exists(v any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.typesMap[NameOf(reflectType(v))]
	return ok
}

// TypeOf returns the type registered under name
func (r *registry) TypeOf(name string) (reflect.Type, bool) {
	resolved := r.Resolve(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.typesMap[resolved]
	return out, ok
}

// Rename adds an entry to the rename table. Entries apply in insertion order.
func (r *registry) Rename(oldPrefix, newPrefix string) {
	r.mu.Lock()
	r.renames = append(r.renames, rename{old: lowTrim(oldPrefix), new: lowTrim(newPrefix)})
	r.mu.Unlock()
}

// Resolve applies the rename table to name
func (r *registry) Resolve(name string) string {
	name = lowTrim(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rn := range r.renames {
		if strings.HasPrefix(name, rn.old) {
			name = rn.new + strings.TrimPrefix(name, rn.old)
		}
	}
	return name
}

// Names returns the registered names, sorted
func (r *registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.typesMap))
	for name := range r.typesMap {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// NameOf returns the persisted name of a type: its import path and name for
// named types, and its Go syntax otherwise.
func NameOf(rtype reflect.Type) string {
	if rtype == nil {
		return ""
	}
	if rtype.Name() != "" && rtype.PkgPath() != "" {
		return lowTrim(rtype.PkgPath() + "." + rtype.Name())
	}
	return lowTrim(rtype.String())
}

// reflectType returns the runtime type of object
func reflectType(v any) reflect.Type {
	switch t := v.(type) {
	case reflect.Type:
		return t
	default:
		rtype := reflect.TypeOf(v)
		if rtype.Kind() == reflect.Pointer {
			return rtype.Elem()
		}
		return rtype
	}
}

// lowTrim trim any space and lower the string value
func lowTrim(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
