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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queue struct {
	Name string
}

type topic struct{}

func TestRegistry(t *testing.T) {
	t.Run("With registration", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(new(queue))
		assert.True(t, registry.Exists(new(queue)))
		assert.True(t, registry.Exists(reflect.TypeOf(queue{})))
		assert.False(t, registry.Exists(new(topic)))

		name := NameOf(reflect.TypeOf(queue{}))
		assert.Equal(t, "github.com/tochemey/emustate/internal/types.queue", name)

		rtype, ok := registry.TypeOf(name)
		require.True(t, ok)
		assert.Equal(t, reflect.TypeOf(queue{}), rtype)
		assert.Equal(t, []string{name}, registry.Names())

		registry.Deregister(new(queue))
		assert.False(t, registry.Exists(new(queue)))
	})
	t.Run("With renames", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(new(queue))
		registry.Rename("github.com/tochemey/emustate/internal/legacy", "github.com/tochemey/emustate/internal/types")

		rtype, ok := registry.TypeOf("github.com/tochemey/emustate/internal/legacy.Queue")
		require.True(t, ok)
		assert.Equal(t, reflect.TypeOf(queue{}), rtype)
		assert.Equal(t, "github.com/tochemey/emustate/internal/types.queue",
			registry.Resolve("github.com/tochemey/emustate/internal/legacy.queue"))
	})
	t.Run("With unnamed types", func(t *testing.T) {
		assert.Equal(t, "map[string]int", NameOf(reflect.TypeOf(map[string]int{})))
		assert.Equal(t, "", NameOf(nil))
	})
}
