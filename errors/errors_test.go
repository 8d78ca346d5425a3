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

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	err := errors.New("disk full")
	saveErr := NewSaveError("sqs", "store", err)
	require.EqualError(t, saveErr, "save sqs/store: disk full")
	assert.ErrorIs(t, saveErr, err)
	assert.Equal(t, "sqs", saveErr.Service)

	loadErr := NewLoadError("s3", "backend", ErrShapeMismatch)
	require.EqualError(t, loadErr, "load s3/backend: persisted state shape does not match")
	assert.ErrorIs(t, loadErr, ErrShapeMismatch)

	var target *LoadError
	require.True(t, errors.As(error(loadErr), &target))
	assert.Equal(t, "backend", target.Container)

	codecErr := NewCodecError("chan int", "$.Queues[0]", ErrUnsupportedType)
	require.EqualError(t, codecErr, "codec chan int at $.Queues[0]: unsupported type in state graph")
	assert.ErrorIs(t, codecErr, ErrUnsupportedType)
}
