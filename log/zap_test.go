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

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZap(t *testing.T) {
	t.Run("With Info level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		require.NotNil(t, logger)

		logger.Debug("not emitted")
		assert.Empty(t, buffer.String())

		logger.Infof("persisted %s", "sqs")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "persisted sqs", entry["msg"])
		assert.Equal(t, InfoLevel, logger.LogLevel())
	})
	t.Run("With Warn level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(WarningLevel, buffer)
		logger.Info("dropped")
		assert.Empty(t, buffer.String())
		logger.Warn("kept")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, WarningLevel, logger.LogLevel())
	})
	t.Run("With Error level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)
		logger.Warnf("dropped %d", 1)
		assert.Empty(t, buffer.String())
		logger.Errorf("saving %s failed", "s3")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "error", entry["level"])
		assert.Equal(t, "saving s3 failed", entry["msg"])
		assert.Contains(t, entry, "stacktrace")
	})
	t.Run("With panic", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		assert.Panics(t, func() { logger.Panicf("double start of %s", "tracker") })
		assert.True(t, strings.Contains(buffer.String(), "double start of tracker"))
	})
	t.Run("With Flush on non file output", func(t *testing.T) {
		logger := NewZap(InfoLevel, new(bytes.Buffer))
		require.NoError(t, logger.Flush())
	})
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger
	logger.Info("info")
	logger.Warnf("warn %s", "msg")
	logger.Errorf("error %s", "msg")
	require.Equal(t, PanicLevel, logger.LogLevel())
	require.NoError(t, logger.Flush())
	assert.PanicsWithValue(t, "panic 42", func() {
		logger.Panicf("panic %d", 42)
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarningLevel, ParseLevel(" warn "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("unknown"))
	assert.Equal(t, "WARNING", WarningLevel.String())
}

func decodeEntry(t *testing.T, buffer *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.NotEmpty(t, lines)
	entry := make(map[string]any)
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}
