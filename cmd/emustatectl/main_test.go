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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/serialization"
)

func persist(t *testing.T, baseDir string, formats ...serialization.Format) {
	t.Helper()
	m, err := manifest.Open(filepath.Join(baseDir, manifest.FileName))
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Close()) }()

	engine := serialization.NewEngine(
		serialization.WithLogger(log.DiscardLogger),
		serialization.WithFormats(formats...),
		serialization.WithManifest(m, baseDir),
	)
	value := map[string]map[string][]string{"000000000000": {"us-east-1": {"orders"}}}
	require.NoError(t, engine.Write(context.Background(), filepath.Join(baseDir, "sqs", "store"), value))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	t.Run("With persisted containers", func(t *testing.T) {
		baseDir := t.TempDir()
		persist(t, baseDir, serialization.FormatJSON, serialization.FormatBinary)
		blob := filepath.Join(baseDir, "s3", "objects", "bucket", "key@null")
		require.NoError(t, os.MkdirAll(filepath.Dir(blob), 0o755))
		require.NoError(t, os.WriteFile(blob, []byte("12345"), 0o600))

		output, err := run(t, "ls", baseDir)
		require.NoError(t, err)
		assert.Contains(t, output, "SERVICE")
		assert.Regexp(t, `sqs\s+store\s+binary\s+\d+\s+\S+\s+[0-9a-f]{16}`, output)
		assert.Regexp(t, `sqs\s+store\s+json\s+\d+\s+\S+\s+[0-9a-f]{16}`, output)
		assert.Regexp(t, `s3\s+objects\s+files\s+5\s+`, output)
	})

	t.Run("With an empty base directory", func(t *testing.T) {
		output, err := run(t, "ls", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, output, "No persisted state found.")
	})

	t.Run("With a missing base directory", func(t *testing.T) {
		_, err := run(t, "ls", filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
	})
}

func TestInspect(t *testing.T) {
	baseDir := t.TempDir()
	persist(t, baseDir, serialization.FormatBinary)

	t.Run("With the envelope header", func(t *testing.T) {
		output, err := run(t, "inspect", filepath.Join(baseDir, "sqs", "store.bin"))
		require.NoError(t, err)
		assert.Contains(t, output, "format:  binary")
		assert.Contains(t, output, "version: 1")
		assert.Contains(t, output, `"orders"`)
	})

	t.Run("With the payload only", func(t *testing.T) {
		output, err := run(t, "inspect", "--data", filepath.Join(baseDir, "sqs", "store.bin"))
		require.NoError(t, err)
		assert.NotContains(t, output, "version:")
		assert.Contains(t, output, `"us-east-1"`)
	})

	t.Run("With a missing file", func(t *testing.T) {
		_, err := run(t, "inspect", filepath.Join(baseDir, "sqs", "missing.json"))
		require.Error(t, err)
	})
}
