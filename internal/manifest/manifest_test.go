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

package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/emustate/errors"
)

func TestManifest(t *testing.T) {
	t.Run("With digests", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		manifest, err := Open(path)
		require.NoError(t, err)

		_, ok := manifest.Digest("sqs/store")
		assert.False(t, ok)

		require.NoError(t, manifest.Record("sqs/store", 42))
		require.NoError(t, manifest.Record("s3/backend", 7))

		digest, ok := manifest.Digest("sqs/store")
		require.True(t, ok)
		assert.EqualValues(t, 42, digest)

		entries, err := manifest.Entries()
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "s3/backend", entries[0].Key)
		assert.EqualValues(t, 7, entries[0].Digest)
		assert.False(t, entries[0].WrittenAt.IsZero())

		require.NoError(t, manifest.Forget("s3/backend"))
		_, ok = manifest.Digest("s3/backend")
		assert.False(t, ok)

		require.NoError(t, manifest.Close())
		require.NoError(t, manifest.Close())
	})
	t.Run("With migration markers surviving a reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", FileName)
		manifest, err := Open(path)
		require.NoError(t, err)

		assert.False(t, manifest.Migrated("s3/objects.json"))
		require.NoError(t, manifest.MarkMigrated("s3/objects.json"))
		require.NoError(t, manifest.Close())

		reopened, err := OpenReadOnly(path)
		require.NoError(t, err)
		assert.True(t, reopened.Migrated("s3/objects.json"))
		require.NoError(t, reopened.Close())
	})
	t.Run("With a closed manifest", func(t *testing.T) {
		manifest, err := Open(filepath.Join(t.TempDir(), FileName))
		require.NoError(t, err)
		require.NoError(t, manifest.Close())

		assert.ErrorIs(t, manifest.Record("key", 1), gerrors.ErrManifestClosed)
		assert.ErrorIs(t, manifest.MarkMigrated("key"), gerrors.ErrManifestClosed)
		_, err = manifest.Entries()
		assert.ErrorIs(t, err, gerrors.ErrManifestClosed)
		assert.False(t, manifest.Migrated("key"))
	})
}
