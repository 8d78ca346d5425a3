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

package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/emustate/errors"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("account/region/queue ", 512))
	for _, algorithm := range []Algorithm{None, Zstd, Brotli} {
		t.Run(algorithm.String(), func(t *testing.T) {
			buffer := new(bytes.Buffer)
			writer, err := NewWriter(algorithm, buffer)
			require.NoError(t, err)
			_, err = writer.Write(payload)
			require.NoError(t, err)
			require.NoError(t, writer.Close())
			require.NoError(t, writer.Close())

			if algorithm != None {
				assert.Less(t, buffer.Len(), len(payload))
			}

			reader, err := NewReader(algorithm, buffer)
			require.NoError(t, err)
			actual, err := io.ReadAll(reader)
			require.NoError(t, err)
			require.NoError(t, reader.Close())
			assert.Equal(t, payload, actual)
		})
	}
}

func TestParse(t *testing.T) {
	cases := map[string]Algorithm{"": None, "none": None, "ZSTD": Zstd, "br": Brotli, "brotli": Brotli}
	for name, expected := range cases {
		actual, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}
	_, err := Parse("lz4")
	require.ErrorIs(t, err, errors.ErrUnknownCompression)
}
