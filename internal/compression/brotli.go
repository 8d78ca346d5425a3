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
	"io"
	"sync"

	"github.com/andybalholm/brotli"
)

var brotliReaderPool = sync.Pool{
	New: func() any {
		return brotli.NewReader(nil)
	},
}

var brotliWriterPool = sync.Pool{
	New: func() any {
		return brotli.NewWriterLevel(nil, brotli.DefaultCompression)
	},
}

type brotliWriter struct {
	writer *brotli.Writer
}

func newBrotliWriter(w io.Writer) *brotliWriter {
	writer := brotliWriterPool.Get().(*brotli.Writer)
	writer.Reset(w)
	return &brotliWriter{writer: writer}
}

func (b *brotliWriter) Write(p []byte) (int, error) {
	if b.writer == nil {
		return 0, io.ErrClosedPipe
	}
	return b.writer.Write(p)
}

func (b *brotliWriter) Close() error {
	if b.writer == nil {
		return nil
	}
	err := b.writer.Close()
	b.writer.Reset(nil)
	brotliWriterPool.Put(b.writer)
	b.writer = nil
	return err
}

type brotliReader struct {
	reader *brotli.Reader
}

func newBrotliReader(r io.Reader) *brotliReader {
	reader := brotliReaderPool.Get().(*brotli.Reader)
	_ = reader.Reset(r)
	return &brotliReader{reader: reader}
}

func (b *brotliReader) Read(p []byte) (int, error) {
	if b.reader == nil {
		return 0, io.EOF
	}
	return b.reader.Read(p)
}

func (b *brotliReader) Close() error {
	if b.reader == nil {
		return nil
	}
	_ = b.reader.Reset(nil)
	brotliReaderPool.Put(b.reader)
	b.reader = nil
	return nil
}
