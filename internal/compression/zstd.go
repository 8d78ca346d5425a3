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

	"github.com/klauspost/compress/zstd"
)

var zstdEncodersPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	},
}

var zstdDecodersPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(512<<20))
		return dec
	},
}

// zstdWriter returns its encoder to the pool on Close.
type zstdWriter struct {
	encoder *zstd.Encoder
}

func newZstdWriter(w io.Writer) (*zstdWriter, error) {
	enc, ok := zstdEncodersPool.Get().(*zstd.Encoder)
	if !ok || enc == nil {
		var err error
		if enc, err = zstd.NewWriter(nil); err != nil {
			return nil, err
		}
	}
	enc.Reset(w)
	return &zstdWriter{encoder: enc}, nil
}

func (z *zstdWriter) Write(p []byte) (int, error) {
	if z.encoder == nil {
		return 0, io.ErrClosedPipe
	}
	return z.encoder.Write(p)
}

func (z *zstdWriter) Close() error {
	if z.encoder == nil {
		return nil
	}
	err := z.encoder.Close()
	z.encoder.Reset(nil)
	zstdEncodersPool.Put(z.encoder)
	z.encoder = nil
	return err
}

// zstdReader returns its decoder to the pool on Close.
type zstdReader struct {
	decoder *zstd.Decoder
}

func newZstdReader(r io.Reader) (*zstdReader, error) {
	dec, ok := zstdDecodersPool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		var err error
		if dec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1)); err != nil {
			return nil, err
		}
	}
	if err := dec.Reset(r); err != nil {
		zstdDecodersPool.Put(dec)
		return nil, err
	}
	return &zstdReader{decoder: dec}, nil
}

func (z *zstdReader) Read(p []byte) (int, error) {
	if z.decoder == nil {
		return 0, io.EOF
	}
	return z.decoder.Read(p)
}

func (z *zstdReader) Close() error {
	if z.decoder == nil {
		return nil
	}
	// a decoder cannot be reused after zstd.Decoder.Close, so only detach it
	_ = z.decoder.Reset(nil)
	zstdDecodersPool.Put(z.decoder)
	z.decoder = nil
	return nil
}
