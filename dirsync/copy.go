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

package dirsync

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"

	"github.com/tochemey/emustate/internal/bufferpool"
)

// copyTree copies every regular file below src into dst, creating
// directories as needed. Files whose size and digest already match are left
// untouched. It returns the number of files written.
func (s *Synchronizer) copyTree(ctx context.Context, src, dst string) (int, error) {
	var copied int
	err := afero.Walk(s.fs, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return s.fs.MkdirAll(target, info.Mode().Perm()|0o700)
		case !info.Mode().IsRegular():
			s.logger.Debugf("skipping %s: not a regular file", path)
			return nil
		}

		same, err := s.sameContent(path, target, info.Size())
		if err != nil {
			return err
		}
		if same {
			return nil
		}
		if err := s.copyFile(path, target, info.Mode().Perm()); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

// prune removes every entry below dst that has no counterpart below src.
// It returns the number of entries removed.
func (s *Synchronizer) prune(ctx context.Context, src, dst string) (int, error) {
	var removed int
	err := afero.Walk(s.fs, dst, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == dst {
			return nil
		}

		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return err
		}
		counterpart, err := s.fs.Stat(filepath.Join(src, rel))
		switch {
		case err == nil && counterpart.IsDir() == info.IsDir():
			return nil
		case err != nil && !stderrors.Is(err, fs.ErrNotExist):
			return err
		}

		if err := s.fs.RemoveAll(path); err != nil {
			return err
		}
		removed++
		if info.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	return removed, err
}

// sameContent reports whether target exists with the given size and the
// same xxh3 digest as source.
func (s *Synchronizer) sameContent(source, target string, size int64) (bool, error) {
	info, err := s.fs.Stat(target)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		if err := s.fs.RemoveAll(target); err != nil {
			return false, err
		}
		return false, nil
	}
	if info.Size() != size {
		return false, nil
	}

	sourceDigest, err := s.digest(source)
	if err != nil {
		return false, err
	}
	targetDigest, err := s.digest(target)
	if err != nil {
		return false, err
	}
	return sourceDigest == targetDigest, nil
}

func (s *Synchronizer) digest(path string) (xxh3.Uint128, error) {
	file, err := s.fs.Open(path)
	if err != nil {
		return xxh3.Uint128{}, err
	}
	defer file.Close()

	chunk := bufferpool.Chunks.Get()
	defer bufferpool.Chunks.Put(chunk)

	hasher := xxh3.New()
	if _, err := io.CopyBuffer(hasher, file, *chunk); err != nil {
		return xxh3.Uint128{}, err
	}
	return hasher.Sum128(), nil
}

func (s *Synchronizer) copyFile(source, target string, perm fs.FileMode) error {
	in, err := s.fs.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := s.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	chunk := bufferpool.Chunks.Get()
	defer bufferpool.Chunks.Put(chunk)
	if _, err := io.CopyBuffer(out, in, *chunk); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
