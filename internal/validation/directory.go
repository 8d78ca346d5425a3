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

package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// directoryValidator checks that a path is usable as a persistence root:
// non-empty and, when it exists, a directory.
type directoryValidator struct {
	path string
}

var _ Validator = (*directoryValidator)(nil)

// NewDirectoryValidator creates a Validator for a directory path
func NewDirectoryValidator(path string) Validator {
	return &directoryValidator{path: path}
}

// Validate executes the validation
func (x *directoryValidator) Validate() error {
	if x.path == "" {
		return errors.New("directory path is required")
	}

	info, err := os.Stat(filepath.Clean(x.path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("directory %q: %w", x.path, err)
	case !info.IsDir():
		return fmt.Errorf("%q is not a directory", x.path)
	default:
		return nil
	}
}
