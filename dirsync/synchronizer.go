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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/state"
)

// Synchronizer mirrors asset directories to and from the persistence root
// and watches the live directories for changes.
//
// All watched directories share one fsnotify watcher. Adding a directory
// builds a new watcher over the full set, starts it, and only then closes
// the previous one, so no change goes unobserved during the swap.
type Synchronizer struct {
	fs       afero.Fs
	logger   log.Logger
	onChange func(service string)
	watch    bool

	mu      sync.Mutex
	closed  bool
	roots   map[string]string
	watcher *watcher
}

// watcher is one fsnotify watcher and its event goroutine
type watcher struct {
	notify *fsnotify.Watcher
	// roots maps each watched live directory to its service. It is never
	// modified once the watcher runs.
	roots map[string]string
	done  chan struct{}
}

// New creates a Synchronizer. onChange is called with the owning service
// whenever a watched directory changes; it may be nil.
func New(onChange func(service string), opts ...Option) *Synchronizer {
	if onChange == nil {
		onChange = func(string) {}
	}
	synchronizer := &Synchronizer{
		fs:       afero.NewOsFs(),
		logger:   log.DefaultLogger,
		onChange: onChange,
		watch:    true,
		roots:    make(map[string]string),
	}
	for _, opt := range opts {
		opt.Apply(synchronizer)
	}
	return synchronizer
}

// Load copies mirror over the live directory when the mirror exists, makes
// sure the live directory exists, then starts watching it.
func (s *Synchronizer) Load(ctx context.Context, dir state.AssetDirectory, mirror string) error {
	exists, err := afero.DirExists(s.fs, mirror)
	if err != nil {
		return err
	}
	if exists {
		copied, err := s.copyTree(ctx, mirror, dir.Path)
		if err != nil {
			return fmt.Errorf("restoring %s from %s: %w", dir.Path, mirror, err)
		}
		s.logger.Debugf("restored %d file(s) of %s/%s", copied, dir.Service, dir.Name)
	}

	if err := s.fs.MkdirAll(dir.Path, 0o755); err != nil {
		return err
	}
	if !s.watch {
		return nil
	}
	return s.Watch(dir)
}

// Save copies the live directory into mirror, then deletes the mirror
// entries that no longer exist in the live directory. A missing live
// directory leaves the mirror untouched.
func (s *Synchronizer) Save(ctx context.Context, dir state.AssetDirectory, mirror string) error {
	exists, err := afero.DirExists(s.fs, dir.Path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := s.fs.MkdirAll(mirror, 0o755); err != nil {
		return err
	}
	copied, err := s.copyTree(ctx, dir.Path, mirror)
	if err != nil {
		return fmt.Errorf("mirroring %s into %s: %w", dir.Path, mirror, err)
	}
	removed, err := s.prune(ctx, dir.Path, mirror)
	if err != nil {
		return fmt.Errorf("pruning %s: %w", mirror, err)
	}
	s.logger.Debugf("mirrored %s/%s: %d file(s) written, %d entrie(s) removed", dir.Service, dir.Name, copied, removed)
	return nil
}

// Watch adds the live directory of dir to the watched set
func (s *Synchronizer) Watch(dir state.AssetDirectory) error {
	path, err := filepath.Abs(dir.Path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSynchronizerClosed
	}
	if service, ok := s.roots[path]; ok && service == dir.Service && s.watcher != nil {
		return nil
	}

	roots := make(map[string]string, len(s.roots)+1)
	for root, service := range s.roots {
		roots[root] = service
	}
	roots[path] = dir.Service

	next, err := s.startWatcher(roots)
	if err != nil {
		return err
	}

	previous := s.watcher
	s.roots, s.watcher = roots, next
	if previous != nil {
		previous.close()
	}
	return nil
}

// Watched returns the sorted watched live directories
func (s *Synchronizer) Watched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.roots))
	for path := range s.roots {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Close stops watching. The synchronizer can still copy directories.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.watcher != nil {
		s.watcher.close()
		s.watcher = nil
	}
	return nil
}

// startWatcher creates a watcher over every directory below roots and
// starts its event goroutine.
func (s *Synchronizer) startWatcher(roots map[string]string) (*watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for root := range roots {
		if err := addRecursive(notify, root); err != nil {
			_ = notify.Close()
			return nil, fmt.Errorf("watching %s: %w", root, err)
		}
	}

	w := &watcher{notify: notify, roots: roots, done: make(chan struct{})}
	go s.run(w)
	return w, nil
}

func (s *Synchronizer) run(w *watcher) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			s.handle(w, event)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			s.logger.Warnf("watching asset directories: %v", err)
		}
	}
}

func (s *Synchronizer) handle(w *watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(w.notify, event.Name); err != nil {
				s.logger.Warnf("watching new directory %s: %v", event.Name, err)
			}
		}
	}

	if service, ok := w.owner(event.Name); ok {
		s.onChange(service)
	}
}

// owner returns the service of the deepest watched root containing path
func (w *watcher) owner(path string) (string, bool) {
	var (
		best    string
		service string
	)
	for root, owner := range w.roots {
		if (path == root || strings.HasPrefix(path, root+string(filepath.Separator))) && len(root) > len(best) {
			best, service = root, owner
		}
	}
	return service, best != ""
}

func (w *watcher) close() {
	_ = w.notify.Close()
	<-w.done
}

// addRecursive watches dir and every directory below it
func addRecursive(notify *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		return notify.Add(path)
	})
}
