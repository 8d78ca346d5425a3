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

package tracker

import (
	"context"
	stderrors "errors"
	"path/filepath"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/errorschain"
	"github.com/tochemey/emustate/state"
)

// errNotPersisted stops a restore when no document exists for a container
var errNotPersisted = stderrors.New("no persisted state")

// containers sorts the containers of a service by variant. They are
// processed blob stores first, then asset directories, then structured
// stores, so the structured state never refers to blobs that are not durable.
type containers struct {
	service string
	blobs   []state.BlobStore
	dirs    []*state.AssetDirectory
	stores  []state.StructuredStore
}

var _ state.Visitor = (*containers)(nil)

func (c *containers) VisitStructuredStore(_ context.Context, store state.StructuredStore) error {
	c.stores = append(c.stores, store)
	return nil
}

func (c *containers) VisitAssetDirectory(_ context.Context, dir *state.AssetDirectory) error {
	c.dirs = append(c.dirs, dir)
	return nil
}

func (c *containers) VisitBlobStore(_ context.Context, store state.BlobStore) error {
	c.blobs = append(c.blobs, store)
	return nil
}

// collect asks svc for its containers
func collect(ctx context.Context, svc state.Service) (*containers, error) {
	collected := &containers{service: svc.Name()}
	if err := svc.AcceptStateVisitor(ctx, collected); err != nil {
		return nil, err
	}
	return collected, nil
}

func (c *containers) dirService(dir *state.AssetDirectory) string {
	if dir.Service != "" {
		return dir.Service
	}
	return c.service
}

func dirName(dir *state.AssetDirectory) string {
	if dir.Name != "" {
		return dir.Name
	}
	return filepath.Base(dir.Path)
}

func storeService(service string, store state.StructuredStore) string {
	if name := store.ServiceName(); name != "" {
		return name
	}
	return service
}

// save persists every container. A failing container does not stop the others.
func (t *Tracker) save(ctx context.Context, c *containers) error {
	chain := errorschain.New(errorschain.ReturnAll())
	for _, blobs := range c.blobs {
		chain.AddErrorFn(func() error {
			if err := blobs.Flush(); err != nil {
				return errors.NewSaveError(c.service, "objects", err)
			}
			return nil
		})
	}

	for _, dir := range c.dirs {
		chain.AddErrorFn(func() error {
			service, name := c.dirService(dir), dirName(dir)
			if err := t.synchronizer.Save(ctx, *dir, t.config.AssetDir(service, name)); err != nil {
				return errors.NewSaveError(service, "assets/"+name, err)
			}
			return nil
		})
	}

	for _, store := range c.stores {
		chain.AddErrorFn(func() error {
			service := storeService(c.service, store)
			basePath := filepath.Join(t.config.ServiceDir(service), store.Kind())
			if err := t.engine.Write(ctx, basePath, store.Snapshot()); err != nil {
				return errors.NewSaveError(service, store.Kind(), err)
			}
			return nil
		})
	}
	return chain.Error()
}

// restore loads every container. A failing container keeps its in-process
// state and does not stop the others.
func (t *Tracker) restore(ctx context.Context, c *containers) error {
	chain := errorschain.New(errorschain.ReturnAll())
	for _, blobs := range c.blobs {
		chain.AddErrorFn(func() error {
			if err := blobs.Prepare(ctx); err != nil {
				return errors.NewLoadError(c.service, "objects", err)
			}
			return nil
		})
	}

	for _, dir := range c.dirs {
		chain.AddErrorFn(func() error {
			service, name := c.dirService(dir), dirName(dir)
			if err := t.synchronizer.Load(ctx, *dir, t.config.AssetDir(service, name)); err != nil {
				return errors.NewLoadError(service, "assets/"+name, err)
			}
			return nil
		})
	}

	for _, store := range c.stores {
		chain.AddErrorFn(func() error {
			service := storeService(c.service, store)
			basePath := filepath.Join(t.config.ServiceDir(service), store.Kind())
			err := store.Restore(func(target any) error {
				found, err := t.engine.Read(ctx, basePath, target)
				if err != nil {
					return err
				}
				if !found {
					return errNotPersisted
				}
				return nil
			})
			switch {
			case err == nil:
				return nil
			case stderrors.Is(err, errNotPersisted):
				t.logger.Debugf("no persisted %s state for service %s", store.Kind(), service)
				return nil
			default:
				return errors.NewLoadError(service, store.Kind(), err)
			}
		})
	}
	return chain.Error()
}
