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

package serialization

import (
	"fmt"

	"github.com/tochemey/emustate/errors"
)

// maxMigrationSteps bounds a chain of migrations so that a cycle in the
// migration table cannot loop forever.
const maxMigrationSteps = 64

// Migration rewrites the flattened graph of one container from a recorded
// shape to a newer one.
type Migration struct {
	// Service is the owning service
	Service string
	// Kind is the container kind, e.g. "store"
	Kind string
	// From is the shape recorded in the envelope
	From string
	// To is the shape produced. Empty means the current shape.
	To string
	// Apply rewrites the flattened graph, a tree of map[string]any, []any and scalars
	Apply func(data any) (any, error)
}

type migrationKey struct {
	service string
	kind    string
	from    string
}

// migrate runs the registered migrations for service and kind until the
// graph reaches the current shape.
func (e *Engine) migrate(service, kind, recorded, current string, data any) (any, error) {
	shape := recorded
	for step := 0; shape != current; step++ {
		if step == maxMigrationSteps {
			return nil, fmt.Errorf("%w: migration chain from %s exceeds %d steps", errors.ErrShapeMismatch, recorded, maxMigrationSteps)
		}

		migration, ok := e.migrations[migrationKey{service: service, kind: kind, from: shape}]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s/%s recorded %s, current %s",
				errors.ErrShapeMismatch, errors.ErrNoMigration, service, kind, shape, current)
		}

		migrated, err := migration.Apply(data)
		if err != nil {
			return nil, fmt.Errorf("migrating %s/%s from %s: %w", service, kind, shape, err)
		}

		e.logger.Infof("migrated %s/%s from shape %s", service, kind, shape)
		data = migrated
		if migration.To == "" {
			break
		}
		shape = migration.To
	}
	return data, nil
}
