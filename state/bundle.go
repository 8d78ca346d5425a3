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

package state

import (
	"context"
	"sort"
	"sync"
)

const (
	// KindStore is the container kind of an AccountRegionBundle
	KindStore = "store"
	// KindBackend is the container kind of a BackendDict
	KindBackend = "backend"
)

// regionMap holds one *T per account and region.
type regionMap[T any] struct {
	mu      sync.RWMutex
	service string
	entries map[string]map[string]*T
	factory func() *T
}

func newRegionMap[T any](service string, factory func() *T) regionMap[T] {
	if factory == nil {
		factory = func() *T { return new(T) }
	}
	return regionMap[T]{
		service: service,
		entries: make(map[string]map[string]*T),
		factory: factory,
	}
}

// Get returns the value for account and region, creating it on first use
func (m *regionMap[T]) Get(account, region string) *T {
	m.mu.RLock()
	value, ok := m.entries[account][region]
	m.mu.RUnlock()
	if ok {
		return value
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	regions, ok := m.entries[account]
	if !ok {
		regions = make(map[string]*T)
		m.entries[account] = regions
	}
	if value, ok = regions[region]; !ok {
		value = m.factory()
		regions[region] = value
	}
	return value
}

// Accounts returns the sorted account ids
func (m *regionMap[T]) Accounts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]string, 0, len(m.entries))
	for account := range m.entries {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}

// Regions returns the sorted regions of an account
func (m *regionMap[T]) Regions(account string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	regions := make([]string, 0, len(m.entries[account]))
	for region := range m.entries[account] {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// Reset drops every entry
func (m *regionMap[T]) Reset() {
	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
}

// ServiceName returns the owning service
func (m *regionMap[T]) ServiceName() string {
	return m.service
}

// Snapshot returns the account → region → value mapping
func (m *regionMap[T]) Snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make(map[string]map[string]*T, len(m.entries))
	for account, regions := range m.entries {
		copied := make(map[string]*T, len(regions))
		for region, value := range regions {
			copied[region] = value
		}
		snapshot[account] = copied
	}
	return snapshot
}

// Restore decodes a persisted mapping and merges it, replacing the values of
// the accounts and regions present in the persisted state.
func (m *regionMap[T]) Restore(decode func(target any) error) error {
	restored := make(map[string]map[string]*T)
	if err := decode(&restored); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for account, regions := range restored {
		live, ok := m.entries[account]
		if !ok {
			live = make(map[string]*T, len(regions))
			m.entries[account] = live
		}
		for region, value := range regions {
			if value == nil {
				value = m.factory()
			}
			live[region] = value
		}
	}
	return nil
}

// AccountRegionBundle is the structured store of a service keyed by account
// and region. It is persisted as "<service>/store".
type AccountRegionBundle[T any] struct {
	regionMap[T]
}

var _ StructuredStore = (*AccountRegionBundle[struct{}])(nil)

// NewAccountRegionBundle creates an AccountRegionBundle. factory builds the
// value of a new account/region and may be nil.
func NewAccountRegionBundle[T any](service string, factory func() *T) *AccountRegionBundle[T] {
	return &AccountRegionBundle[T]{regionMap: newRegionMap(service, factory)}
}

// Kind implements StructuredStore
func (b *AccountRegionBundle[T]) Kind() string {
	return KindStore
}

// Accept implements Container
func (b *AccountRegionBundle[T]) Accept(ctx context.Context, visitor Visitor) error {
	return visitor.VisitStructuredStore(ctx, b)
}

// BackendDict is the flat backend mapping of a service, keyed by account and
// region. It is persisted as "<service>/backend".
type BackendDict[T any] struct {
	regionMap[T]
}

var _ StructuredStore = (*BackendDict[struct{}])(nil)

// NewBackendDict creates a BackendDict. factory may be nil.
func NewBackendDict[T any](service string, factory func() *T) *BackendDict[T] {
	return &BackendDict[T]{regionMap: newRegionMap(service, factory)}
}

// Kind implements StructuredStore
func (b *BackendDict[T]) Kind() string {
	return KindBackend
}

// Accept implements Container
func (b *BackendDict[T]) Accept(ctx context.Context, visitor Visitor) error {
	return visitor.VisitStructuredStore(ctx, b)
}
