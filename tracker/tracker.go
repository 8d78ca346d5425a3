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
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/flowchartsman/retry"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tochemey/emustate/config"
	"github.com/tochemey/emustate/dirsync"
	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/errorschain"
	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/internal/metric"
	"github.com/tochemey/emustate/internal/ticker"
	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/objectstore"
	"github.com/tochemey/emustate/serialization"
	"github.com/tochemey/emustate/state"
)

const manifestOpenAttempts = 3

// Tracker decides which services to persist and when. Mutating requests mark
// their service dirty; dirty services are saved periodically and on Stop.
// Persisted state is loaded on startup, or on the first request for services
// that require lazy loading.
//
// A service is never saved while one of its requests is in flight: requests
// hold the read side of the service guard and saves and loads the write side.
type Tracker struct {
	registry      state.Registry
	config        *config.Config
	logger        log.Logger
	pipeline      Pipeline
	preparers     map[string]func(ctx context.Context) error
	engineOptions []serialization.Option
	useManifest   bool
	watch         bool
	metricEnabled bool
	meterProvider otelmetric.MeterProvider

	engine       *serialization.Engine
	synchronizer *dirsync.Synchronizer
	manifest     *manifest.Manifest
	metrics      *metric.TrackerMetric
	registration otelmetric.Registration

	// mu guards dirty, loaded, prepared and guards
	mu       sync.Mutex
	dirty    mapset.Set[string]
	loaded   mapset.Set[string]
	prepared mapset.Set[string]
	guards   map[string]*sync.RWMutex

	loads    singleflight.Group
	prepares singleflight.Group
	flushMu  sync.Mutex

	running *atomic.Bool
	closed  *atomic.Bool
	ticker  *ticker.Ticker
	stopCh  chan struct{}
	doneCh  chan struct{}
}

var _ Interceptor = (*Tracker)(nil)

// New creates a Tracker for the services of registry
func New(registry state.Registry, cfg *config.Config, opts ...Option) *Tracker {
	if cfg == nil {
		cfg = config.Default()
	}

	tracker := &Tracker{
		registry:    registry,
		config:      cfg,
		logger:      cfg.Logger,
		preparers:   make(map[string]func(ctx context.Context) error),
		useManifest: true,
		watch:       true,
		dirty:       mapset.NewThreadUnsafeSet[string](),
		loaded:      mapset.NewThreadUnsafeSet[string](),
		prepared:    mapset.NewThreadUnsafeSet[string](),
		guards:      make(map[string]*sync.RWMutex),
		running:     atomic.NewBool(false),
		closed:      atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(tracker)
	}
	if tracker.logger == nil {
		tracker.logger = log.DefaultLogger
	}

	engineOptions := []serialization.Option{
		serialization.WithLogger(tracker.logger),
		serialization.WithFormats(cfg.Formats...),
		serialization.WithCompression(cfg.Compression),
	}
	if tracker.useManifest {
		m, err := openManifest(cfg.ManifestPath())
		if err != nil {
			tracker.logger.Warnf("write manifest unavailable, every flush rewrites its documents: %v", err)
		} else {
			tracker.manifest = m
			engineOptions = append(engineOptions, serialization.WithManifest(m, cfg.BaseDir))
		}
	}
	tracker.engine = serialization.NewEngine(append(engineOptions, tracker.engineOptions...)...)

	syncOptions := []dirsync.Option{dirsync.WithLogger(tracker.logger)}
	if !tracker.watch {
		syncOptions = append(syncOptions, dirsync.WithoutWatch())
	}
	tracker.synchronizer = dirsync.New(tracker.MarkDirty, syncOptions...)

	if tracker.metricEnabled {
		if err := tracker.registerMetrics(); err != nil {
			tracker.logger.Warnf("tracker metrics disabled: %v", err)
			tracker.metrics = nil
		}
	}
	return tracker
}

// openManifest opens the write manifest, retrying while another process
// releases its lock on the file
func openManifest(path string) (*manifest.Manifest, error) {
	var m *manifest.Manifest
	retrier := retry.NewRetrier(manifestOpenAttempts, 100*time.Millisecond, time.Second)
	err := retrier.Run(func() error {
		var err error
		m, err = manifest.Open(path)
		return err
	})
	return m, err
}

func (t *Tracker) registerMetrics() error {
	provider := metric.NewProvider()
	if t.meterProvider != nil {
		provider = metric.NewProviderFrom(t.meterProvider)
	}

	meter := provider.Meter()
	metrics, err := metric.NewTrackerMetric(meter)
	if err != nil {
		return err
	}

	t.registration, err = meter.RegisterCallback(func(_ context.Context, observer otelmetric.Observer) error {
		t.mu.Lock()
		dirty := t.dirty.Cardinality()
		t.mu.Unlock()
		observer.ObserveInt64(metrics.DirtyCount(), int64(dirty))
		return nil
	}, metrics.DirtyCount())
	if err != nil {
		return err
	}

	t.metrics = metrics
	return nil
}

// record counts one save or load of service
func (t *Tracker) record(ctx context.Context, counter func(*metric.TrackerMetric) otelmetric.Int64Counter, service string, err error) {
	if t.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	counter(t.metrics).Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("service", service),
		attribute.String("outcome", outcome),
	))
}

// Engine returns the serialization engine used for structured stores
func (t *Tracker) Engine() *serialization.Engine {
	return t.engine
}

// ObjectStore creates the blob store of service, rooted in the service's
// persisted directory
func (t *Tracker) ObjectStore(service string, opts ...objectstore.Option) *objectstore.Store {
	defaults := []objectstore.Option{
		objectstore.WithLogger(t.logger),
		objectstore.WithService(service),
	}
	if t.manifest != nil {
		defaults = append(defaults, objectstore.WithManifest(t.manifest))
	}
	return objectstore.New(t.config.ObjectsDir(service), append(defaults, opts...)...)
}

// Start registers the tracker on the pipeline and starts the periodic flush.
// Starting a running tracker panics.
func (t *Tracker) Start(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		t.logger.Panic(errors.ErrTrackerAlreadyStarted)
	}

	if t.pipeline != nil {
		t.pipeline.AddInterceptor(t)
	}

	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.ticker = ticker.New(t.config.FlushInterval)
	t.ticker.Start()
	go t.run(context.WithoutCancel(ctx))

	t.logger.Infof("state tracker started, flushing every %s", t.config.FlushInterval)
	return nil
}

// Stop unregisters the tracker, waits for the in-flight flush, flushes every
// dirty service one last time and releases the watcher and the manifest.
// Stopping a tracker that is not running panics.
func (t *Tracker) Stop(ctx context.Context) error {
	if !t.running.CompareAndSwap(true, false) {
		t.logger.Panic(errors.ErrTrackerNotStarted)
	}

	if t.pipeline != nil {
		t.pipeline.RemoveInterceptor(t)
	}

	close(t.stopCh)
	t.ticker.Stop()
	<-t.doneCh

	err := t.FlushAll(ctx)
	if closeErr := t.Close(); closeErr != nil {
		err = multierr.Append(err, closeErr)
	}
	t.logger.Info("state tracker stopped")
	return err
}

// Close stops watching asset directories and closes the write manifest.
// It is called by Stop and is only needed for a tracker never started.
func (t *Tracker) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errorschain.New(errorschain.ReturnAll()).
		AddErrorFn(t.synchronizer.Close).
		AddErrorFn(func() error {
			if t.registration == nil {
				return nil
			}
			return t.registration.Unregister()
		}).
		AddErrorFn(func() error {
			if t.manifest == nil {
				return nil
			}
			return t.manifest.Close()
		}).
		Error()
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.doneCh)
	for {
		select {
		case <-t.ticker.Ticks:
			// errors are logged and the services requeued by FlushAll
			_ = t.FlushAll(ctx)
		case <-t.stopCh:
			return
		}
	}
}

// MarkDirty flags service for the next flush
func (t *Tracker) MarkDirty(service string) {
	t.mu.Lock()
	t.dirty.Add(service)
	t.mu.Unlock()
}

// Dirty returns the sorted names of the services waiting for a flush
func (t *Tracker) Dirty() []string {
	t.mu.Lock()
	names := t.dirty.ToSlice()
	t.mu.Unlock()
	sort.Strings(names)
	return names
}

// Loaded reports whether the state of service has been loaded
func (t *Tracker) Loaded(service string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded.Contains(service)
}

// FlushAll saves every dirty service. The dirty set is swapped out
// atomically, so a service marked during the flush is saved by the next one.
// A service that fails to save is marked dirty again; the others are still
// saved. The combined error is returned.
func (t *Tracker) FlushAll(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	dirty := t.dirty
	t.dirty = mapset.NewThreadUnsafeSet[string]()
	t.mu.Unlock()

	if dirty.IsEmpty() {
		t.logger.Debug("nothing to persist, no services were changed")
		return nil
	}

	services := dirty.ToSlice()
	sort.Strings(services)

	start := time.Now()
	defer func() {
		if t.metrics != nil {
			t.metrics.FlushDuration().Record(ctx, time.Since(start).Seconds())
		}
	}()

	chain := errorschain.New(errorschain.ReturnAll())
	for _, service := range services {
		if !t.config.Enabled(service) {
			continue
		}
		err := t.saveService(ctx, service)
		t.record(ctx, (*metric.TrackerMetric).SavesCount, service, err)
		if err != nil {
			t.logger.Errorf("error while persisting state of service %s: %v", service, err)
			t.MarkDirty(service)
			chain.AddError(err)
		}
	}
	return chain.Error()
}

func (t *Tracker) saveService(ctx context.Context, name string) error {
	svc, ok := t.registry.Service(name)
	if !ok {
		t.logger.Errorf("no service %s found in registry", name)
		return nil
	}

	t.logger.Infof("persisting state of service %s...", name)
	guard := t.guard(name)
	guard.Lock()
	defer guard.Unlock()

	if saver, ok := svc.(state.BeforeStateSaver); ok {
		if err := saver.BeforeStateSave(ctx); err != nil {
			return err
		}
	}

	collected, err := collect(ctx, svc)
	if err != nil {
		return err
	}
	if err := t.save(ctx, collected); err != nil {
		return err
	}

	if saver, ok := svc.(state.AfterStateSaver); ok {
		return saver.AfterStateSave(ctx)
	}
	return nil
}

// LoadAll loads every service persisted under the base directory, except
// the disabled ones and the ones requiring lazy loading. Loads run
// concurrently. Failures are logged and never returned.
func (t *Tracker) LoadAll(ctx context.Context) error {
	t.logger.Info("loading persisted state of all services...")
	entries, err := os.ReadDir(t.config.BaseDir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		t.logger.Errorf("listing %s: %v", t.config.BaseDir, err)
		return nil
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(t.config.LoadConcurrency)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !t.config.Enabled(name) {
			continue
		}
		if !entry.IsDir() {
			t.logger.Warnf("expected %s to be a directory", entry.Name())
			continue
		}
		if svc, ok := t.registry.Service(name); ok && state.RequiresLazyLoad(svc) {
			t.logger.Debugf("deferring the load of service %s to its first request", name)
			continue
		}

		group.Go(func() error {
			t.load(ctx, name)
			return nil
		})
	}
	return group.Wait()
}

// load runs the full load of service at most once. Concurrent callers wait
// for the running load. The service is published as loaded only once its
// load has returned.
func (t *Tracker) load(ctx context.Context, service string) {
	if t.Loaded(service) {
		return
	}
	_, _, _ = t.loads.Do(service, func() (any, error) {
		if t.Loaded(service) {
			return nil, nil
		}

		t.loadService(ctx, service)

		t.mu.Lock()
		t.loaded.Add(service)
		t.mu.Unlock()
		return nil, nil
	})
}

func (t *Tracker) loadService(ctx context.Context, name string) {
	t.logger.Infof("loading persisted state of service %s...", name)
	if err := t.prepare(ctx, name); err != nil {
		t.logger.Errorf("error while preparing service %s: %v", name, err)
		return
	}

	svc, ok := t.registry.Service(name)
	if !ok {
		t.logger.Warnf("no service %s found in registry", name)
		return
	}

	guard := t.guard(name)
	guard.Lock()
	defer guard.Unlock()

	err := t.restoreService(ctx, svc)
	t.record(ctx, (*metric.TrackerMetric).LoadsCount, name, err)
	if err != nil {
		var mismatch bool
		for _, err := range multierr.Errors(err) {
			if stderrors.Is(err, errors.ErrShapeMismatch) {
				mismatch = true
				t.logger.Warnf("persisted state of service %s is kept aside: %v", name, err)
			}
		}
		if !mismatch {
			t.logger.Errorf("error while loading state of service %s: %v", name, err)
		}
	}
}

func (t *Tracker) restoreService(ctx context.Context, svc state.Service) error {
	if loader, ok := svc.(state.BeforeStateLoader); ok {
		if err := loader.BeforeStateLoad(ctx); err != nil {
			return err
		}
	}

	collected, err := collect(ctx, svc)
	if err != nil {
		return err
	}
	restoreErr := t.restore(ctx, collected)

	if loader, ok := svc.(state.AfterStateLoader); ok {
		restoreErr = multierr.Append(restoreErr, loader.AfterStateLoad(ctx))
	}
	return restoreErr
}

// prepare runs the preparer of service once
func (t *Tracker) prepare(ctx context.Context, service string) error {
	prepare, ok := t.preparers[service]
	if !ok {
		return nil
	}

	_, err, _ := t.prepares.Do(service, func() (any, error) {
		t.mu.Lock()
		done := t.prepared.Contains(service)
		t.mu.Unlock()
		if done {
			return nil, nil
		}

		if err := prepare(ctx); err != nil {
			return nil, err
		}

		t.mu.Lock()
		t.prepared.Add(service)
		t.mu.Unlock()
		return nil, nil
	})
	return err
}

// guard returns the read/write guard of service, creating it on first use
func (t *Tracker) guard(service string) *sync.RWMutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	guard, ok := t.guards[service]
	if !ok {
		guard = new(sync.RWMutex)
		t.guards[service] = guard
	}
	return guard
}

// OnRequestBegin prepares and, when required, lazily loads the target
// service, then holds its read guard until OnRequestFinalize.
func (t *Tracker) OnRequestBegin(ctx context.Context, req *RequestContext) (context.Context, error) {
	if req == nil || req.Service == "" || !t.config.Enabled(req.Service) {
		return ctx, nil
	}

	if err := t.prepare(ctx, req.Service); err != nil {
		return ctx, err
	}

	if svc, ok := t.registry.Service(req.Service); ok && state.RequiresLazyLoad(svc) {
		t.load(ctx, req.Service)
	}

	guard := t.guard(req.Service)
	guard.RLock()
	return withGuard(ctx, guard), nil
}

// OnResponseComplete marks the target service dirty unless the request is
// idempotent
func (t *Tracker) OnResponseComplete(_ context.Context, req *RequestContext) {
	if req == nil || req.Service == "" || !t.config.Enabled(req.Service) || req.Idempotent() {
		return
	}
	t.MarkDirty(req.Service)
}

// OnRequestFinalize releases the read guard held by the request. It is safe
// to call more than once.
func (t *Tracker) OnRequestFinalize(ctx context.Context) {
	if held, ok := guardFrom(ctx); ok {
		held.release()
	}
}
