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

package tracker_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/emustate/config"
	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/objectstore"
	"github.com/tochemey/emustate/state"
	"github.com/tochemey/emustate/testkit"
	"github.com/tochemey/emustate/tracker"
)

type queue struct {
	Name       string
	Messages   []string
	Attributes map[string]string
}

type topic struct {
	Arn         string
	Subscribers int
}

func newConfig(t *testing.T, baseDir string, opts ...config.Option) *config.Config {
	t.Helper()
	opts = append([]config.Option{
		config.WithBaseDir(baseDir),
		config.WithLogger(log.DiscardLogger),
	}, opts...)
	cfg, err := config.New(opts...)
	require.NoError(t, err)
	return cfg
}

func newTracker(t *testing.T, registry state.Registry, cfg *config.Config, opts ...tracker.Option) *tracker.Tracker {
	t.Helper()
	opts = append([]tracker.Option{tracker.WithoutDirectoryWatch()}, opts...)
	tr := tracker.New(registry, cfg, opts...)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func mutate(service string) *tracker.RequestContext {
	return &tracker.RequestContext{Service: service, Method: "POST", Operation: "SendMessage"}
}

func noopHandler(context.Context) error { return nil }

func TestRequestContextIdempotent(t *testing.T) {
	testCases := []struct {
		name      string
		method    string
		operation string
		expected  bool
	}{
		{name: "GET method", method: "GET", operation: "GetObject", expected: true},
		{name: "HEAD method", method: "head", operation: "HeadObject", expected: true},
		{name: "List operation", method: "POST", operation: "ListQueues", expected: true},
		{name: "Describe operation", method: "POST", operation: "DescribeTable", expected: true},
		{name: "Query operation", method: "POST", operation: "Query", expected: true},
		{name: "Create operation", method: "POST", operation: "CreateQueue", expected: false},
		{name: "Put operation", method: "PUT", operation: "PutObject", expected: false},
		{name: "Delete operation", method: "DELETE", operation: "DeleteObject", expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := &tracker.RequestContext{Service: "s", Method: tc.method, Operation: tc.operation}
			assert.Equal(t, tc.expected, req.Idempotent())
		})
	}
}

func TestTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("With a round trip through flush and load", func(t *testing.T) {
		baseDir := t.TempDir()
		cfg := newConfig(t, baseDir)

		queues := state.NewAccountRegionBundle[queue]("sqs", nil)
		svc := testkit.NewService("sqs", queues)
		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(svc), cfg)
		pipeline.AddInterceptor(tr)

		require.NoError(t, pipeline.Dispatch(ctx, mutate("sqs"), func(context.Context) error {
			q := queues.Get("000000000000", "us-east-1")
			q.Name = "orders"
			q.Messages = []string{"a", "b"}
			q.Attributes = map[string]string{"fifo": "true"}
			return nil
		}))
		assert.Equal(t, []string{"sqs"}, tr.Dirty())

		require.NoError(t, tr.FlushAll(ctx))
		assert.Empty(t, tr.Dirty())
		assert.FileExists(t, filepath.Join(baseDir, "sqs", "store.json"))
		assert.Equal(t, 1, svc.Calls(testkit.BeforeSave))
		assert.Equal(t, 1, svc.Calls(testkit.AfterSave))
		require.NoError(t, tr.Close())

		restored := state.NewAccountRegionBundle[queue]("sqs", nil)
		restoredSvc := testkit.NewService("sqs", restored)
		next := newTracker(t, testkit.NewRegistry(restoredSvc), cfg)
		require.NoError(t, next.LoadAll(ctx))

		assert.True(t, next.Loaded("sqs"))
		assert.Equal(t, 1, restoredSvc.Calls(testkit.BeforeLoad))
		assert.Equal(t, 1, restoredSvc.Calls(testkit.AfterLoad))
		assert.Equal(t, []string{"000000000000"}, restored.Accounts())
		assert.Equal(t, &queue{
			Name:       "orders",
			Messages:   []string{"a", "b"},
			Attributes: map[string]string{"fifo": "true"},
		}, restored.Get("000000000000", "us-east-1"))
	})

	t.Run("With an empty flush writing nothing", func(t *testing.T) {
		baseDir := t.TempDir()
		svc := testkit.NewService("sqs", state.NewAccountRegionBundle[queue]("sqs", nil))
		tr := newTracker(t, testkit.NewRegistry(svc), newConfig(t, baseDir), tracker.WithoutManifest())

		require.NoError(t, tr.FlushAll(ctx))
		entries, err := os.ReadDir(baseDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.Zero(t, svc.Calls(testkit.BeforeSave))
	})

	t.Run("With unchanged state not rewritten", func(t *testing.T) {
		baseDir := t.TempDir()
		queues := state.NewAccountRegionBundle[queue]("sqs", nil)
		queues.Get("1", "eu-west-1").Name = "q"
		tr := newTracker(t, testkit.NewRegistry(testkit.NewService("sqs", queues)), newConfig(t, baseDir))

		tr.MarkDirty("sqs")
		require.NoError(t, tr.FlushAll(ctx))

		path := filepath.Join(baseDir, "sqs", "store.json")
		past := time.Now().Add(-time.Hour).Truncate(time.Second)
		require.NoError(t, os.Chtimes(path, past, past))

		tr.MarkDirty("sqs")
		require.NoError(t, tr.FlushAll(ctx))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(past))
	})

	t.Run("With idempotent requests not marking dirty", func(t *testing.T) {
		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(testkit.NewService("sqs")), newConfig(t, t.TempDir()))
		pipeline.AddInterceptor(tr)

		require.NoError(t, pipeline.Dispatch(ctx, &tracker.RequestContext{Service: "sqs", Method: "GET", Operation: "GetQueueUrl"}, noopHandler))
		require.NoError(t, pipeline.Dispatch(ctx, &tracker.RequestContext{Service: "sqs", Method: "POST", Operation: "ListQueues"}, noopHandler))
		assert.Empty(t, tr.Dirty())

		require.NoError(t, pipeline.Dispatch(ctx, &tracker.RequestContext{Service: "sqs", Method: "POST", Operation: "CreateQueue"}, noopHandler))
		assert.Equal(t, []string{"sqs"}, tr.Dirty())
	})

	t.Run("With failed requests not marking dirty", func(t *testing.T) {
		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(testkit.NewService("sqs")), newConfig(t, t.TempDir()))
		pipeline.AddInterceptor(tr)

		err := pipeline.Dispatch(ctx, mutate("sqs"), func(context.Context) error { return assert.AnError })
		require.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, tr.Dirty())
	})

	t.Run("With disabled services ignored", func(t *testing.T) {
		baseDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "sqs"), 0o755))

		svc := testkit.NewService("sqs")
		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(svc), newConfig(t, baseDir, config.WithService("sqs", false)))
		pipeline.AddInterceptor(tr)

		require.NoError(t, tr.LoadAll(ctx))
		assert.False(t, tr.Loaded("sqs"))
		require.NoError(t, pipeline.Dispatch(ctx, mutate("sqs"), noopHandler))
		assert.Empty(t, tr.Dirty())

		tr.MarkDirty("sqs")
		require.NoError(t, tr.FlushAll(ctx))
		assert.Zero(t, svc.Calls(testkit.BeforeSave))
	})

	t.Run("With non-directory entries skipped on load", func(t *testing.T) {
		baseDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(baseDir, "sqs"), []byte("x"), 0o600))
		require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "sns"), 0o755))

		sqs, sns := testkit.NewService("sqs"), testkit.NewService("sns")
		tr := newTracker(t, testkit.NewRegistry(sqs, sns), newConfig(t, baseDir))
		require.NoError(t, tr.LoadAll(ctx))
		assert.False(t, tr.Loaded("sqs"))
		assert.True(t, tr.Loaded("sns"))
	})

	t.Run("With a missing base directory", func(t *testing.T) {
		baseDir := filepath.Join(t.TempDir(), "absent")
		tr := newTracker(t, testkit.NewRegistry(), newConfig(t, baseDir), tracker.WithoutManifest())
		require.NoError(t, tr.LoadAll(ctx))
	})

	t.Run("With lazy services loaded on their first request", func(t *testing.T) {
		baseDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "lambda"), 0o755))

		svc := testkit.NewService("lambda").Lazy()
		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(svc), newConfig(t, baseDir))
		pipeline.AddInterceptor(tr)

		require.NoError(t, tr.LoadAll(ctx))
		assert.False(t, tr.Loaded("lambda"))

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, pipeline.Dispatch(ctx, &tracker.RequestContext{Service: "lambda", Method: "GET", Operation: "ListFunctions"}, noopHandler))
			}()
		}
		wg.Wait()

		assert.True(t, tr.Loaded("lambda"))
		assert.Equal(t, 1, svc.Calls(testkit.BeforeLoad))
		assert.Equal(t, 1, svc.Calls(testkit.AfterLoad))
	})

	t.Run("With requests waiting for a running lazy load", func(t *testing.T) {
		baseDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "lambda"), 0o755))

		entered := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		svc := testkit.NewService("lambda").Lazy()
		svc.OnHook(testkit.BeforeLoad, func(context.Context) {
			once.Do(func() { close(entered) })
			<-release
		})

		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(svc), newConfig(t, baseDir))
		pipeline.AddInterceptor(tr)

		handled := atomic.NewInt32(0)
		handler := func(context.Context) error {
			if svc.Calls(testkit.AfterLoad) == 1 {
				handled.Inc()
			}
			return nil
		}

		var wg sync.WaitGroup
		dispatch := func() {
			defer wg.Done()
			assert.NoError(t, pipeline.Dispatch(ctx, mutate("lambda"), handler))
		}

		wg.Add(1)
		go dispatch()
		<-entered

		wg.Add(1)
		go dispatch()

		require.Never(t, func() bool { return handled.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)
		assert.False(t, tr.Loaded("lambda"))

		close(release)
		wg.Wait()

		assert.EqualValues(t, 2, handled.Load())
		assert.True(t, tr.Loaded("lambda"))
		assert.Equal(t, 1, svc.Calls(testkit.BeforeLoad))
		assert.Equal(t, 1, svc.Calls(testkit.AfterLoad))
	})

	t.Run("With preparers run once", func(t *testing.T) {
		baseDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "s3"), 0o755))

		prepared := atomic.NewInt32(0)
		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(testkit.NewService("s3")), newConfig(t, baseDir),
			tracker.WithPreparer("s3", func(context.Context) error {
				prepared.Inc()
				return nil
			}))
		pipeline.AddInterceptor(tr)

		require.NoError(t, tr.LoadAll(ctx))
		for range 3 {
			require.NoError(t, pipeline.Dispatch(ctx, mutate("s3"), noopHandler))
		}
		assert.EqualValues(t, 1, prepared.Load())
	})

	t.Run("With failing preparers failing the request", func(t *testing.T) {
		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(testkit.NewService("s3")), newConfig(t, t.TempDir()),
			tracker.WithPreparer("s3", func(context.Context) error { return assert.AnError }))
		pipeline.AddInterceptor(tr)

		require.ErrorIs(t, pipeline.Dispatch(ctx, mutate("s3"), noopHandler), assert.AnError)
		assert.Empty(t, tr.Dirty())
	})

	t.Run("With failed saves retried on the next flush", func(t *testing.T) {
		baseDir := t.TempDir()
		queues := state.NewAccountRegionBundle[queue]("sqs", nil)
		queues.Get("1", "us-east-1").Name = "q"
		svc := testkit.NewService("sqs", queues)
		tr := newTracker(t, testkit.NewRegistry(svc), newConfig(t, baseDir))

		svc.FailHook(testkit.BeforeSave, assert.AnError)
		tr.MarkDirty("sqs")
		err := tr.FlushAll(ctx)
		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, []string{"sqs"}, tr.Dirty())
		assert.NoFileExists(t, filepath.Join(baseDir, "sqs", "store.json"))

		svc.FailHook(testkit.BeforeSave, nil)
		require.NoError(t, tr.FlushAll(ctx))
		assert.Empty(t, tr.Dirty())
		assert.FileExists(t, filepath.Join(baseDir, "sqs", "store.json"))
	})

	t.Run("With one failing service not blocking the others", func(t *testing.T) {
		baseDir := t.TempDir()
		failing := testkit.NewService("sqs", state.NewAccountRegionBundle[queue]("sqs", nil))
		failing.FailHook(testkit.AfterSave, assert.AnError)
		topics := state.NewBackendDict[topic]("sns", nil)
		topics.Get("1", "us-east-1").Arn = "arn:aws:sns:us-east-1:1:t"
		tr := newTracker(t, testkit.NewRegistry(failing, testkit.NewService("sns", topics)), newConfig(t, baseDir))

		tr.MarkDirty("sqs")
		tr.MarkDirty("sns")
		require.Error(t, tr.FlushAll(ctx))
		assert.Equal(t, []string{"sqs"}, tr.Dirty())
		assert.FileExists(t, filepath.Join(baseDir, "sns", "backend.json"))
	})

	t.Run("With incompatible persisted state kept aside", func(t *testing.T) {
		baseDir := t.TempDir()
		cfg := newConfig(t, baseDir)
		queues := state.NewAccountRegionBundle[queue]("sqs", nil)
		queues.Get("1", "us-east-1").Name = "q"
		tr := newTracker(t, testkit.NewRegistry(testkit.NewService("sqs", queues)), cfg)
		tr.MarkDirty("sqs")
		require.NoError(t, tr.FlushAll(ctx))
		require.NoError(t, tr.Close())

		topics := state.NewAccountRegionBundle[topic]("sqs", nil)
		svc := testkit.NewService("sqs", topics)
		next := newTracker(t, testkit.NewRegistry(svc), cfg)
		require.NoError(t, next.LoadAll(ctx))
		assert.True(t, next.Loaded("sqs"))
		assert.Empty(t, topics.Accounts())
		assert.Equal(t, 1, svc.Calls(testkit.AfterLoad))
	})

	t.Run("With at most one writer per service", func(t *testing.T) {
		queues := state.NewAccountRegionBundle[queue]("sqs", nil)
		svc := testkit.NewService("sqs", queues)
		pipeline := testkit.NewPipeline()
		tr := newTracker(t, testkit.NewRegistry(svc), newConfig(t, t.TempDir()))
		pipeline.AddInterceptor(tr)

		var (
			inFlight   = atomic.NewInt32(0)
			saving     = atomic.NewInt32(0)
			violations = atomic.NewInt32(0)
		)
		svc.OnHook(testkit.BeforeSave, func(context.Context) {
			if saving.Inc() > 1 || inFlight.Load() > 0 {
				violations.Inc()
			}
		})
		svc.OnHook(testkit.AfterSave, func(context.Context) {
			saving.Dec()
		})

		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, pipeline.Dispatch(ctx, mutate("sqs"), func(context.Context) error {
					inFlight.Inc()
					defer inFlight.Dec()
					mu.Lock()
					q := queues.Get("1", "us-east-1")
					q.Messages = append(q.Messages, "m")
					mu.Unlock()
					time.Sleep(time.Millisecond)
					return nil
				}))
			}()
		}
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 5 {
					assert.NoError(t, tr.FlushAll(ctx))
				}
			}()
		}
		wg.Wait()
		require.NoError(t, tr.FlushAll(ctx))

		assert.Zero(t, violations.Load())
		assert.Len(t, queues.Get("1", "us-east-1").Messages, 20)
	})

	t.Run("With metrics enabled", func(t *testing.T) {
		baseDir := t.TempDir()
		queues := state.NewAccountRegionBundle[queue]("sqs", nil)
		queues.Get("1", "us-east-1").Name = "q"
		svc := testkit.NewService("sqs", queues)
		tr := newTracker(t, testkit.NewRegistry(svc), newConfig(t, baseDir),
			tracker.WithMeterProvider(noop.NewMeterProvider()))

		tr.MarkDirty("sqs")
		require.NoError(t, tr.FlushAll(ctx))
		require.NoError(t, tr.LoadAll(ctx))
		assert.True(t, tr.Loaded("sqs"))
		require.NoError(t, tr.Close())
	})

	t.Run("With finalize safe to repeat", func(t *testing.T) {
		tr := newTracker(t, testkit.NewRegistry(testkit.NewService("sqs")), newConfig(t, t.TempDir()))

		requestCtx, err := tr.OnRequestBegin(ctx, mutate("sqs"))
		require.NoError(t, err)
		tr.OnRequestFinalize(requestCtx)
		tr.OnRequestFinalize(requestCtx)
		tr.OnRequestFinalize(ctx)

		tr.MarkDirty("sqs")
		require.NoError(t, tr.FlushAll(ctx))
	})
}

func TestTrackerContainers(t *testing.T) {
	ctx := context.Background()

	t.Run("With asset directories and blobs persisted", func(t *testing.T) {
		baseDir := t.TempDir()
		live := filepath.Join(t.TempDir(), "code")
		require.NoError(t, os.MkdirAll(live, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(live, "handler.py"), []byte("print(1)"), 0o600))

		cfg := newConfig(t, baseDir)
		registry := testkit.NewRegistry()
		tr := newTracker(t, registry, cfg)

		blobs := tr.ObjectStore("s3")
		require.NoError(t, blobs.Prepare(ctx))
		object := &objectstore.Object{Key: "docs/readme.md"}
		handle, err := blobs.Open("bucket", object, objectstore.ModeWrite)
		require.NoError(t, err)
		_, err = handle.Write(bytes.NewReader([]byte("hello")))
		require.NoError(t, err)

		registry.Register(testkit.NewService("s3", blobs))
		registry.Register(testkit.NewService("lambda", &state.AssetDirectory{Service: "lambda", Name: "code", Path: live}))

		tr.MarkDirty("s3")
		tr.MarkDirty("lambda")
		require.NoError(t, tr.FlushAll(ctx))
		require.NoError(t, handle.Close())

		content, err := os.ReadFile(filepath.Join(cfg.ObjectsDir("s3"), "bucket", "docs%2freadme.md@null"))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
		content, err = os.ReadFile(filepath.Join(cfg.AssetDir("lambda", "code"), "handler.py"))
		require.NoError(t, err)
		assert.Equal(t, "print(1)", string(content))

		require.NoError(t, os.RemoveAll(live))
		require.NoError(t, tr.LoadAll(ctx))
		content, err = os.ReadFile(filepath.Join(live, "handler.py"))
		require.NoError(t, err)
		assert.Equal(t, "print(1)", string(content))
	})
}

func TestTrackerLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("With start and stop", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		baseDir := t.TempDir()
		queues := state.NewAccountRegionBundle[queue]("sqs", nil)
		queues.Get("1", "us-east-1").Name = "q"
		pipeline := testkit.NewPipeline()
		tr := tracker.New(testkit.NewRegistry(testkit.NewService("sqs", queues)),
			newConfig(t, baseDir, config.WithFlushInterval(20*time.Millisecond)),
			tracker.WithPipeline(pipeline))

		require.NoError(t, tr.Start(ctx))
		assert.Len(t, pipeline.Interceptors(), 1)
		assert.Panics(t, func() { _ = tr.Start(ctx) })

		require.NoError(t, pipeline.Dispatch(ctx, mutate("sqs"), noopHandler))
		require.Eventually(t, func() bool {
			_, err := os.Stat(filepath.Join(baseDir, "sqs", "store.json"))
			return err == nil
		}, 5*time.Second, 10*time.Millisecond)

		require.NoError(t, tr.Stop(ctx))
		assert.Empty(t, pipeline.Interceptors())
		assert.Panics(t, func() { _ = tr.Stop(ctx) })
	})

	t.Run("With a final flush on stop", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		baseDir := t.TempDir()
		topics := state.NewBackendDict[topic]("sns", nil)
		topics.Get("1", "us-east-1").Subscribers = 3
		tr := tracker.New(testkit.NewRegistry(testkit.NewService("sns", topics)),
			newConfig(t, baseDir, config.WithFlushInterval(time.Hour)))

		require.NoError(t, tr.Start(ctx))
		tr.MarkDirty("sns")
		require.NoError(t, tr.Stop(ctx))
		assert.FileExists(t, filepath.Join(baseDir, "sns", "backend.json"))
	})

	t.Run("With stop without start", func(t *testing.T) {
		tr := newTracker(t, testkit.NewRegistry(), newConfig(t, t.TempDir()), tracker.WithoutManifest())
		assert.Panics(t, func() { _ = tr.Stop(ctx) })
	})

	t.Run("With watched asset directories marking dirty", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		baseDir := t.TempDir()
		live := filepath.Join(t.TempDir(), "code")
		require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "lambda"), 0o755))

		svc := testkit.NewService("lambda", &state.AssetDirectory{Service: "lambda", Name: "code", Path: live})
		tr := tracker.New(testkit.NewRegistry(svc), newConfig(t, baseDir))
		require.NoError(t, tr.LoadAll(ctx))

		require.Eventually(t, func() bool {
			_ = os.WriteFile(filepath.Join(live, "handler.py"), []byte(time.Now().String()), 0o600)
			return len(tr.Dirty()) == 1
		}, 5*time.Second, 50*time.Millisecond)
		require.NoError(t, tr.Close())
	})
}
