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
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/emustate/errors"
	"github.com/tochemey/emustate/internal/compression"
	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/log"
)

type shape interface {
	Area() float64
}

type square struct {
	Side float64
}

func (s square) Area() float64 { return s.Side * s.Side }

type circle struct {
	Radius float64
}

func (c *circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

type queue struct {
	Name       string
	Attributes map[string]string
	Created    time.Time
	Retention  time.Duration
	Body       []byte
	Digest     [4]byte
	Counts     map[int]uint32
	Tags       []string
	Parent     *queue
	Shape      shape
	Extra      any
	Secret     string `persist:"-"`
	Renamed    int    `persist:"renamed_field"`
	mu         sync.Mutex
	Lock       sync.RWMutex
	internal   string
}

type account struct {
	ID     string
	Queues map[string]*queue
}

type node struct {
	Name string
	Next *node
}

type withChannel struct {
	Events chan int
}

type counter struct {
	value int
}

func (c *counter) ToPersisted() (any, error) {
	return map[string]int{"value": c.value}, nil
}

func (c *counter) FromPersisted(decode func(any) error) error {
	var projection map[string]int
	if err := decode(&projection); err != nil {
		return err
	}
	c.value = projection["value"]
	return nil
}

type meter struct {
	Hits *counter
	Last counter
}

func newTestEngine(opts ...Option) *Engine {
	opts = append([]Option{
		WithLogger(log.DiscardLogger),
		WithTypes(new(square), new(circle)),
	}, opts...)
	return NewEngine(opts...)
}

func sampleAccount() *account {
	created := time.Date(2024, 3, 4, 5, 6, 7, 891011121, time.FixedZone("", 2*3600))
	return &account{
		ID: "000000000000",
		Queues: map[string]*queue{
			"orders": {
				Name:       "orders",
				Attributes: map[string]string{"VisibilityTimeout": "30"},
				Created:    created,
				Retention:  4 * 24 * time.Hour,
				Body:       []byte{0x00, 0xff, 0x10},
				Digest:     [4]byte{1, 2, 3, 4},
				Counts:     map[int]uint32{3: 30, 1: 10},
				Tags:       []string{"a", "b"},
				Parent:     &queue{Name: "dlq"},
				Shape:      &circle{Radius: 2},
				Extra:      int64(42),
				Secret:     "hidden",
				Renamed:    7,
				internal:   "skipped",
			},
			"empty": {Name: "empty", Shape: square{Side: 3}},
		},
	}
}

func compareOptions() cmp.Options {
	return cmp.Options{
		cmpopts.IgnoreUnexported(queue{}),
		cmpopts.IgnoreFields(queue{}, "Secret", "Lock"),
		cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
	}
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("With a round trip per format", func(t *testing.T) {
		for _, tc := range []struct {
			name        string
			formats     []Format
			compression compression.Algorithm
		}{
			{name: "json", formats: []Format{FormatJSON}},
			{name: "binary", formats: []Format{FormatBinary}},
			{name: "binary with zstd", formats: []Format{FormatBinary}, compression: compression.Zstd},
			{name: "binary with brotli", formats: []Format{FormatBinary}, compression: compression.Brotli},
		} {
			t.Run(tc.name, func(t *testing.T) {
				base := filepath.Join(t.TempDir(), "sqs", "store")
				engine := newTestEngine(WithFormats(tc.formats...), WithCompression(tc.compression))

				expected := sampleAccount()
				require.NoError(t, engine.Write(ctx, base, expected))

				actual := new(account)
				found, err := engine.Read(ctx, base, actual)
				require.NoError(t, err)
				require.True(t, found)

				expected.Queues["orders"].Secret = ""
				if diff := cmp.Diff(expected, actual, compareOptions()...); diff != "" {
					t.Fatalf("restored graph mismatch (-want +got):\n%s", diff)
				}
				assert.Empty(t, actual.Queues["orders"].internal)
				assert.Equal(t, 7, actual.Queues["orders"].Renamed)
				assert.IsType(t, &circle{}, actual.Queues["orders"].Shape)
				assert.IsType(t, square{}, actual.Queues["empty"].Shape)
				_, offset := actual.Queues["orders"].Created.Zone()
				assert.Equal(t, 2*3600, offset)
			})
		}
	})
	t.Run("With no persisted file", func(t *testing.T) {
		engine := newTestEngine()
		found, err := engine.Read(ctx, filepath.Join(t.TempDir(), "sqs", "store"), new(account))
		require.NoError(t, err)
		assert.False(t, found)
	})
	t.Run("With an invalid target", func(t *testing.T) {
		engine := newTestEngine()
		_, err := engine.Read(ctx, filepath.Join(t.TempDir(), "store"), account{})
		assert.ErrorIs(t, err, errors.ErrInvalidTarget)
	})
	t.Run("With a cyclic graph", func(t *testing.T) {
		engine := newTestEngine()
		first := &node{Name: "first"}
		first.Next = &node{Name: "second", Next: first}
		err := engine.Write(ctx, filepath.Join(t.TempDir(), "store"), first)
		assert.ErrorIs(t, err, errors.ErrCyclicGraph)
	})
	t.Run("With a shared pointer that is not a cycle", func(t *testing.T) {
		engine := newTestEngine()
		shared := &queue{Name: "shared"}
		value := map[string]*queue{"a": shared, "b": shared}
		base := filepath.Join(t.TempDir(), "store")
		require.NoError(t, engine.Write(ctx, base, value))

		restored := map[string]*queue{}
		found, err := engine.Read(ctx, base, &restored)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "shared", restored["a"].Name)
		assert.Equal(t, "shared", restored["b"].Name)
	})
	t.Run("With an unsupported type", func(t *testing.T) {
		engine := newTestEngine()
		err := engine.Write(ctx, filepath.Join(t.TempDir(), "store"), &withChannel{Events: make(chan int)})
		assert.ErrorIs(t, err, errors.ErrUnsupportedType)
	})
	t.Run("With an unregistered interface type", func(t *testing.T) {
		engine := NewEngine(WithLogger(log.DiscardLogger))
		err := engine.Write(ctx, filepath.Join(t.TempDir(), "store"), &queue{Shape: square{Side: 1}})
		assert.ErrorIs(t, err, errors.ErrUnsupportedType)
	})
	t.Run("With persistable projections", func(t *testing.T) {
		engine := newTestEngine()
		base := filepath.Join(t.TempDir(), "store")
		require.NoError(t, engine.Write(ctx, base, &meter{Hits: &counter{value: 3}, Last: counter{value: 9}}))

		restored := new(meter)
		found, err := engine.Read(ctx, base, restored)
		require.NoError(t, err)
		require.True(t, found)
		require.NotNil(t, restored.Hits)
		assert.Equal(t, 3, restored.Hits.value)
		assert.Equal(t, 9, restored.Last.value)
	})
	t.Run("With NaN falling back to the binary format", func(t *testing.T) {
		engine := newTestEngine()
		base := filepath.Join(t.TempDir(), "store")
		require.NoError(t, os.WriteFile(base+".json", []byte(`{"v":1,"data":{}}`), 0o644))

		require.NoError(t, engine.Write(ctx, base, map[string]float64{"nan": math.NaN(), "inf": math.Inf(1)}))

		assert.NoFileExists(t, base+".json")
		assert.FileExists(t, base+".bin")

		restored := map[string]float64{}
		found, err := engine.Read(ctx, base, &restored)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, math.IsNaN(restored["nan"]))
		assert.True(t, math.IsInf(restored["inf"], 1))
	})
	t.Run("With files of disabled formats removed", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		both := newTestEngine(WithFormats(FormatJSON, FormatBinary))
		require.NoError(t, both.Write(ctx, base, map[string]string{"k": "v"}))
		assert.FileExists(t, base+".json")
		assert.FileExists(t, base+".bin")

		jsonOnly := newTestEngine()
		require.NoError(t, jsonOnly.Write(ctx, base, map[string]string{"k": "v"}))
		assert.FileExists(t, base+".json")
		assert.NoFileExists(t, base+".bin")
	})
	t.Run("With the most recent file selected", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		engine := newTestEngine(WithFormats(FormatJSON, FormatBinary))

		require.NoError(t, newTestEngine(WithFormats(FormatJSON)).Write(ctx, base, map[string]string{"from": "json"}))
		require.NoError(t, newTestEngine(WithFormats(FormatBinary)).Write(ctx, base, map[string]string{"from": "binary"}))
		require.NoError(t, newTestEngine(WithFormats(FormatJSON)).Write(ctx, base+"-tmp", map[string]string{"from": "json"}))
		require.NoError(t, os.Rename(base+"-tmp.json", base+".json"))

		older, newer := time.Now().Add(-time.Hour), time.Now()
		require.NoError(t, os.Chtimes(base+".bin", older, older))
		require.NoError(t, os.Chtimes(base+".json", newer, newer))

		restored := map[string]string{}
		_, err := engine.Read(ctx, base, &restored)
		require.NoError(t, err)
		assert.Equal(t, "json", restored["from"])

		require.NoError(t, os.Chtimes(base+".bin", newer.Add(time.Minute), newer.Add(time.Minute)))
		_, err = engine.Read(ctx, base, &restored)
		require.NoError(t, err)
		assert.Equal(t, "binary", restored["from"])
	})
	t.Run("With a modification time tie", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		require.NoError(t, newTestEngine(WithFormats(FormatBinary)).Write(ctx, base, map[string]string{"from": "binary"}))
		require.NoError(t, newTestEngine(WithFormats(FormatJSON)).Write(ctx, base+"-tmp", map[string]string{"from": "json"}))
		require.NoError(t, os.Rename(base+"-tmp.json", base+".json"))

		tie := time.Now().Truncate(time.Second)
		require.NoError(t, os.Chtimes(base+".bin", tie, tie))
		require.NoError(t, os.Chtimes(base+".json", tie, tie))

		for _, tc := range []struct {
			formats  []Format
			expected string
		}{
			{formats: []Format{FormatJSON}, expected: "json"},
			{formats: []Format{FormatBinary}, expected: "binary"},
			{formats: []Format{FormatJSON, FormatBinary}, expected: "binary"},
			{formats: []Format{FormatBinary, FormatJSON}, expected: "json"},
		} {
			engine := newTestEngine(WithFormats(tc.formats...))
			restored := map[string]string{}
			_, err := engine.Read(ctx, base, &restored)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, restored["from"], "formats %v", tc.formats)
		}
	})
	t.Run("With an unsupported version", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		require.NoError(t, os.WriteFile(base+".json", []byte(`{"v":2,"data":{"k":"v"}}`), 0o644))

		restored := map[string]string{}
		found, err := newTestEngine().Read(ctx, base, &restored)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "v", restored["k"])
	})
	t.Run("With an invalid envelope", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		require.NoError(t, os.WriteFile(base+".json", []byte(`{"v":1}`), 0o644))
		_, err := newTestEngine().Read(ctx, base, &map[string]string{})
		assert.ErrorIs(t, err, errors.ErrInvalidEnvelope)
	})
	t.Run("With an unknown binary marker", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		bytea, err := cborEncMode.Marshal(&Envelope{Version: Version, Data: map[string]any{"k": "v"}})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(base+".bin", bytea, 0o644))

		restored := map[string]string{}
		found, err := newTestEngine().Read(ctx, base, &restored)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "v", restored["k"])
	})
	t.Run("With legacy timestamps", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		document := `{"v":1,"data":{"a":{"isoformat":"2023-01-02T03:04:05.000006"},"b":"2023-01-02T03:04:05Z"}}`
		require.NoError(t, os.WriteFile(base+".json", []byte(document), 0o644))

		restored := map[string]time.Time{}
		_, err := newTestEngine().Read(ctx, base, &restored)
		require.NoError(t, err)
		assert.True(t, restored["a"].Equal(time.Date(2023, 1, 2, 3, 4, 5, 6000, time.UTC)))
		assert.True(t, restored["b"].Equal(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)))
	})
	t.Run("With renamed interface types", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		document := `{"v":1,"data":{"Name":"q","Shape":{"@type":"example.com/legacy/shapes.square","@value":{"Side":2}}}}`
		require.NoError(t, os.WriteFile(base+".json", []byte(document), 0o644))

		engine := newTestEngine(WithRename("example.com/legacy/shapes.", "github.com/tochemey/emustate/serialization."))
		restored := new(queue)
		_, err := engine.Read(ctx, base, restored)
		require.NoError(t, err)
		assert.Equal(t, square{Side: 2}, restored.Shape)
	})
	t.Run("With an unknown interface type", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		document := `{"v":1,"data":{"Shape":{"@type":"example.com/unknown.type","@value":{}}}}`
		require.NoError(t, os.WriteFile(base+".json", []byte(document), 0o644))
		_, err := newTestEngine().Read(ctx, base, new(queue))
		assert.ErrorIs(t, err, errors.ErrUnknownType)
	})
}

type accountV1 struct {
	ID   string
	Name string
}

type accountV2 struct {
	ID          string
	DisplayName string
}

type tally struct {
	value int
}

func (c *tally) ToPersisted() (any, error) {
	return map[string]int{"value": c.value}, nil
}

func (c *tally) FromPersisted(decode func(any) error) error {
	var projection map[string]int
	if err := decode(&projection); err != nil {
		return err
	}
	c.value = projection["value"]
	return nil
}

type meterV1 struct {
	Hits *counter
}

type meterV2 struct {
	Hits *tally
}

type linked struct {
	Name string
	Next *linked
}

type chain struct {
	Name string
	Next *chain
}

func TestEngineShapes(t *testing.T) {
	ctx := context.Background()

	t.Run("With a stable fingerprint", func(t *testing.T) {
		engine := newTestEngine()
		first := engine.Shape(reflect.TypeOf(account{}))
		assert.Equal(t, first, engine.Shape(reflect.TypeOf(&account{})))
		assert.Len(t, first, 16)
		assert.NotEqual(t, engine.Shape(reflect.TypeOf(accountV1{})), engine.Shape(reflect.TypeOf(accountV2{})))
	})
	t.Run("With type names left out of the fingerprint", func(t *testing.T) {
		engine := newTestEngine()
		assert.Equal(t, engine.Shape(reflect.TypeOf(meterV1{})), engine.Shape(reflect.TypeOf(meterV2{})))
		assert.Equal(t, engine.Shape(reflect.TypeOf(linked{})), engine.Shape(reflect.TypeOf(chain{})))
		assert.Equal(t, engine.Shape(reflect.TypeOf(node{})), engine.Shape(reflect.TypeOf(linked{})))
	})
	t.Run("With renamed persistable types", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "svc", "store")
		require.NoError(t, newTestEngine().Write(ctx, base, &meterV1{Hits: &counter{value: 42}}))

		engine := newTestEngine(WithRename(
			"github.com/tochemey/emustate/serialization.meterv1",
			"github.com/tochemey/emustate/serialization.meterv2"))
		restored := new(meterV2)
		found, err := engine.Read(ctx, base, restored)
		require.NoError(t, err)
		require.True(t, found)
		require.NotNil(t, restored.Hits)
		assert.Equal(t, 42, restored.Hits.value)
	})
	t.Run("With a shape mismatch and no migration", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "iam", "store")
		engine := newTestEngine()
		require.NoError(t, engine.Write(ctx, base, &accountV1{ID: "1", Name: "admin"}))

		_, err := engine.Read(ctx, base, new(accountV2))
		require.ErrorIs(t, err, errors.ErrShapeMismatch)
		assert.ErrorIs(t, err, errors.ErrNoMigration)
	})
	t.Run("With a registered migration", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "iam", "store")
		writer := newTestEngine()
		require.NoError(t, writer.Write(ctx, base, &accountV1{ID: "1", Name: "admin"}))

		reader := newTestEngine(WithMigration(Migration{
			Service: "iam",
			Kind:    "store",
			From:    writer.Shape(reflect.TypeOf(accountV1{})),
			Apply: func(data any) (any, error) {
				object := data.(map[string]any)
				object["DisplayName"] = object["Name"]
				delete(object, "Name")
				return object, nil
			},
		}))

		restored := new(accountV2)
		found, err := reader.Read(ctx, base, restored)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, accountV2{ID: "1", DisplayName: "admin"}, *restored)
	})
	t.Run("With a legacy envelope without shape", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "store")
		require.NoError(t, os.WriteFile(base+".json", []byte(`{"v":1,"data":{"ID":"1","DisplayName":"x","Dropped":true}}`), 0o644))

		restored := new(accountV2)
		found, err := newTestEngine().Read(ctx, base, restored)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "x", restored.DisplayName)
	})
}

func TestEngineManifest(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	m, err := manifest.Open(filepath.Join(root, manifest.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	engine := newTestEngine(WithManifest(m, root))
	base := filepath.Join(root, "sqs", "store")
	require.NoError(t, engine.Write(ctx, base, map[string]string{"k": "v"}))

	digest, ok := m.Digest("sqs/store.json")
	require.True(t, ok)
	assert.NotZero(t, digest)

	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(base+".json", past, past))

	require.NoError(t, engine.Write(ctx, base, map[string]string{"k": "v"}))
	info, err := os.Stat(base + ".json")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past), "unchanged document must not be rewritten")

	require.NoError(t, engine.Write(ctx, base, map[string]string{"k": "changed"}))
	info, err = os.Stat(base + ".json")
	require.NoError(t, err)
	assert.True(t, info.ModTime().After(past))

	raw, err := os.ReadFile(base + ".json")
	require.NoError(t, err)
	var document map[string]any
	require.NoError(t, json.Unmarshal(raw, &document))
	assert.EqualValues(t, Version, document["v"])
	assert.Equal(t, "map[string]string", document["type"])
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat(" Binary ")
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, format)
	assert.Equal(t, ".bin", format.Extension())

	format, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)

	_, err = ParseFormat("pickle")
	assert.ErrorIs(t, err, errors.ErrUnknownFormat)

	format, ok := FormatOf("/data/sqs/store.bin")
	require.True(t, ok)
	assert.Equal(t, FormatBinary, format)
	_, ok = FormatOf("/data/sqs/store.txt")
	assert.False(t, ok)
}

func TestEngineInspect(t *testing.T) {
	ctx := context.Background()
	basePath := filepath.Join(t.TempDir(), "sqs", "store")
	engine := newTestEngine(WithFormats(FormatJSON, FormatBinary), WithCompression(compression.Brotli))
	require.NoError(t, engine.Write(ctx, basePath, map[string]string{"a": "b"}))

	for _, format := range []Format{FormatJSON, FormatBinary} {
		t.Run("With "+format.String(), func(t *testing.T) {
			envelope, detected, err := engine.Inspect(basePath + format.Extension())
			require.NoError(t, err)
			assert.Equal(t, format, detected)
			assert.Equal(t, Version, envelope.Version)
			assert.Equal(t, "map[string]string", envelope.Type)
			assert.NotEmpty(t, envelope.Shape)
			assert.Equal(t, map[string]any{"a": "b"}, envelope.Data)
		})
	}

	t.Run("With an unknown extension", func(t *testing.T) {
		_, _, err := engine.Inspect(basePath + ".txt")
		require.ErrorIs(t, err, errors.ErrUnknownFormat)
	})
}
