package cowtrie

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newTestConfig(valuesLike interface{}) *RemoteConfig {
	return &RemoteConfig{
		ValuesLike:              valuesLike,
		StoreImmutablePartsWith: NewInMemoryStore(),
	}
}

func TestMakeRootAndLoad(t *testing.T) {
	t.Parallel()
	for _, format := range []NodeFormat{JSONNodes, BinaryNodes} {
		format := format
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()
			cfg := newTestConfig("")
			cfg.NodeFormat = format
			v := New()
			for _, k := range []string{"", "a", "ab", "abc", "b", "hello", "help"} {
				v = Put(v, k, "value of "+k)
			}
			root, err := v.MakeRoot(ctx, cfg)
			require.NoError(t, err)
			require.NotNil(t, root.Link)
			require.Equal(t, uint64(7), root.Size)
			require.Equal(t, format, root.NodeFormat)

			loaded, err := root.LoadTrie(ctx, cfg)
			require.NoError(t, err)
			require.Equal(t, v.Size(), loaded.Size())
			require.Equal(t, v.toSlice(), loaded.toSlice())
			s, ok := Get[string](loaded, "help")
			require.True(t, ok)
			require.Equal(t, "value of help", s)
		})
	}
}

func TestEmptyRoot(t *testing.T) {
	t.Parallel()
	cfg := newTestConfig(0)
	root, err := New().MakeRoot(ctx, cfg)
	require.NoError(t, err)
	require.Nil(t, root.Link)
	loaded, err := root.LoadTrie(ctx, cfg)
	require.NoError(t, err)
	require.True(t, loaded.IsEmpty())

	bad := Root{Size: 3}
	_, err = bad.LoadTrie(ctx, cfg)
	require.Error(t, err)
}

func TestNoPersist(t *testing.T) {
	t.Parallel()
	_, err := Put(New(), "k", 1).MakeRoot(ctx, &RemoteConfig{})
	require.ErrorIs(t, err, ErrNoPersist)
	link := "x"
	_, err = (&Root{Link: &link, Size: 1}).LoadTrie(ctx, &RemoteConfig{})
	require.ErrorIs(t, err, ErrNoPersist)
}

func TestNilValuesLike(t *testing.T) {
	t.Parallel()
	cfg := newTestConfig(nil)
	root, err := Put(Put(New(), "n", 1.5), "s", "str").MakeRoot(ctx, cfg)
	require.NoError(t, err)
	loaded, err := root.LoadTrie(ctx, cfg)
	require.NoError(t, err)
	n, ok := Get[interface{}](loaded, "n")
	require.True(t, ok)
	require.Equal(t, 1.5, n)
	s, ok := Get[interface{}](loaded, "s")
	require.True(t, ok)
	require.Equal(t, "str", s)
}

func TestSharedSubtreesAreStoredOnce(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore().(*inMemoryStore)
	cfg := &RemoteConfig{
		ValuesLike:              0,
		StoreImmutablePartsWith: store,
		NodeCache:               NewNodeCache(100),
	}
	v1 := New()
	for i, k := range []string{"aaa", "aab", "bbb", "bbc", "ccc"} {
		v1 = Put(v1, k, i)
	}
	_, err := v1.MakeRoot(ctx, cfg)
	require.NoError(t, err)
	entries1, stores1 := store.stats()
	require.Equal(t, entries1, stores1)

	v2 := Put(v1, "aab", 99)
	_, err = v2.MakeRoot(ctx, cfg)
	require.NoError(t, err)
	entries2, stores2 := store.stats()
	// only root, "a", "aa" and "aab" are new
	require.Equal(t, entries1+4, entries2)
	require.Equal(t, stores1+4, stores2)
}

func TestIdenticalContentSharesNames(t *testing.T) {
	t.Parallel()
	cfg := newTestConfig(0)
	a := Put(Put(New(), "x", 1), "y", 2)
	b := Put(Put(New(), "y", 2), "x", 1)
	ra, err := a.MakeRoot(ctx, cfg)
	require.NoError(t, err)
	rb, err := b.MakeRoot(ctx, cfg)
	require.NoError(t, err)
	require.Equal(t, *ra.Link, *rb.Link, "insertion order does not matter")
}

func TestNodeCacheSharesLoadedNodes(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	saveCfg := &RemoteConfig{ValuesLike: 0, StoreImmutablePartsWith: store}
	v1 := Put(Put(New(), "left", 1), "right", 2)
	v2 := Put(v1, "right", 3)
	r1, err := v1.MakeRoot(ctx, saveCfg)
	require.NoError(t, err)
	r2, err := v2.MakeRoot(ctx, saveCfg)
	require.NoError(t, err)

	loadCfg := &RemoteConfig{ValuesLike: 0, StoreImmutablePartsWith: store, NodeCache: NewNodeCache(100)}
	l1, err := r1.LoadTrie(ctx, loadCfg)
	require.NoError(t, err)
	l2, err := r2.LoadTrie(ctx, loadCfg)
	require.NoError(t, err)
	require.Same(t, l1.root.children['l'], l2.root.children['l'])
	require.NotSame(t, l1.root.children['r'], l2.root.children['r'])

	var changes []string
	err = l2.DiffIter(l1, func(added, removed bool, key string, addedValue, removedValue interface{}) (bool, error) {
		changes = append(changes, key)
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"right"}, changes)
}

type failingStore struct {
	Persist
	failOn int32
	calls  atomic.Int32
}

func (f *failingStore) Store(ctx context.Context, name string, b []byte) error {
	if f.calls.Add(1) == f.failOn {
		return errors.New("disk full")
	}
	return f.Persist.Store(ctx, name, b)
}

func TestStoreError(t *testing.T) {
	t.Parallel()
	v := Put(New(), "k", 1)
	cfg := &RemoteConfig{
		StoreImmutablePartsWith: &failingStore{Persist: NewInMemoryStore(), failOn: 1},
	}
	_, err := v.MakeRoot(ctx, cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	cfg := newTestConfig(0)
	root, err := Put(Put(New(), "ab", 1), "ac", 2).MakeRoot(ctx, cfg)
	require.NoError(t, err)

	missing := "does-not-exist"
	_, err = (&Root{Link: &missing, Size: 1}).LoadTrie(ctx, cfg)
	require.Error(t, err)

	wrongSize := *root
	wrongSize.Size = 5
	_, err = wrongSize.LoadTrie(ctx, cfg)
	require.Error(t, err)

	wrongFormat := *root
	wrongFormat.NodeFormat = BinaryNodes
	_, err = wrongFormat.LoadTrie(ctx, cfg)
	require.Error(t, err)

	wrongType := newTestConfig(struct{ X int }{})
	wrongType.StoreImmutablePartsWith = cfg.StoreImmutablePartsWith
	_, err = root.LoadTrie(ctx, wrongType)
	require.Error(t, err)

	empty := nameOf([]byte(`{}`))
	require.NoError(t, cfg.StoreImmutablePartsWith.Store(ctx, empty, []byte(`{}`)))
	_, err = (&Root{Link: &empty}).LoadTrie(ctx, cfg)
	require.Error(t, err)

	self := "self"
	require.NoError(t, cfg.StoreImmutablePartsWith.Store(ctx, self, []byte(`{"h":true,"v":"MQ==","c":{"97":"self"}}`)))
	_, err = (&Root{Link: &self, Size: 1}).LoadTrie(ctx, cfg)
	require.ErrorContains(t, err, "does not match its content")

	tampered := *root.Link
	b, err := cfg.StoreImmutablePartsWith.Load(ctx, tampered)
	require.NoError(t, err)
	other := NewInMemoryStore()
	require.NoError(t, other.Store(ctx, tampered, append(b, ' ')))
	_, err = root.LoadTrie(ctx, &RemoteConfig{ValuesLike: 0, StoreImmutablePartsWith: other})
	require.ErrorContains(t, err, "does not match its content")
}

func TestCachedNodesTakeLoadedType(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	v := Put(Put(New(), "k", 1), "kk", 2)
	cold := &RemoteConfig{ValuesLike: float64(0), StoreImmutablePartsWith: store}
	warm := &RemoteConfig{ValuesLike: float64(0), StoreImmutablePartsWith: store, NodeCache: NewNodeCache(100)}
	root, err := v.MakeRoot(ctx, warm)
	require.NoError(t, err)

	for _, cfg := range []*RemoteConfig{cold, warm, warm} {
		loaded, err := root.LoadTrie(ctx, cfg)
		require.NoError(t, err)
		f, ok := Get[float64](loaded, "k")
		require.True(t, ok)
		require.Equal(t, 1.0, f)
		f, ok = Get[float64](loaded, "kk")
		require.True(t, ok)
		require.Equal(t, 2.0, f)
		_, ok = Get[int](loaded, "k")
		require.False(t, ok)
	}

	same := &RemoteConfig{ValuesLike: 0, StoreImmutablePartsWith: store, NodeCache: NewNodeCache(100)}
	root, err = v.MakeRoot(ctx, same)
	require.NoError(t, err)
	loaded, err := root.LoadTrie(ctx, same)
	require.NoError(t, err)
	require.Same(t, v.root, loaded.root, "nodes of a matching type are reused")
}

type point struct {
	X, Y int
}

func TestCustomMarshaler(t *testing.T) {
	t.Parallel()
	gobMarshal := func(i interface{}) ([]byte, error) {
		var buf bytes.Buffer
		err := gob.NewEncoder(&buf).Encode(i)
		return buf.Bytes(), err
	}
	gobUnmarshal := func(b []byte, i interface{}) error {
		return gob.NewDecoder(bytes.NewReader(b)).Decode(i)
	}
	cfg := &RemoteConfig{
		ValuesLike:              point{},
		StoreImmutablePartsWith: NewInMemoryStore(),
		Marshal:                 gobMarshal,
		Unmarshal:               gobUnmarshal,
		NodeFormat:              BinaryNodes,
	}
	v := Put(Put(New(), "origin", point{}), "p", point{3, 4})
	root, err := v.MakeRoot(ctx, cfg)
	require.NoError(t, err)
	loaded, err := root.LoadTrie(ctx, cfg)
	require.NoError(t, err)
	p, ok := Get[point](loaded, "p")
	require.True(t, ok)
	require.Equal(t, point{3, 4}, p)
	p, ok = Get[point](loaded, "origin")
	require.True(t, ok)
	require.Equal(t, point{}, p)
}

func TestLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	cfg := newTestConfig(0)
	cfg.Logger = &logger
	root, err := Put(New(), "k", 1).MakeRoot(ctx, cfg)
	require.NoError(t, err)
	_, err = root.LoadTrie(ctx, cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"made root"`)
	assert.Contains(t, buf.String(), `"message":"loaded root"`)
	assert.Contains(t, buf.String(), *root.Link)
}
