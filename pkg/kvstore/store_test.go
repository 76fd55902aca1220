package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	b, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	sq, err := NewSQLiteStore(ctx, SQLiteConfig{Path: filepath.Join(t.TempDir(), "models.db")})
	require.NoError(t, err)

	stores := map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendBadger: b,
		BackendSQLite: sq,
		"layered":     NewLayeredStore(NewMemoryStore()),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put(ctx, "slot", []byte(`{"v":1}`)))
			got, ok, err := s.Get(ctx, "slot")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `{"v":1}`, string(got))

			// last write wins
			require.NoError(t, s.Put(ctx, "slot", []byte(`{"v":2}`)))
			got, ok, err = s.Get(ctx, "slot")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `{"v":2}`, string(got))
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[0] = 'x'
	got, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, s.Len())
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "models.db")

	s, err := NewSQLiteStore(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "slot", []byte("weights")))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Get(ctx, "slot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "weights", string(got))
}

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, string, []byte) error { return f.err }
func (f failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, f.err
}
func (f failingStore) Close() error { return nil }

func TestLayeredStoreDoesNotCacheFailedWrites(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	l := NewLayeredStore(failingStore{err: boom})

	require.ErrorIs(t, l.Put(ctx, "k", []byte("v")), boom)
	_, ok, err := l.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestLayeredStoreFillsMemoryFromDurable(t *testing.T) {
	ctx := context.Background()
	durable := NewMemoryStore()
	require.NoError(t, durable.Put(ctx, "k", []byte("v")))
	l := NewLayeredStore(durable)

	got, ok, err := l.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
	assert.Equal(t, 1, l.mem.Len())
}

func TestBadgerRequiresPath(t *testing.T) {
	_, err := NewBadgerStore(BadgerConfig{})
	require.Error(t, err)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "predflux:m", GenerateKey("predflux", "m"))
	assert.Equal(t, "m", GenerateKey("", "m"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendBadger, Layered: true, Badger: BadgerConfig{InMemory: true}})
	require.NoError(t, err)
	assert.IsType(t, &LayeredStore{}, s)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: BackendClickHouse})
	require.Error(t, err)

	_, err = Open(ctx, Options{Backend: "tape"})
	require.Error(t, err)
}
