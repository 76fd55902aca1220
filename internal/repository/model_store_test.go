package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	"github.com/antonbeski0/Predflux/internal/services/nn"
	"github.com/antonbeski0/Predflux/pkg/kvstore"
)

type brokenKV struct{}

func (brokenKV) Put(context.Context, string, []byte) error { return errors.New("io") }
func (brokenKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("io")
}
func (brokenKV) Close() error { return nil }

func TestModelStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewModelStore(kvstore.NewMemoryStore())

	net, err := nn.New(nn.SingleAssetArchitecture(8, 4), 3)
	require.NoError(t, err)
	art := net.Artifact(models.SingleAssetModel)

	require.NoError(t, store.Save(ctx, models.SingleAssetModel, art))
	got, err := store.Load(ctx, models.SingleAssetModel)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, art.Weights, got.Weights)
	assert.True(t, art.Architecture.Equal(got.Architecture))

	restored, err := nn.FromArtifact(got)
	require.NoError(t, err)
	in := [][][]float64{{{0.1}, {0.2}, {0.3}, {0.4}, {0.5}, {0.6}, {0.7}, {0.8}}}
	want, _ := net.Predict(in)
	have, _ := restored.Predict(in)
	assert.Equal(t, want, have)
}

func TestModelStoreKeysBySlotName(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	store := NewModelStore(kv)
	net, _ := nn.New(nn.SingleAssetArchitecture(4, 2), 1)

	require.NoError(t, store.Save(ctx, models.SingleAssetModel, net.Artifact(models.SingleAssetModel)))
	raw, ok, err := kv.Get(ctx, models.SingleAssetModel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"weights"`)
}

func TestModelStoreMissing(t *testing.T) {
	ctx := context.Background()
	store := NewModelStore(kvstore.NewMemoryStore())

	got, err := store.Load(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = store.MustLoad(ctx, "nothing")
	require.ErrorIs(t, err, models.ErrModelMissing)
}

func TestModelStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewModelStore(kvstore.NewMemoryStore())
	a, _ := nn.New(nn.SingleAssetArchitecture(4, 2), 1)
	b, _ := nn.New(nn.SingleAssetArchitecture(4, 2), 2)

	require.NoError(t, store.Save(ctx, "slot", a.Artifact("slot")))
	require.NoError(t, store.Save(ctx, "slot", b.Artifact("slot")))
	got, err := store.MustLoad(ctx, "slot")
	require.NoError(t, err)
	assert.Equal(t, b.Artifact("slot").Weights, got.Weights)
}

func TestModelStorePersistenceErrors(t *testing.T) {
	ctx := context.Background()
	store := NewModelStore(brokenKV{})
	net, _ := nn.New(nn.SingleAssetArchitecture(2, 2), 1)

	require.ErrorIs(t, store.Save(ctx, "slot", net.Artifact("slot")), models.ErrPersistence)
	_, err := store.Load(ctx, "slot")
	require.ErrorIs(t, err, models.ErrPersistence)
	require.ErrorIs(t, store.Save(ctx, "slot", nil), models.ErrPersistence)
}

func TestModelStoreCorruptPayload(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Put(ctx, "slot", []byte("{not json")))
	_, err := NewModelStore(kv).Load(ctx, "slot")
	require.ErrorIs(t, err, models.ErrPersistence)
}

func TestModelStoreOnBadger(t *testing.T) {
	ctx := context.Background()
	kv, err := kvstore.NewBadgerStore(kvstore.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer kv.Close()
	store := NewModelStore(kv)

	net, _ := nn.New(nn.MultiAssetArchitecture(2, 3, 4, 5), 1)
	require.NoError(t, store.Save(ctx, models.MultiAssetModel, net.Artifact(models.MultiAssetModel)))
	got, err := store.MustLoad(ctx, models.MultiAssetModel)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Architecture.Branches)
}
