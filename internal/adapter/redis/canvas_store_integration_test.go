package redis

import (
	"context"
	"sync"
	"testing"

	"github.com/pscheid92/pixelgrid/internal/canvas"
	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCanvasStore(t *testing.T, width, height int) *CanvasStore {
	t.Helper()
	client := setupTestClient(t)
	geometry, err := canvas.NewGeometry(width, height)
	require.NoError(t, err)
	return NewCanvasStore(client, "canvas:test", geometry)
}

func TestCanvasStore_InitializeCreatesZeroBuffer(t *testing.T) {
	store := newTestCanvasStore(t, 5, 3)
	ctx := context.Background()

	require.NoError(t, store.Initialize(ctx))

	buf, err := store.ReadFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8), buf)
}

func TestCanvasStore_InitializeKeepsExistingCanvas(t *testing.T) {
	store := newTestCanvasStore(t, 4, 4)
	ctx := context.Background()

	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.WriteCell(ctx, 1, 0, 9))
	require.NoError(t, store.Initialize(ctx))

	buf, err := store.ReadFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), canvas.Cell(buf, 1))
}

func TestCanvasStore_ReadFullMissingKey(t *testing.T) {
	store := newTestCanvasStore(t, 3, 3)

	buf, err := store.ReadFull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 5), buf)
}

func TestCanvasStore_WriteCellUsesNibbleLayout(t *testing.T) {
	store := newTestCanvasStore(t, 3, 1)
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx))

	require.NoError(t, store.WriteCell(ctx, 0, 0, 0xA))
	require.NoError(t, store.WriteCell(ctx, 1, 0, 0x3))
	require.NoError(t, store.WriteCell(ctx, 2, 0, 0xF))

	buf, err := store.ReadFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA3, 0xF0}, buf)
}

func TestCanvasStore_WriteCellRejectsInvalidInput(t *testing.T) {
	store := newTestCanvasStore(t, 4, 4)
	ctx := context.Background()

	err := store.WriteCell(ctx, 4, 0, 1)
	assert.ErrorIs(t, err, domain.ErrOutOfBounds)

	err = store.WriteCell(ctx, 0, 0, 16)
	assert.ErrorIs(t, err, domain.ErrInvalidColor)
}

func TestCanvasStore_ConcurrentNeighbourWrites(t *testing.T) {
	store := newTestCanvasStore(t, 16, 16)
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx))

	var wg sync.WaitGroup
	for x := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.WriteCell(ctx, x, 7, x))
		}()
	}
	wg.Wait()

	buf, err := store.ReadFull(ctx)
	require.NoError(t, err)
	for x := range 16 {
		assert.Equal(t, uint8(x), canvas.Cell(buf, 7*16+x), "cell %d", x)
	}
}

func TestCanvasStore_ReadFullPadsShortValue(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "canvas:short", []byte{0x12}, 0).Err())

	geometry, err := canvas.NewGeometry(4, 2)
	require.NoError(t, err)
	store := NewCanvasStore(client, "canvas:short", geometry)

	buf, err := store.ReadFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0, 0, 0}, buf)
}

func TestCanvasStore_StorageErrorWhenClosed(t *testing.T) {
	store := newTestCanvasStore(t, 2, 2)
	require.NoError(t, store.rdb.Close())

	err := store.WriteCell(context.Background(), 0, 0, 1)
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = store.ReadFull(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
}
