package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunks(n int, tag string) []core.IndexedChunk {
	chunks := make([]core.IndexedChunk, n)
	for i := range chunks {
		id := core.IDFromContent(fmt.Sprintf("%s-%d", tag, i))
		chunks[i] = core.IndexedChunk{
			ID:     core.ChunkID(id, 0),
			Text:   fmt.Sprintf("%s chunk %d", tag, i),
			Vector: []float32{float32(i), 1},
			Meta:   core.ChunkMetadata{ArticleID: id, Keyword: tag, Score: 50 + i},
		}
	}
	return chunks
}

func TestChunkStore_LoadEmpty(t *testing.T) {
	store, err := NewMemoryChunkStore()
	require.NoError(t, err)
	defer store.Close()

	chunks, err := store.LoadChunks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkStore_SaveLoadPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryChunkStore()
	require.NoError(t, err)
	defer store.Close()

	want := makeChunks(300, "ai")
	require.NoError(t, store.SaveChunks(ctx, want))

	got, err := store.LoadChunks(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Text, got[i].Text)
		assert.Equal(t, want[i].Vector, got[i].Vector)
		assert.Equal(t, want[i].Meta, got[i].Meta)
	}
}

func TestChunkStore_SaveReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryChunkStore()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveChunks(ctx, makeChunks(10, "first")))
	require.NoError(t, store.SaveChunks(ctx, makeChunks(3, "second")))

	got, err := store.LoadChunks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.Equal(t, "second", c.Meta.Keyword)
	}

	require.NoError(t, store.SaveChunks(ctx, nil))
	got, err = store.LoadChunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChunkStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenChunkStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveChunks(ctx, makeChunks(5, "ai")))
	require.NoError(t, store.Close())

	store, err = OpenChunkStore(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.LoadChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestChunkStore_Closed(t *testing.T) {
	store, err := NewMemoryChunkStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.LoadChunks(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, store.SaveChunks(context.Background(), nil), storage.ErrStorageClosed)
}
