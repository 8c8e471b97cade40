package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/hybrid-rag/internal/core/corpus"
)

func record(source, text string, vec ...float32) corpus.Record {
	return corpus.Record{
		Source:    source,
		Text:      text,
		Metadata:  map[string]any{"source": source},
		Embedding: vec,
	}
}

func TestVectorStore_SearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore("test")

	require.NoError(t, store.Insert(ctx, []corpus.Record{
		record("a", "x axis", 1, 0),
		record("a", "diagonal", 1, 1),
		record("b", "y axis", 0, 1),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "x axis", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "diagonal", results[1].Text)
}

func TestVectorStore_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore("test")

	require.NoError(t, store.Insert(ctx, []corpus.Record{
		record("a", "first", 1, 0),
		record("a", "second", 1, 0),
		record("a", "third", 1, 0),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, "first", results[0].Text)
	assert.Equal(t, "second", results[1].Text)
	assert.Equal(t, "third", results[2].Text)
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore("test")

	require.NoError(t, store.Insert(ctx, []corpus.Record{record("a", "x", 1, 0)}))
	assert.Error(t, store.Insert(ctx, []corpus.Record{record("a", "y", 1, 0, 0)}))
}

func TestVectorStore_DeleteBySource(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore("test")

	require.NoError(t, store.Insert(ctx, []corpus.Record{
		record("a", "a1", 1, 0),
		record("b", "b1", 0, 1),
		record("a", "a2", 1, 1),
	}))

	has, err := store.HasSource(ctx, "a")
	require.NoError(t, err)
	assert.True(t, has)

	deleted, err := store.DeleteBySource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	has, err = store.HasSource(ctx, "a")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.DeleteAll(ctx))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
