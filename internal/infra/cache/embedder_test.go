package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls      int
	batchCalls int
	err        error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text))}, nil
}

func (e *countingEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (e *countingEmbedder) MaxBatchSize() int {
	return 7
}

func TestEmbedder_CachesQueryEmbeddings(t *testing.T) {
	next := &countingEmbedder{}
	e := NewEmbedder(next, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, "what is courage")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "what is courage")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, e.Len())

	_, err = e.Embed(ctx, "another query")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestEmbedder_ErrorsAreNotCached(t *testing.T) {
	next := &countingEmbedder{err: errors.New("unavailable")}
	e := NewEmbedder(next, time.Minute)
	ctx := context.Background()

	_, err := e.Embed(ctx, "q")
	require.Error(t, err)
	assert.Equal(t, 0, e.Len())

	next.err = nil
	_, err = e.Embed(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestEmbedder_BatchEmbedPassesThrough(t *testing.T) {
	next := &countingEmbedder{}
	e := NewEmbedder(next, 0)

	vectors, err := e.BatchEmbed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 1, next.batchCalls)
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 7, e.MaxBatchSize())

	e.Flush()
	assert.Equal(t, 0, e.Len())
}
