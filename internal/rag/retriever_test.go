package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-rag/internal/models"
)

func TestRetrieveAppliesChapterFilter(t *testing.T) {
	store := &stubStore{
		metas: []map[string]string{meta("TIRE PRESSURE MONITOR", "40"), meta("PARKING", "12")},
		matches: map[string][]models.Match{
			"TIRE PRESSURE MONITOR": {
				{ID: "1", Content: "Check pressure when cold.", Metadata: meta("TIRE PRESSURE MONITOR", "41"), Distance: 0},
				{ID: "2", Content: "Reset the monitor.", Metadata: meta("TIRE PRESSURE MONITOR", "42"), Distance: 1},
			},
		},
	}
	r := NewRetriever(store.opener(), 5)

	got, err := r.Retrieve(context.Background(), "How do I check tire pressure?")
	require.NoError(t, err)

	require.NotNil(t, got.Chapter)
	assert.Equal(t, "TIRE PRESSURE MONITOR", *got.Chapter)
	require.Len(t, store.calls, 1)
	assert.Equal(t, 5, store.calls[0].topK)
	assert.Equal(t, map[string]string{models.MetaChapter: "TIRE PRESSURE MONITOR"}, store.calls[0].where)

	assert.Equal(t, []models.RetrievalResult{
		{Text: "Check pressure when cold.", Chapter: "TIRE PRESSURE MONITOR", Page: 41, Score: 1},
		{Text: "Reset the monitor.", Chapter: "TIRE PRESSURE MONITOR", Page: 42, Score: 0.5},
	}, got.Results)
	assert.Equal(t, 1, store.closed)
}

func TestRetrieveWithoutChapter(t *testing.T) {
	store := &stubStore{
		metas: []map[string]string{meta("PARKING", "12")},
		matches: map[string][]models.Match{
			"": {{ID: "1", Content: "Open the sunroof.", Metadata: meta("PARKING", "3"), Distance: 3}},
		},
	}
	got, err := NewRetriever(store.opener(), 3).Retrieve(context.Background(), "How do I open the sunroof?")
	require.NoError(t, err)

	assert.Nil(t, got.Chapter)
	assert.Nil(t, store.calls[0].where)
	require.Len(t, got.Results, 1)
	assert.Equal(t, 0.25, got.Results[0].Score)
}

func TestRetrieveNoFallbackByDefault(t *testing.T) {
	store := &stubStore{
		metas: []map[string]string{meta("PARKING", "12")},
		matches: map[string][]models.Match{
			"": {{ID: "1", Content: "x", Metadata: meta("LIGHTS", "3")}},
		},
	}
	got, err := NewRetriever(store.opener(), 3).Retrieve(context.Background(), "parking lights")
	require.NoError(t, err)

	assert.Empty(t, got.Results)
	assert.NotNil(t, got.Results)
	require.NotNil(t, got.Chapter)
	assert.Equal(t, "PARKING", *got.Chapter)
	assert.Len(t, store.calls, 1)
}

func TestRetrieveFallbackWithoutFilter(t *testing.T) {
	store := &stubStore{
		metas: []map[string]string{meta("PARKING", "12")},
		matches: map[string][]models.Match{
			"": {{ID: "1", Content: "Switch on the lights.", Metadata: meta("LIGHTS", "3"), Distance: 0}},
		},
	}
	r := NewRetriever(store.opener(), 3, WithFallbackWithoutFilter(true))
	got, err := r.Retrieve(context.Background(), "parking lights")
	require.NoError(t, err)

	assert.Nil(t, got.Chapter)
	require.Len(t, store.calls, 2)
	assert.Nil(t, store.calls[1].where)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "LIGHTS", got.Results[0].Chapter)
}

func TestRetrieveCustomScore(t *testing.T) {
	store := &stubStore{
		matches: map[string][]models.Match{"": {{Content: "x", Metadata: meta("A", "1"), Distance: 0.2}}},
	}
	got, err := NewRetriever(store.opener(), 1, WithScoreFunc(CosineDistance)).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got.Results[0].Score, 1e-9)
}

func TestRetrieveErrors(t *testing.T) {
	boom := errors.New("store unavailable")

	_, err := NewRetriever(func(context.Context) (models.VectorStore, error) { return nil, boom }, 3).
		Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, boom)

	store := &stubStore{listErr: boom}
	_, err = NewRetriever(store.opener(), 3).Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.closed)

	store = &stubStore{queryErr: boom}
	_, err = NewRetriever(store.opener(), 3).Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}
