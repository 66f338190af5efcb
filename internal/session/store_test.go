package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"core/internal/model"
)

func TestMemoryStoreUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	category := "shoes"
	maxPrice := 50.0
	require.NoError(t, store.Update(ctx, "s1", model.ContextUpdate{
		Category: &category,
		MaxPrice: &maxPrice,
	}))

	// A later update touching other fields must not erase earlier ones.
	gender := model.GenderFemale
	require.NoError(t, store.Update(ctx, "s1", model.ContextUpdate{
		Gender: &gender,
	}))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "shoes", got.LastCategory)
	assert.Equal(t, model.GenderFemale, got.Gender)
	require.NotNil(t, got.MaxPrice)
	assert.Equal(t, 50.0, *got.MaxPrice)
}

func TestMemoryStoreShownASINsReplace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	require.NoError(t, store.Update(ctx, "s1", model.ContextUpdate{
		ShownASINs: []string{"A1", "A2"},
	}))
	require.NoError(t, store.Update(ctx, "s1", model.ContextUpdate{
		ShownASINs: []string{"A3"},
	}))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A3"}, got.ShownASINs)

	// A nil slice leaves the stored list alone.
	category := "bags"
	require.NoError(t, store.Update(ctx, "s1", model.ContextUpdate{Category: &category}))
	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A3"}, got.ShownASINs)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Millisecond)

	category := "jewelry"
	require.NoError(t, store.Update(ctx, "s1", model.ContextUpdate{Category: &category}))
	time.Sleep(30 * time.Millisecond)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	category := "shoes"
	require.NoError(t, store.Update(ctx, "s1", model.ContextUpdate{Category: &category}))
	require.NoError(t, store.Clear(ctx, "s1"))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryTranscriptCap(t *testing.T) {
	ctx := context.Background()
	ts := NewMemoryTranscript(3)

	for _, content := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, ts.Append(ctx, "s1", model.ChatMessage{Role: "user", Content: content}))
	}

	msgs, err := ts.Recent(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "e", msgs[2].Content)

	latest, err := ts.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "d", latest[0].Content)
}
