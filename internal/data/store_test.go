package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndAll(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id1, err := s.Append(ctx, &ChatRecord{
		UserQuery:         "price of wheat in Punjab",
		AssistantResponse: "Wheat is around ₹2150/Quintal in Ludhiana.",
		ToolUsed:          "market_price",
		ContextData:       map[string]string{"tool": "market_price", "crop": "wheat", "state": "Punjab"},
	})
	require.NoError(t, err)

	id2, err := s.Append(ctx, &ChatRecord{
		UserQuery:         "weather in Dehradun",
		AssistantResponse: "18°C with scattered clouds.",
		ToolUsed:          "weather",
	})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	records, err := s.All(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, "weather in Dehradun", records[0].UserQuery)
	assert.Equal(t, "price of wheat in Punjab", records[1].UserQuery)
	assert.Equal(t, "wheat", records[1].ContextData["crop"])
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestAllLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, &ChatRecord{UserQuery: "q", AssistantResponse: "a"})
		require.NoError(t, err)
	}

	records, err := s.All(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSearchCaseInsensitive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, &ChatRecord{UserQuery: "Price of Wheat in Punjab", AssistantResponse: "a"})
	require.NoError(t, err)
	_, err = s.Append(ctx, &ChatRecord{UserQuery: "weather in Delhi", AssistantResponse: "b"})
	require.NoError(t, err)

	records, err := s.Search(ctx, "WHEAT", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Price of Wheat in Punjab", records[0].UserQuery)

	records, err = s.Search(ctx, "nothing matches this", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClearAndCount(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, &ChatRecord{UserQuery: "q", AssistantResponse: "a"})
		require.NoError(t, err)
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	removed, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigrateIdempotent(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Health())
}

func TestEmptyToolAndContextRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, &ChatRecord{UserQuery: "hello", AssistantResponse: "Hi!"})
	require.NoError(t, err)

	records, err := s.All(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].ToolUsed)
	assert.Nil(t, records[0].ContextData)
}
