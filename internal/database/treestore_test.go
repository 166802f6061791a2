package database

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *TreeStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewTreeStore(&Redis{client}, logger, DefaultIndexRules()...)
}

func TestGetReturnsNilForAbsentNode(t *testing.T) {
	store := newTestStore(t)

	node, err := store.Get(context.Background(), "visits/CH0001/missing")
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Set(ctx, "visits/CH0001/v1", Node{
		"petName": "Firulais",
		"date":    "2026-08-10T09:30:00",
	})
	require.NoError(t, err)

	node, err := store.Get(ctx, "visits/CH0001/v1")
	require.NoError(t, err)
	assert.Equal(t, "Firulais", node["petName"])
	assert.Equal(t, "2026-08-10T09:30:00", node["date"])
}

func TestUpdateWritesAndDeletesFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "visits/CH0001/v1", Node{
		"petName":     "Luna",
		"date":        "2026-08-10T09:30:00",
		"observation": "muerde",
	}))

	err := store.Update(ctx, "visits/CH0001/v1", map[string]*string{
		"petName":     ptr("Luna de Oro"),
		"observation": nil,
	})
	require.NoError(t, err)

	node, err := store.Get(ctx, "visits/CH0001/v1")
	require.NoError(t, err)
	assert.Equal(t, "Luna de Oro", node["petName"])
	_, present := node["observation"]
	assert.False(t, present)
}

func TestQueryRangeBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dates := map[string]string{
		"a": "2026-08-09T18:00:00",
		"b": "2026-08-10T09:00:00",
		"c": "2026-08-10T16:00:00",
		"d": "2026-08-11T00:00:00",
	}
	for key, date := range dates {
		require.NoError(t, store.Set(ctx, "visits/CH0001/"+key, Node{"date": date, "petName": key}))
	}

	// inferior inclusivo, superior exclusivo
	children, err := store.QueryRange(ctx, "visits/CH0001", "date", "2026-08-10T00:00:00", "2026-08-11T00:00:00")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "b", children[0].Key)
	assert.Equal(t, "c", children[1].Key)
}

func TestQueryRangeWithoutBoundsReturnsAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "visits/CH0001/a", Node{"date": "2026-08-09T10:00:00"}))
	require.NoError(t, store.Set(ctx, "visits/CH0001/b", Node{"date": "2026-08-10T10:00:00"}))

	children, err := store.QueryRange(ctx, "visits/CH0001", "date", "", "")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestQueryRangeIsolatesTenants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "visits/CH0001/a", Node{"date": "2026-08-10T10:00:00"}))
	require.NoError(t, store.Set(ctx, "visits/CH0002/b", Node{"date": "2026-08-10T11:00:00"}))

	children, err := store.QueryRange(ctx, "visits/CH0001", "date", "", "")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "a", children[0].Key)
}

func TestQueryEqualMatchesExactValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "users/u1", Node{"email": "ana@example.com"}))
	require.NoError(t, store.Set(ctx, "users/u2", Node{"email": "ana@example.com.bo"}))

	children, err := store.QueryEqual(ctx, "users", "email", "ana@example.com")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "u1", children[0].Key)
}

func TestUpdateIndexedFieldMovesIndexEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "visits/CH0001/v1", Node{"date": "2026-08-10T09:00:00"}))

	err := store.Update(ctx, "visits/CH0001/v1", map[string]*string{
		"date": ptr("2026-08-20T09:00:00"),
	})
	require.NoError(t, err)

	old, err := store.QueryRange(ctx, "visits/CH0001", "date", "2026-08-10T00:00:00", "2026-08-11T00:00:00")
	require.NoError(t, err)
	assert.Empty(t, old)

	moved, err := store.QueryRange(ctx, "visits/CH0001", "date", "2026-08-20T00:00:00", "2026-08-21T00:00:00")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, "v1", moved[0].Key)
}

func TestDeleteRemovesNodeAndIndexEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "visits/CH0001/v1", Node{"date": "2026-08-10T09:00:00"}))
	require.NoError(t, store.Delete(ctx, "visits/CH0001/v1"))

	node, err := store.Get(ctx, "visits/CH0001/v1")
	require.NoError(t, err)
	assert.Nil(t, node)

	children, err := store.QueryRange(ctx, "visits/CH0001", "date", "", "")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestMultiSetWritesAllNodes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.MultiSet(ctx, map[string]Node{
		"visits/CH0001/v1": {"date": "2026-08-10T09:00:00", "petName": "Rocky"},
		"visits/CH0001/v2": {"date": "2026-08-10T10:00:00", "petName": "Toby"},
	})
	require.NoError(t, err)

	children, err := store.QueryRange(ctx, "visits/CH0001", "date", "", "")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestSetWithEmptyNodeDeletes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "visits/CH0001/v1", Node{"date": "2026-08-10T09:00:00"}))
	require.NoError(t, store.Set(ctx, "visits/CH0001/v1", nil))

	node, err := store.Get(ctx, "visits/CH0001/v1")
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestRuleForMatchesPatterns(t *testing.T) {
	store := newTestStore(t)

	assert.NotNil(t, store.ruleFor("visits/CH0001"))
	assert.NotNil(t, store.ruleFor("bills/CH0001"))
	assert.NotNil(t, store.ruleFor("bills/CH0001/u1"))
	assert.NotNil(t, store.ruleFor("users"))
	assert.Nil(t, store.ruleFor("visits"))
	assert.Nil(t, store.ruleFor("visits/CH0001/v1/payments"))
}
