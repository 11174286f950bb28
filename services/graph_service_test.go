package services

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"connect3-server/models"
	apperrors "connect3-server/utils/errors"
)

const (
	phoneA = "+14155550001"
	phoneB = "+14155550002"
)

func newTestGraphService(store *fakeStore) *GraphService {
	logger := zap.NewNop()
	return NewGraphService(store, NewUserService(store, logger), logger)
}

func TestSelfReferenceRejectedEverywhere(t *testing.T) {
	store := &fakeStore{}
	svc := newTestGraphService(store)
	ctx := context.Background()

	_, err := svc.Direct(ctx, phoneA, phoneA)
	requireKind(t, err, apperrors.ErrSelfReference)

	_, err = svc.Reachable(ctx, phoneA, phoneA)
	requireKind(t, err, apperrors.ErrSelfReference)

	_, err = svc.ShortestPath(ctx, phoneA, phoneA)
	requireKind(t, err, apperrors.ErrSelfReference)

	_, err = svc.Connect(ctx, phoneA, phoneA)
	requireKind(t, err, apperrors.ErrSelfReference)

	assert.Empty(t, store.calls, "self-referential input must never reach storage")
}

func TestDirect(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"connected"}, true))
	store.reply(row([]string{"connected"}, false))
	svc := newTestGraphService(store)

	connected, err := svc.Direct(context.Background(), phoneA, phoneB)
	require.NoError(t, err)
	assert.True(t, connected)

	connected, err = svc.Direct(context.Background(), phoneA, phoneB)
	require.NoError(t, err)
	assert.False(t, connected)

	assert.Equal(t, "read", store.calls[0].mode)
}

func TestReachable_UsesExistenceProbe(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"connected"}, true))
	svc := newTestGraphService(store)

	connected, err := svc.Reachable(context.Background(), phoneA, phoneB)
	require.NoError(t, err)
	assert.True(t, connected)

	cypher := store.calls[0].cypher
	assert.Contains(t, cypher, "shortestPath")
	assert.Contains(t, cypher, "p IS NOT NULL", "reachability must probe existence, not materialize the path")
}

func TestCreateEdge_IdempotentMergeBothDirections(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"sender_id", "receiver_id"}, "u1", "u2"))
	store.reply(row([]string{"sender_id", "receiver_id"}, "u1", "u2"))
	svc := newTestGraphService(store)
	ctx := context.Background()

	require.NoError(t, svc.createEdge(ctx, phoneA, phoneB))
	require.NoError(t, svc.createEdge(ctx, phoneA, phoneB), "re-creating an existing edge must not error")

	for _, call := range store.calls {
		assert.Equal(t, "write", call.mode)
		assert.Equal(t, 2, strings.Count(call.cypher, "MERGE"),
			"both directions must be merged together")
	}
}

func TestConnect_Success(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"u"}, userNode("u1", "Ada", phoneA, 3, true)))
	store.reply(row([]string{"u"}, userNode("u2", "Ben", phoneB, 3, true)))
	store.reply(row([]string{"connected"}, false))
	store.reply(row([]string{"sender_id", "receiver_id"}, "u1", "u2"))
	store.reply(row([]string{"before", "remaining"}, int64(3), int64(2)))
	svc := newTestGraphService(store)

	result, err := svc.Connect(context.Background(), phoneA, phoneB)
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, 2, result.Remaining)

	require.Len(t, store.calls, 5)
	modes := []string{}
	for _, call := range store.calls {
		modes = append(modes, call.mode)
	}
	assert.Equal(t, []string{"read", "read", "read", "write", "write"}, modes,
		"checks are pure reads; only edge creation and decrement mutate")
}

func TestConnect_QuotaExhaustedBeforeAnyMutation(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"u"}, userNode("u1", "Ada", phoneA, 0, true)))
	svc := newTestGraphService(store)

	_, err := svc.Connect(context.Background(), phoneA, phoneB)
	requireKind(t, err, apperrors.ErrQuotaExhausted)

	require.Len(t, store.calls, 1)
	assert.Equal(t, "read", store.calls[0].mode)
}

func TestConnect_ReceiverNotFound(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"u"}, userNode("u1", "Ada", phoneA, 3, true)))
	store.reply()
	svc := newTestGraphService(store)

	_, err := svc.Connect(context.Background(), phoneA, phoneB)
	requireKind(t, err, apperrors.ErrNotFound)

	for _, call := range store.calls {
		assert.Equal(t, "read", call.mode, "a missing receiver must not cause a mutation")
	}
}

func TestConnect_AlreadyConnectedRejected(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"u"}, userNode("u1", "Ada", phoneA, 3, true)))
	store.reply(row([]string{"u"}, userNode("u2", "Ben", phoneB, 3, true)))
	store.reply(row([]string{"connected"}, true))
	svc := newTestGraphService(store)

	_, err := svc.Connect(context.Background(), phoneA, phoneB)
	requireKind(t, err, apperrors.ErrAlreadyConnected)

	require.Len(t, store.calls, 3)
	for _, call := range store.calls {
		assert.Equal(t, "read", call.mode, "a duplicate connect must not decrement the quota")
	}
}

func TestConnect_DecrementFailureSurfacesAfterEdgeCreation(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"u"}, userNode("u1", "Ada", phoneA, 3, true)))
	store.reply(row([]string{"u"}, userNode("u2", "Ben", phoneB, 3, true)))
	store.reply(row([]string{"connected"}, false))
	store.reply(row([]string{"sender_id", "receiver_id"}, "u1", "u2"))
	store.failWith(apperrors.ErrStorageUnavailable)
	svc := newTestGraphService(store)

	_, err := svc.Connect(context.Background(), phoneA, phoneB)
	requireKind(t, err, apperrors.ErrStorageUnavailable)
	require.Len(t, store.calls, 5, "the edge merge happens before the failing decrement")
}

func TestConnections_ListsDirectNeighbors(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"connections"}, []any{
		userNode("b", "Ben", "+14155550003", 3, true),
		userNode("c", "Cat", "+14155550004", 3, true),
	}))
	svc := newTestGraphService(store)

	connections, err := svc.Connections(context.Background(), phoneA)
	require.NoError(t, err)

	require.Equal(t, 2, connections.NumConnections())
	ids := []string{}
	for _, summary := range connections.Connections {
		ids = append(ids, summary.ID)
	}
	assert.Equal(t, []string{"b", "c"}, ids)
	assert.Equal(t, "read", store.calls[0].mode)
}

func TestConnections_NoNeighborsIsEmptyList(t *testing.T) {
	store := &fakeStore{}
	store.reply(row([]string{"connections"}, []any{}))
	svc := newTestGraphService(store)

	connections, err := svc.Connections(context.Background(), phoneA)
	require.NoError(t, err)
	assert.Equal(t, 0, connections.NumConnections())
}

func TestConnections_UserNotFound(t *testing.T) {
	store := &fakeStore{}
	store.reply()
	svc := newTestGraphService(store)

	_, err := svc.Connections(context.Background(), phoneA)
	requireKind(t, err, apperrors.ErrNotFound)
}

func TestShortestPath_ReturnsNodesInPathOrder(t *testing.T) {
	nodes := []any{
		userNode("a", "Ada", phoneA, 3, true),
		userNode("b", "Ben", "+14155550003", 3, true),
		userNode("c", "Cat", "+14155550004", 3, true),
		userNode("d", "Dan", phoneB, 3, true),
	}
	store := &fakeStore{}
	store.reply(row([]string{"path_nodes"}, nodes))
	svc := newTestGraphService(store)

	path, err := svc.ShortestPath(context.Background(), phoneA, phoneB)
	require.NoError(t, err)

	require.Equal(t, 4, path.NumConnections())
	ids := []string{}
	for _, summary := range path.Connections {
		ids = append(ids, summary.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids, "endpoints included, intermediate users in path order")
}

func TestShortestPath_NoPathFound(t *testing.T) {
	store := &fakeStore{}
	store.reply()
	svc := newTestGraphService(store)

	_, err := svc.ShortestPath(context.Background(), phoneA, phoneB)
	requireKind(t, err, apperrors.ErrNoPathFound)
}

func TestEgoNetwork_BoundedAndDeduplicated(t *testing.T) {
	// Chain A-B-C-D-E truncated at two hops: only A, B, C and the two edges
	// between them are in range. The reverse-direction relationship B->A is
	// included to check unordered-pair dedup.
	a := userNode("a", "Ada", phoneA, 3, true)
	b := userNode("b", "Ben", "+14155550003", 3, true)
	c := userNode("c", "Cat", "+14155550004", 3, true)

	store := &fakeStore{}
	store.reply(
		row([]string{"center", "path"}, a, neo4j.Path{
			Nodes:         []neo4j.Node{a, b},
			Relationships: []neo4j.Relationship{friendsEdge(a, b)},
		}),
		row([]string{"center", "path"}, a, neo4j.Path{
			Nodes:         []neo4j.Node{a, b},
			Relationships: []neo4j.Relationship{friendsEdge(b, a)},
		}),
		row([]string{"center", "path"}, a, neo4j.Path{
			Nodes:         []neo4j.Node{a, b, c},
			Relationships: []neo4j.Relationship{friendsEdge(a, b), friendsEdge(b, c)},
		}),
	)
	svc := newTestGraphService(store)

	graph, err := svc.EgoNetwork(context.Background(), phoneA, 2)
	require.NoError(t, err)

	ids := []string{}
	for _, node := range graph.Nodes {
		ids = append(ids, node.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, []models.GraphEdge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
	}, graph.Edges, "each logical edge appears once regardless of stored direction")

	assert.Contains(t, store.calls[0].cypher, "*1..2", "hop bound must appear in the traversal pattern")
}

func TestEgoNetwork_IsolatedCenterIncludesItself(t *testing.T) {
	a := userNode("a", "Ada", phoneA, 3, true)
	store := &fakeStore{}
	store.reply(row([]string{"center", "path"}, a, nil))
	svc := newTestGraphService(store)

	graph, err := svc.EgoNetwork(context.Background(), phoneA, 2)
	require.NoError(t, err)

	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "a", graph.Nodes[0].ID)
	assert.Empty(t, graph.Edges)
}

func TestEgoNetwork_CenterNotFound(t *testing.T) {
	store := &fakeStore{}
	store.reply()
	svc := newTestGraphService(store)

	_, err := svc.EgoNetwork(context.Background(), phoneA, 2)
	requireKind(t, err, apperrors.ErrNotFound)
}

func TestEgoNetwork_NonPositiveHopsRejected(t *testing.T) {
	store := &fakeStore{}
	svc := newTestGraphService(store)

	for _, hops := range []int{0, -1} {
		_, err := svc.EgoNetwork(context.Background(), phoneA, hops)
		requireKind(t, err, apperrors.ErrInvalidInput)
	}
	assert.Empty(t, store.calls)
}
