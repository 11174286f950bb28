package services

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"connect3-server/models"
	"connect3-server/utils/errors"
)

// GraphService holds the query and mutation procedures over the FRIENDS_WITH
// edge relation. It keeps no state of its own; all durable state lives in the
// graph store and every call may run concurrently with others.
type GraphService struct {
	store  CypherRunner
	users  *UserService
	logger *zap.Logger
}

func NewGraphService(store CypherRunner, users *UserService, logger *zap.Logger) *GraphService {
	return &GraphService{store: store, users: users, logger: logger}
}

const directConnectionQuery = `
MATCH (u1:User {phonenumber: $phone1}), (u2:User {phonenumber: $phone2})
OPTIONAL MATCH (u1)-[r:FRIENDS_WITH]->(u2)
RETURN r IS NOT NULL AS connected`

// reachableQuery probes for path existence only; it never materializes the
// path, which keeps the transitive check cheap.
const reachableQuery = `
MATCH (u1:User {phonenumber: $phone1}), (u2:User {phonenumber: $phone2})
OPTIONAL MATCH p = shortestPath((u1)-[:FRIENDS_WITH*]-(u2))
RETURN p IS NOT NULL AS connected`

// createEdgeQuery creates both directions together so traversal works natively
// either way. MERGE keeps the edge idempotent: re-creating an existing edge
// neither duplicates it nor errors.
const createEdgeQuery = `
MATCH (u1:User {phonenumber: $phone1}), (u2:User {phonenumber: $phone2})
MERGE (u1)-[:FRIENDS_WITH]->(u2)
MERGE (u2)-[:FRIENDS_WITH]->(u1)
RETURN u1.user_id AS sender_id, u2.user_id AS receiver_id`

// connectionsQuery matches the user first so a missing user is
// distinguishable from a user with no neighbors; collect drops the null the
// OPTIONAL MATCH yields when there are none.
const connectionsQuery = `
MATCH (u:User {phonenumber: $phonenumber})
OPTIONAL MATCH (u)-[:FRIENDS_WITH]->(c:User)
RETURN collect(c) AS connections`

const shortestPathQuery = `
MATCH (u1:User {phonenumber: $phone1}), (u2:User {phonenumber: $phone2})
MATCH path = shortestPath((u1)-[:FRIENDS_WITH*]-(u2))
RETURN nodes(path) AS path_nodes`

// egoNetworkQueryTemplate takes the hop bound via Sprintf because Cypher
// cannot parameterize variable-length bounds. The bound is validated as a
// positive integer before formatting.
const egoNetworkQueryTemplate = `
MATCH (center:User {phonenumber: $phonenumber})
OPTIONAL MATCH path = (center)-[:FRIENDS_WITH*1..%d]-(:User)
RETURN center, path`

// Direct reports whether a FRIENDS_WITH edge exists from a to b.
func (s *GraphService) Direct(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return false, errors.ErrSelfReference
	}
	records, err := s.store.Read(ctx, directConnectionQuery, map[string]any{"phone1": a, "phone2": b})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	return boolValue(records[0], "connected"), nil
}

// Reachable reports whether any chain of FRIENDS_WITH edges connects a and b.
func (s *GraphService) Reachable(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return false, errors.ErrSelfReference
	}
	records, err := s.store.Read(ctx, reachableQuery, map[string]any{"phone1": a, "phone2": b})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	return boolValue(records[0], "connected"), nil
}

// Connect creates a friendship edge from sender to receiver and spends one of
// the sender's connection slots. A directly connected pair is rejected
// outright; a merely transitive path between the two does not block a new
// direct edge. If the decrement fails after the edge is merged, the edge
// stays: the error surfaces and a retry fails fast on the direct check
// instead of double-connecting.
func (s *GraphService) Connect(ctx context.Context, sender, receiver string) (*models.ConnectResult, error) {
	if sender == receiver {
		return nil, errors.ErrSelfReference
	}

	remaining, err := s.users.Remaining(ctx, sender)
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		return nil, errors.ErrQuotaExhausted
	}

	receiverUser, err := s.users.Find(ctx, receiver)
	if err != nil {
		return nil, err
	}
	if receiverUser == nil {
		return nil, errors.ErrNotFound
	}

	connected, err := s.Direct(ctx, sender, receiver)
	if err != nil {
		return nil, err
	}
	if connected {
		return nil, errors.ErrAlreadyConnected
	}

	if err := s.createEdge(ctx, sender, receiver); err != nil {
		return nil, err
	}
	newRemaining, err := s.users.Decrement(ctx, sender)
	if err != nil {
		s.logger.Error("edge created but quota decrement failed",
			zap.String("sender", sender),
			zap.String("receiver", receiver),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("connection created",
		zap.String("sender", sender),
		zap.String("receiver", receiver),
		zap.Int("remaining", newRemaining))
	return &models.ConnectResult{Created: true, Remaining: newRemaining}, nil
}

func (s *GraphService) createEdge(ctx context.Context, a, b string) error {
	records, err := s.store.Write(ctx, createEdgeQuery, map[string]any{"phone1": a, "phone2": b})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Connections lists the user's direct neighbors. A user with no neighbors
// gets an empty list; a missing user is NOT_FOUND.
func (s *GraphService) Connections(ctx context.Context, phonenumber string) (models.UserConnections, error) {
	records, err := s.store.Read(ctx, connectionsQuery, map[string]any{"phonenumber": phonenumber})
	if err != nil {
		return models.UserConnections{}, err
	}
	if len(records) == 0 {
		return models.UserConnections{}, errors.ErrNotFound
	}

	value, ok := records[0].Get("connections")
	if !ok {
		return models.UserConnections{}, errors.ErrInternal
	}
	rawNodes, ok := value.([]any)
	if !ok {
		return models.UserConnections{}, errors.ErrInternal
	}

	connections := make([]models.UserSummary, 0, len(rawNodes))
	for _, raw := range rawNodes {
		node, ok := raw.(neo4j.Node)
		if !ok {
			return models.UserConnections{}, errors.ErrInternal
		}
		connections = append(connections, summaryFromNode(node))
	}
	return models.UserConnections{Connections: connections}, nil
}

// ShortestPath returns every user on a minimum-hop chain between a and b, in
// path order including both endpoints. When several minimal paths exist any
// one of them is returned.
func (s *GraphService) ShortestPath(ctx context.Context, a, b string) (models.UserConnections, error) {
	if a == b {
		return models.UserConnections{}, errors.ErrSelfReference
	}
	records, err := s.store.Read(ctx, shortestPathQuery, map[string]any{"phone1": a, "phone2": b})
	if err != nil {
		return models.UserConnections{}, err
	}
	if len(records) == 0 {
		return models.UserConnections{}, errors.ErrNoPathFound
	}

	value, ok := records[0].Get("path_nodes")
	if !ok {
		return models.UserConnections{}, errors.ErrInternal
	}
	rawNodes, ok := value.([]any)
	if !ok {
		return models.UserConnections{}, errors.ErrInternal
	}

	connections := make([]models.UserSummary, 0, len(rawNodes))
	for _, raw := range rawNodes {
		node, ok := raw.(neo4j.Node)
		if !ok {
			return models.UserConnections{}, errors.ErrInternal
		}
		connections = append(connections, summaryFromNode(node))
	}
	return models.UserConnections{Connections: connections}, nil
}

// EgoNetwork returns every user and edge within maxHops of the center user,
// deduplicated. The center is always part of the node set, even with no
// neighbors in range. Traversal cost grows combinatorially with the hop
// bound; callers should stay at or below 6.
func (s *GraphService) EgoNetwork(ctx context.Context, center string, maxHops int) (*models.EgoGraph, error) {
	if maxHops < 1 {
		return nil, errors.ErrInvalidInput
	}

	query := fmt.Sprintf(egoNetworkQueryTemplate, maxHops)
	records, err := s.store.Read(ctx, query, map[string]any{"phonenumber": center})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.ErrNotFound
	}

	graph := &models.EgoGraph{Nodes: []models.UserSummary{}, Edges: []models.GraphEdge{}}
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)
	// Relationships reference nodes by element ID, not by user_id; the path's
	// own node list provides the translation.
	elementToUserID := make(map[string]string)

	addNode := func(node neo4j.Node) {
		id := stringProp(node, "user_id")
		elementToUserID[node.ElementId] = id
		if seenNodes[id] {
			return
		}
		seenNodes[id] = true
		graph.Nodes = append(graph.Nodes, summaryFromNode(node))
	}

	if centerNode, ok := nodeValue(records[0], "center"); ok {
		addNode(centerNode)
	}

	for _, record := range records {
		value, ok := record.Get("path")
		if !ok || value == nil {
			continue
		}
		path, ok := value.(neo4j.Path)
		if !ok {
			continue
		}
		for _, node := range path.Nodes {
			addNode(node)
		}
		for _, rel := range path.Relationships {
			source := elementToUserID[rel.StartElementId]
			target := elementToUserID[rel.EndElementId]
			key := edgeKey(source, target)
			if seenEdges[key] {
				continue
			}
			seenEdges[key] = true
			graph.Edges = append(graph.Edges, models.GraphEdge{Source: source, Target: target})
		}
	}
	return graph, nil
}

// edgeKey collapses the two stored directions of an edge into one key.
func edgeKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
