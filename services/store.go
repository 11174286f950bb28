package services

import (
	"context"
	"net/http"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"connect3-server/models"
	"connect3-server/utils/errors"
)

// CypherRunner executes a single Cypher statement against the graph store and
// returns every result row. Read and Write map to the driver's access modes.
// Each call is one storage round trip; statements that must be atomic (user
// upsert, quota decrement) are written as one statement, never as a
// read-then-write pair.
type CypherRunner interface {
	Read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
	Write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
}

// Neo4jRunner runs Cypher over a shared Neo4j driver, opening a short-lived
// session per call. The driver is owned by main and safe for concurrent use;
// sessions are not, which is why one is opened per round trip.
type Neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ CypherRunner = (*Neo4jRunner)(nil)

func NewNeo4jRunner(driver neo4j.DriverWithContext, database string) *Neo4jRunner {
	return &Neo4jRunner{driver: driver, database: database}
}

func (r *Neo4jRunner) Read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return r.run(ctx, neo4j.AccessModeRead, cypher, params)
}

func (r *Neo4jRunner) Write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return r.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

func (r *Neo4jRunner) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, errors.Wrap(err, "STORAGE_UNAVAILABLE", "Graph storage round trip failed", http.StatusServiceUnavailable)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "STORAGE_UNAVAILABLE", "Graph storage round trip failed", http.StatusServiceUnavailable)
	}
	return records, nil
}

// Node property bags are converted to typed records here and nowhere else; the
// rest of the codebase only sees models.

func userFromNode(node neo4j.Node) models.User {
	return models.User{
		UserID:               stringProp(node, "user_id"),
		Name:                 stringProp(node, "name"),
		Phonenumber:          stringProp(node, "phonenumber"),
		PasswordHash:         stringProp(node, "hashed_password"),
		CreatedAt:            stringProp(node, "created_at"),
		RemainingConnections: int(intProp(node, "remaining_connections")),
		IsVerified:           boolProp(node, "is_verified"),
	}
}

func summaryFromNode(node neo4j.Node) models.UserSummary {
	return models.UserSummary{
		ID:          stringProp(node, "user_id"),
		Name:        stringProp(node, "name"),
		Phonenumber: stringProp(node, "phonenumber"),
	}
}

func nodeValue(record *neo4j.Record, key string) (neo4j.Node, bool) {
	value, ok := record.Get(key)
	if !ok {
		return neo4j.Node{}, false
	}
	node, ok := value.(neo4j.Node)
	return node, ok
}

func boolValue(record *neo4j.Record, key string) bool {
	value, ok := record.Get(key)
	if !ok {
		return false
	}
	b, _ := value.(bool)
	return b
}

func intValue(record *neo4j.Record, key string) (int64, bool) {
	value, ok := record.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := value.(int64)
	return n, ok
}

func stringProp(node neo4j.Node, key string) string {
	v, _ := node.Props[key].(string)
	return v
}

func intProp(node neo4j.Node, key string) int64 {
	v, _ := node.Props[key].(int64)
	return v
}

func boolProp(node neo4j.Node, key string) bool {
	v, _ := node.Props[key].(bool)
	return v
}
