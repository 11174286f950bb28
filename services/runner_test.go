package services

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// fakeStore scripts storage round trips: replies are consumed in order and
// every call is recorded so tests can assert on statement shape, parameters
// and read/write mode.
type fakeStore struct {
	calls   []storeCall
	replies []storeReply
}

type storeCall struct {
	mode   string
	cypher string
	params map[string]any
}

type storeReply struct {
	records []*neo4j.Record
	err     error
}

var _ CypherRunner = (*fakeStore)(nil)

func (f *fakeStore) Read(_ context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return f.next("read", cypher, params)
}

func (f *fakeStore) Write(_ context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return f.next("write", cypher, params)
}

func (f *fakeStore) next(mode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	f.calls = append(f.calls, storeCall{mode: mode, cypher: cypher, params: params})
	if len(f.replies) == 0 {
		return nil, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply.records, reply.err
}

func (f *fakeStore) reply(records ...*neo4j.Record) {
	f.replies = append(f.replies, storeReply{records: records})
}

func (f *fakeStore) failWith(err error) {
	f.replies = append(f.replies, storeReply{err: err})
}

func row(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func userNode(id, name, phonenumber string, remaining int64, verified bool) neo4j.Node {
	return neo4j.Node{
		ElementId: "element-" + id,
		Labels:    []string{"User"},
		Props: map[string]any{
			"user_id":               id,
			"name":                  name,
			"phonenumber":           phonenumber,
			"hashed_password":       "hash-" + id,
			"created_at":            "2026-01-02T15:04:05Z",
			"remaining_connections": remaining,
			"is_verified":           verified,
		},
	}
}

func friendsEdge(from, to neo4j.Node) neo4j.Relationship {
	return neo4j.Relationship{
		Type:           "FRIENDS_WITH",
		StartElementId: from.ElementId,
		EndElementId:   to.ElementId,
	}
}
