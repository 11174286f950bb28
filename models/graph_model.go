package models

// UserConnections is an ordered list of user summaries, e.g. the nodes along a
// shortest path from sender to receiver.
type UserConnections struct {
	Connections []UserSummary `json:"connections"`
}

// NumConnections returns how many users the list holds.
func (c UserConnections) NumConnections() int {
	return len(c.Connections)
}

// GraphEdge is a single FRIENDS_WITH edge between two user IDs. The two stored
// directed relationships collapse into one logical edge.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// EgoGraph is the subgraph within a bounded number of hops of a center user.
// Nodes are deduplicated by user ID, edges by unordered endpoint pair.
type EgoGraph struct {
	Nodes []UserSummary `json:"nodes"`
	Edges []GraphEdge   `json:"edges"`
}

// ConnectResult reports the outcome of a successful connection request.
type ConnectResult struct {
	Created   bool `json:"created"`
	Remaining int  `json:"remaining_connections"`
}
