package models

// User is a User node as stored in the graph. A user starts as an unverified
// placeholder (empty name/password) and becomes verified once both are set.
type User struct {
	UserID               string `json:"user_id"`
	Name                 string `json:"name"`
	Phonenumber          string `json:"phonenumber"`
	PasswordHash         string `json:"password_hash"`
	CreatedAt            string `json:"created_at"`
	RemainingConnections int    `json:"remaining_connections"`
	IsVerified           bool   `json:"is_verified"`
}

// UserSummary is the minimal projection of a user used in path and graph
// responses.
type UserSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phonenumber string `json:"phonenumber"`
}
