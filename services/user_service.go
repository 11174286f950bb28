package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"connect3-server/models"
	"connect3-server/utils/errors"
)

// UserService owns User records keyed by their E.164 phone number. Upsert is
// the only mutator of a user's identity data; the quota counter is mutated
// only through Decrement.
type UserService struct {
	store  CypherRunner
	logger *zap.Logger
}

func NewUserService(store CypherRunner, logger *zap.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// upsertUserQuery creates or upgrades a user in one statement so that two
// concurrent upserts for the same phone number cannot both observe "absent"
// and both create. The just_created marker distinguishes the MERGE outcome,
// and the FOREACH guard applies the unverified-to-verified upgrade only when
// the incoming data is complete.
const upsertUserQuery = `
MERGE (u:User {phonenumber: $phonenumber})
ON CREATE SET
    u.user_id = $user_id,
    u.name = $name,
    u.hashed_password = $hashed_password,
    u.created_at = $created_at,
    u.remaining_connections = 3,
    u.is_verified = $is_verified,
    u.just_created = true
WITH u, coalesce(u.just_created, false) AS created, u.is_verified AS verified_before
REMOVE u.just_created
FOREACH (_ IN CASE WHEN NOT created AND NOT verified_before AND $is_verified THEN [1] ELSE [] END |
    SET u.name = $name,
        u.hashed_password = $hashed_password,
        u.is_verified = true
)
RETURN u, created, verified_before`

// uniquePhonenumberConstraint backs the MERGE in upsertUserQuery. MERGE alone
// only serializes once a node exists to lock; without the constraint two
// concurrent first-time upserts for the same number can each create a node.
// With it, the loser of that race fails at commit instead.
const uniquePhonenumberConstraint = `
CREATE CONSTRAINT user_phonenumber_unique IF NOT EXISTS
FOR (u:User) REQUIRE u.phonenumber IS UNIQUE`

const findUserQuery = `
MATCH (u:User {phonenumber: $phonenumber})
RETURN u`

// decrementQuery performs the quota check and the decrement in a single
// atomic statement. The leading self-assignment takes the node's write lock
// before the counter is read: under read-committed isolation a plain WITH
// projection reads without a lock, so two concurrent decrements could both
// observe the same pre-decrement value and both spend the last slot. Once the
// lock is held, the read-check-write below is serialized for the rest of the
// transaction.
const decrementQuery = `
MATCH (u:User {phonenumber: $phonenumber})
SET u.remaining_connections = u.remaining_connections
WITH u, u.remaining_connections AS before
SET u.remaining_connections = CASE WHEN before > 0 THEN before - 1 ELSE before END
RETURN before, u.remaining_connections AS remaining`

// EnsureConstraints creates the schema constraints the write paths rely on.
// The statement is idempotent; call it once at startup before serving.
func (s *UserService) EnsureConstraints(ctx context.Context) error {
	_, err := s.store.Write(ctx, uniquePhonenumberConstraint, nil)
	return err
}

// Upsert creates a user for the given phone number, or upgrades an existing
// unverified placeholder in place. A user is verified iff both name and
// password hash are non-empty. Upserting over a verified user fails with
// ALREADY_EXISTS; re-upserting incomplete data over an unverified placeholder
// fails with INCOMPLETE_UPGRADE.
func (s *UserService) Upsert(ctx context.Context, name, phonenumber, passwordHash string) (*models.User, error) {
	isVerified := name != "" && passwordHash != ""

	records, err := s.store.Write(ctx, upsertUserQuery, map[string]any{
		"phonenumber":     phonenumber,
		"name":            name,
		"hashed_password": passwordHash,
		"is_verified":     isVerified,
		"user_id":         uuid.New().String(),
		"created_at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.ErrInternal
	}

	record := records[0]
	created := boolValue(record, "created")
	verifiedBefore := boolValue(record, "verified_before")
	switch {
	case !created && verifiedBefore:
		return nil, errors.ErrAlreadyExists
	case !created && !verifiedBefore && !isVerified:
		return nil, errors.ErrIncompleteUpgrade
	}

	node, ok := nodeValue(record, "u")
	if !ok {
		return nil, errors.ErrInternal
	}
	user := userFromNode(node)
	s.logger.Info("user upserted",
		zap.String("user_id", user.UserID),
		zap.Bool("created", created),
		zap.Bool("verified", user.IsVerified))
	return &user, nil
}

// Find looks up a user by phone number. A missing user is a normal outcome
// and returns (nil, nil), not an error.
func (s *UserService) Find(ctx context.Context, phonenumber string) (*models.User, error) {
	records, err := s.store.Read(ctx, findUserQuery, map[string]any{"phonenumber": phonenumber})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	node, ok := nodeValue(records[0], "u")
	if !ok {
		return nil, errors.ErrInternal
	}
	user := userFromNode(node)
	return &user, nil
}

// Remaining returns how many new connections the user may still initiate.
func (s *UserService) Remaining(ctx context.Context, phonenumber string) (int, error) {
	user, err := s.Find(ctx, phonenumber)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, errors.ErrNotFound
	}
	return user.RemainingConnections, nil
}

// Decrement spends one connection slot and returns the new count. The counter
// never goes below zero; at the floor it fails with QUOTA_EXHAUSTED and the
// stored value is untouched.
func (s *UserService) Decrement(ctx context.Context, phonenumber string) (int, error) {
	records, err := s.store.Write(ctx, decrementQuery, map[string]any{"phonenumber": phonenumber})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, errors.ErrNotFound
	}
	before, ok := intValue(records[0], "before")
	if !ok {
		return 0, errors.ErrInternal
	}
	if before <= 0 {
		return 0, errors.ErrQuotaExhausted
	}
	remaining, _ := intValue(records[0], "remaining")
	return int(remaining), nil
}
