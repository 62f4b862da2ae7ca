package domain

import "context"

// ChallengeRepository is the abstraction for any kind of database intended
// to persist ownership challenges.
type ChallengeRepository interface {
	// UpsertChallenge stores the challenge keyed by its subject key,
	// overwriting any prior unredeemed challenge for the same key.
	UpsertChallenge(ctx context.Context, challenge *Challenge) error
	// GetChallenge returns the active challenge for the given subject key,
	// or ErrChallengeNotFound.
	GetChallenge(ctx context.Context, subjectKey string) (*Challenge, error)
	// DeleteChallenge removes the challenge for the given subject key, or
	// returns ErrChallengeNotFound if absent. The check-and-delete must be
	// atomic so that two racing redemptions cannot both succeed against the
	// same challenge.
	DeleteChallenge(ctx context.Context, subjectKey string) error
}
