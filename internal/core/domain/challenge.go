package domain

import (
	"fmt"
	"time"
)

var (
	ErrChallengeNotFound = fmt.Errorf("challenge not found")
	ErrChallengeExpired  = fmt.Errorf("challenge expired")
)

// Challenge is a short-lived, single-use ownership challenge for a public
// key: the high-entropy nonce the subject must counter-sign before the
// expiry. At most one challenge per subject key is active at any time.
type Challenge struct {
	SubjectKey string
	Nonce      []byte
	ExpiresAt  time.Time
}

// NewChallenge returns a Challenge for the given normalized subject key,
// expiring after the given duration.
func NewChallenge(subjectKey string, nonce []byte, ttl time.Duration) *Challenge {
	return &Challenge{
		SubjectKey: subjectKey,
		Nonce:      nonce,
		ExpiresAt:  time.Now().Add(ttl),
	}
}

// IsExpired returns whether the challenge can no longer be redeemed.
func (c *Challenge) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
