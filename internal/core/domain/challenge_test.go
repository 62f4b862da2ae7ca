package domain_test

import (
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

func TestChallenge(t *testing.T) {
	subjectKey := keypair.MustRandom().Address()
	nonce := []byte("48 bytes of high entropy, at least in principle.")

	challenge := domain.NewChallenge(subjectKey, nonce, 5*time.Minute)
	require.Equal(t, subjectKey, challenge.SubjectKey)
	require.Equal(t, nonce, challenge.Nonce)
	require.False(t, challenge.IsExpired())

	expired := domain.NewChallenge(subjectKey, nonce, -time.Second)
	require.True(t, expired.IsExpired())
}
