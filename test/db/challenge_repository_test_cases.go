package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/test/testutil"
)

func TestChallengeRepository(
	t *testing.T, ctx context.Context, repo domain.ChallengeRepository,
) {
	subjectKey := keypair.MustRandom().Address()

	gotten, err := repo.GetChallenge(ctx, subjectKey)
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
	require.Nil(t, gotten)

	first := domain.NewChallenge(subjectKey, testutil.RandomBytes(32), time.Minute)
	err = repo.UpsertChallenge(ctx, first)
	require.NoError(t, err)

	gotten, err = repo.GetChallenge(ctx, subjectKey)
	require.NoError(t, err)
	require.Equal(t, first.Nonce, gotten.Nonce)

	// a reissue replaces the prior challenge for the same subject.
	second := domain.NewChallenge(subjectKey, testutil.RandomBytes(32), time.Minute)
	err = repo.UpsertChallenge(ctx, second)
	require.NoError(t, err)

	gotten, err = repo.GetChallenge(ctx, subjectKey)
	require.NoError(t, err)
	require.Equal(t, second.Nonce, gotten.Nonce)
	require.NotEqual(t, first.Nonce, gotten.Nonce)

	err = repo.DeleteChallenge(ctx, subjectKey)
	require.NoError(t, err)

	err = repo.DeleteChallenge(ctx, subjectKey)
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)

	gotten, err = repo.GetChallenge(ctx, subjectKey)
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
	require.Nil(t, gotten)
}
