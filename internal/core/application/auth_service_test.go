package application_test

import (
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/internal/core/application"
	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/pkg/ratelimiter"
)

var challengeTimeout = time.Minute

func newAuthService(serverKey *keypair.Full) *application.AuthService {
	return application.NewAuthService(
		newRepoManager(), serverKey, passphrase, challengeTimeout,
		ratelimiter.New(100, 100),
	)
}

func TestIssueAndRedeemChallenge(t *testing.T) {
	serverKey := keypair.MustRandom()
	subject := keypair.MustRandom()
	svc := newAuthService(serverKey)

	envelope, err := svc.IssueChallenge(ctx, subject.Address())
	require.NoError(t, err)
	require.NotEmpty(t, envelope)

	signedEnvelope := counterSign(t, envelope, subject)

	err = svc.RedeemChallenge(ctx, subject.Address(), signedEnvelope)
	require.NoError(t, err)

	t.Run("challenge_is_single_use", func(t *testing.T) {
		err := svc.RedeemChallenge(ctx, subject.Address(), signedEnvelope)
		require.ErrorIs(t, err, domain.ErrChallengeNotFound)
	})
}

func TestRedeemChallengeFailures(t *testing.T) {
	serverKey := keypair.MustRandom()

	t.Run("missing_subject_signature", func(t *testing.T) {
		subject := keypair.MustRandom()
		svc := newAuthService(serverKey)

		envelope, err := svc.IssueChallenge(ctx, subject.Address())
		require.NoError(t, err)

		// presented as-is, carrying only the server signature.
		err = svc.RedeemChallenge(ctx, subject.Address(), envelope)
		require.ErrorIs(t, err, application.ErrInvalidChallenge)
	})

	t.Run("challenge_bound_to_subject_key", func(t *testing.T) {
		subject := keypair.MustRandom()
		other := keypair.MustRandom()
		svc := newAuthService(serverKey)

		envelope, err := svc.IssueChallenge(ctx, subject.Address())
		require.NoError(t, err)
		_, err = svc.IssueChallenge(ctx, other.Address())
		require.NoError(t, err)

		// the envelope issued for subject cannot redeem other's challenge,
		// even if other counter-signs it.
		signedEnvelope := counterSign(t, envelope, other)
		err = svc.RedeemChallenge(ctx, other.Address(), signedEnvelope)
		require.ErrorIs(t, err, application.ErrInvalidChallenge)
	})

	t.Run("reissue_overwrites_prior_challenge", func(t *testing.T) {
		subject := keypair.MustRandom()
		svc := newAuthService(serverKey)

		staleEnvelope, err := svc.IssueChallenge(ctx, subject.Address())
		require.NoError(t, err)
		_, err = svc.IssueChallenge(ctx, subject.Address())
		require.NoError(t, err)

		// the first carrier embeds a nonce that no longer exists.
		signedEnvelope := counterSign(t, staleEnvelope, subject)
		err = svc.RedeemChallenge(ctx, subject.Address(), signedEnvelope)
		require.ErrorIs(t, err, application.ErrInvalidChallenge)
	})

	t.Run("expired_challenge", func(t *testing.T) {
		subject := keypair.MustRandom()
		repoManager := newRepoManager()
		svc := application.NewAuthService(
			repoManager, serverKey, passphrase, challengeTimeout,
			ratelimiter.New(100, 100),
		)

		challenge := domain.NewChallenge(
			subject.Address(), []byte("nonce"), -time.Second,
		)
		require.NoError(
			t, repoManager.ChallengeRepository().UpsertChallenge(ctx, challenge),
		)

		err := svc.RedeemChallenge(ctx, subject.Address(), "")
		require.ErrorIs(t, err, domain.ErrChallengeExpired)

		// the expired challenge is consumed on the failed attempt.
		_, err = repoManager.ChallengeRepository().GetChallenge(
			ctx, subject.Address(),
		)
		require.ErrorIs(t, err, domain.ErrChallengeNotFound)
	})

	t.Run("malformed_envelope", func(t *testing.T) {
		subject := keypair.MustRandom()
		svc := newAuthService(serverKey)

		_, err := svc.IssueChallenge(ctx, subject.Address())
		require.NoError(t, err)

		err = svc.RedeemChallenge(ctx, subject.Address(), "not an envelope")
		require.ErrorIs(t, err, application.ErrMalformedEnvelope)
	})

	t.Run("invalid_subject_key", func(t *testing.T) {
		svc := newAuthService(serverKey)

		_, err := svc.IssueChallenge(ctx, "not a key")
		require.ErrorIs(t, err, application.ErrInvalidKey)

		err = svc.RedeemChallenge(ctx, "not a key", "")
		require.ErrorIs(t, err, application.ErrInvalidKey)
	})
}

func TestIssueChallengeRateLimited(t *testing.T) {
	serverKey := keypair.MustRandom()
	subject := keypair.MustRandom()
	other := keypair.MustRandom()
	svc := application.NewAuthService(
		newRepoManager(), serverKey, passphrase, challengeTimeout,
		ratelimiter.New(0.001, 1),
	)

	_, err := svc.IssueChallenge(ctx, subject.Address())
	require.NoError(t, err)

	_, err = svc.IssueChallenge(ctx, subject.Address())
	require.ErrorIs(t, err, application.ErrTooManyRequests)

	// the limit is per key, other subjects are unaffected.
	_, err = svc.IssueChallenge(ctx, other.Address())
	require.NoError(t, err)
}
