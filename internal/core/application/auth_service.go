package application

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
	"github.com/lumenvault/lumenvault/pkg/ratelimiter"
	"github.com/lumenvault/lumenvault/pkg/stellartx"
)

const (
	// challengeNonceSize is the entropy of a challenge nonce in bytes. The
	// nonce travels base64-encoded as the value of the carrier's
	// application-data operation.
	challengeNonceSize = 48

	authDataNameSuffix = " auth"
)

var (
	ErrTooManyRequests   = fmt.Errorf("too many challenge requests for this key")
	ErrMalformedEnvelope = fmt.Errorf(
		"malformed envelope: expected a single application-data operation",
	)
	ErrInvalidChallenge = fmt.Errorf("invalid challenge")
)

// AuthService implements the challenge-response protocol proving control of
// a public key without exposing its private key:
//   - Issue a short-lived single-use challenge for a public key, carried by
//     a never-executable envelope signed by the server keypair.
//   - Redeem a challenge by presenting the carrier counter-signed by the
//     subject key.
//
// Binding the nonce to a specific public key and requiring both the server
// and the subject signature prevents replaying a challenge issued for one
// key against another, and prevents the service from being tricked into
// verifying a key it never challenged.
type AuthService struct {
	repoManager       ports.RepoManager
	serverKey         *keypair.Full
	networkPassphrase string
	challengeTimeout  time.Duration
	limiter           *ratelimiter.KeyedLimiter

	log func(format string, a ...interface{})
}

func NewAuthService(
	repoManager ports.RepoManager, serverKey *keypair.Full,
	networkPassphrase string, challengeTimeout time.Duration,
	limiter *ratelimiter.KeyedLimiter,
) *AuthService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("auth service: %s", format)
		log.Debugf(format, a...)
	}
	return &AuthService{
		repoManager, serverKey, networkPassphrase, challengeTimeout, limiter,
		logFn,
	}
}

// IssueChallenge creates a new challenge for the given public key and
// returns the carrier envelope embedding the nonce, signed by the server
// keypair. Any prior unredeemed challenge for the same key is overwritten.
func (s *AuthService) IssueChallenge(
	ctx context.Context, subjectKey string,
) (string, error) {
	subject, err := keypair.ParseAddress(subjectKey)
	if err != nil {
		return "", ErrInvalidKey
	}
	normalizedKey := subject.Address()

	if !s.limiter.Allow(normalizedKey) {
		return "", ErrTooManyRequests
	}

	nonce := make([]byte, challengeNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate challenge nonce: %s", err)
	}
	encodedNonce := make(
		[]byte, base64.StdEncoding.EncodedLen(challengeNonceSize),
	)
	base64.StdEncoding.Encode(encodedNonce, nonce)

	// The carrier builds on sequence 0 of the server account so that it can
	// never be executed on the network, whoever signs it.
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: s.serverKey.Address(),
			Sequence:  -1,
		},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.ManageData{
				SourceAccount: normalizedKey,
				Name:          normalizedKey + authDataNameSuffix,
				Value:         encodedNonce,
			},
		},
		BaseFee: txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(s.challengeTimeout.Seconds())),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to build challenge envelope: %s", err)
	}
	signedTx, err := tx.Sign(s.networkPassphrase, s.serverKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge envelope: %s", err)
	}

	challenge := domain.NewChallenge(
		normalizedKey, encodedNonce, s.challengeTimeout,
	)
	if err := s.repoManager.ChallengeRepository().UpsertChallenge(
		ctx, challenge,
	); err != nil {
		return "", err
	}

	s.log("issued challenge for key %s", normalizedKey)
	return signedTx.Base64()
}

// RedeemChallenge verifies a counter-signed challenge envelope and, if
// valid, consumes the stored challenge. Redemption is single-use: the
// atomic delete guarantees that two racing redemptions cannot both succeed.
func (s *AuthService) RedeemChallenge(
	ctx context.Context, subjectKey, envelopeXDR string,
) error {
	subject, err := keypair.ParseAddress(subjectKey)
	if err != nil {
		return ErrInvalidKey
	}
	normalizedKey := subject.Address()

	challengeRepo := s.repoManager.ChallengeRepository()
	challenge, err := challengeRepo.GetChallenge(ctx, normalizedKey)
	if err != nil {
		return err
	}
	if challenge.IsExpired() {
		_ = challengeRepo.DeleteChallenge(ctx, normalizedKey)
		return domain.ErrChallengeExpired
	}

	tx, err := stellartx.ParseEnvelope(envelopeXDR)
	if err != nil {
		return ErrMalformedEnvelope
	}
	ops := tx.Operations()
	if len(ops) != 1 {
		return ErrMalformedEnvelope
	}
	dataOp, ok := ops[0].(*txnbuild.ManageData)
	if !ok {
		return ErrMalformedEnvelope
	}

	if tx.SourceAccount().AccountID != s.serverKey.Address() {
		return ErrInvalidChallenge
	}
	if dataOp.Name != normalizedKey+authDataNameSuffix {
		return ErrInvalidChallenge
	}
	if !bytes.Equal(dataOp.Value, challenge.Nonce) {
		return ErrInvalidChallenge
	}
	if !stellartx.HasValidSignature(
		tx, s.networkPassphrase, s.serverKey.Address(),
	) {
		return ErrInvalidChallenge
	}
	if !stellartx.HasValidSignature(tx, s.networkPassphrase, normalizedKey) {
		return ErrInvalidChallenge
	}

	if err := challengeRepo.DeleteChallenge(ctx, normalizedKey); err != nil {
		return err
	}

	s.log("redeemed challenge for key %s", normalizedKey)
	return nil
}
