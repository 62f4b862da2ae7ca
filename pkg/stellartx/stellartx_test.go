package stellartx_test

import (
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/pkg/stellartx"
)

var passphrase = network.TestNetworkPassphrase

func newTestTx(t *testing.T, source *keypair.Full) *txnbuild.Transaction {
	t.Helper()

	dest := keypair.MustRandom()
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: source.Address(),
			Sequence:  41,
		},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: dest.Address(),
				Amount:      "10",
				Asset:       txnbuild.NativeAsset{},
			},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(300)},
	})
	require.NoError(t, err)
	return tx
}

func TestParseEnvelope(t *testing.T) {
	source := keypair.MustRandom()
	tx := newTestTx(t, source)
	txXDR, err := tx.Base64()
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		parsed, err := stellartx.ParseEnvelope(txXDR)
		require.NoError(t, err)
		require.NotNil(t, parsed)
		require.Equal(t, source.Address(), parsed.SourceAccount().AccountID)
		require.Len(t, parsed.Operations(), 1)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := stellartx.ParseEnvelope("")
		require.EqualError(t, err, stellartx.ErrMissingEnvelope.Error())

		_, err = stellartx.ParseEnvelope("not an envelope")
		require.Error(t, err)
	})

	t.Run("fee bump rejected", func(t *testing.T) {
		signedTx, err := tx.Sign(passphrase, source)
		require.NoError(t, err)

		feeBump, err := txnbuild.NewFeeBumpTransaction(
			txnbuild.FeeBumpTransactionParams{
				Inner:      signedTx,
				FeeAccount: keypair.MustRandom().Address(),
				BaseFee:    2 * txnbuild.MinBaseFee,
			},
		)
		require.NoError(t, err)
		feeBumpXDR, err := feeBump.Base64()
		require.NoError(t, err)

		_, err = stellartx.ParseEnvelope(feeBumpXDR)
		require.EqualError(t, err, stellartx.ErrFeeBumpEnvelope.Error())
	})
}

func TestVerifySignature(t *testing.T) {
	signer := keypair.MustRandom()
	tx := newTestTx(t, signer)
	hash, err := tx.Hash(passphrase)
	require.NoError(t, err)
	sig, err := signer.Sign(hash[:])
	require.NoError(t, err)

	require.True(t, stellartx.VerifySignature(signer.Address(), hash[:], sig))
	require.False(
		t, stellartx.VerifySignature(keypair.MustRandom().Address(), hash[:], sig),
	)
	require.False(t, stellartx.VerifySignature("not a key", hash[:], sig))
	require.False(t, stellartx.VerifySignature(signer.Address(), hash[:], nil))
	require.False(
		t, stellartx.VerifySignature(signer.Address(), hash[:], []byte("short")),
	)
}

func TestFindSignature(t *testing.T) {
	source := keypair.MustRandom()
	cosigner := keypair.MustRandom()
	stranger := keypair.MustRandom()

	tx := newTestTx(t, source)
	signedTx, err := tx.Sign(passphrase, source, cosigner)
	require.NoError(t, err)

	hash, err := signedTx.Hash(passphrase)
	require.NoError(t, err)

	sig, err := stellartx.FindSignature(signedTx, passphrase, cosigner.Address())
	require.NoError(t, err)
	require.True(t, stellartx.VerifySignature(cosigner.Address(), hash[:], sig))

	_, err = stellartx.FindSignature(signedTx, passphrase, stranger.Address())
	require.EqualError(t, err, stellartx.ErrSignatureNotFound.Error())

	require.True(t, stellartx.HasValidSignature(signedTx, passphrase, source.Address()))
	require.False(t, stellartx.HasValidSignature(signedTx, passphrase, stranger.Address()))
}

func TestSignatureHint(t *testing.T) {
	kp := keypair.MustRandom()

	hint, err := stellartx.SignatureHint(kp.Address())
	require.NoError(t, err)
	require.Equal(t, kp.Hint(), hint)

	_, err = stellartx.SignatureHint("malformed")
	require.Error(t, err)

	others := []string{
		keypair.MustRandom().Address(),
		keypair.MustRandom().Address(),
	}
	require.True(
		t, stellartx.MatchesAnySigner(hint, append(others, kp.Address())),
	)
	require.False(t, stellartx.MatchesAnySigner(hint, others))
	require.False(t, stellartx.MatchesAnySigner(hint, []string{"malformed"}))
}

func TestHashHex(t *testing.T) {
	source := keypair.MustRandom()
	tx := newTestTx(t, source)
	txXDR, err := tx.Base64()
	require.NoError(t, err)

	expected, err := tx.HashHex(passphrase)
	require.NoError(t, err)

	// The hash is a commitment to the transaction, not to its signatures.
	signedTx, err := tx.Sign(passphrase, source)
	require.NoError(t, err)
	signedXDR, err := signedTx.Base64()
	require.NoError(t, err)

	hash, err := stellartx.HashHex(txXDR, passphrase)
	require.NoError(t, err)
	require.Equal(t, expected, hash)

	signedHash, err := stellartx.HashHex(signedXDR, passphrase)
	require.NoError(t, err)
	require.Equal(t, expected, signedHash)
}
