package application_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
	"github.com/lumenvault/lumenvault/internal/infrastructure/storage/db/inmemory"
	"github.com/lumenvault/lumenvault/pkg/stellartx"
)

var (
	ctx        = context.Background()
	passphrase = network.TestNetworkPassphrase
)

// ports.LedgerService
type mockLedger struct {
	mock.Mock
}

func newMockedLedger() *mockLedger {
	return &mockLedger{}
}

func (m *mockLedger) GetAccount(
	ctx context.Context, address string,
) (*ports.AccountState, error) {
	args := m.Called(address)
	var res *ports.AccountState
	if a := args.Get(0); a != nil {
		res = a.(*ports.AccountState)
	}
	return res, args.Error(1)
}

func (m *mockLedger) SubmitEnvelope(
	ctx context.Context, envelopeXDR string,
) (*ports.SubmitResult, error) {
	args := m.Called(envelopeXDR)
	var res *ports.SubmitResult
	if a := args.Get(0); a != nil {
		res = a.(*ports.SubmitResult)
	}
	return res, args.Error(1)
}

func (m *mockLedger) GetPaymentHistory(
	ctx context.Context, address string,
) ([]ports.Payment, error) {
	args := m.Called(address)
	var res []ports.Payment
	if a := args.Get(0); a != nil {
		res = a.([]ports.Payment)
	}
	return res, args.Error(1)
}

// testAccount bundles an account policy with the keypairs and identities
// behind its signers.
type testAccount struct {
	account   *domain.Account
	adminID   string
	owner     *keypair.Full
	cosigners []*keypair.Full
}

func (a *testAccount) cosignerIdentity(i int) string {
	return fmt.Sprintf("identity-%d", i)
}

// newTestAccount stores an account policy with the given threshold and
// number of cosigners. Cosigner i is linked to identity "identity-i".
func newTestAccount(
	t *testing.T, repoManager ports.RepoManager, threshold int32, numCosigners int,
) *testAccount {
	t.Helper()

	adminID := "admin-" + randomHex(4)
	owner := keypair.MustRandom()

	account, err := domain.NewAccount(
		"account-"+randomHex(8), adminID, owner.Address(), threshold,
	)
	require.NoError(t, err)

	ta := &testAccount{
		account: account,
		adminID: adminID,
		owner:   owner,
	}
	for i := 0; i < numCosigners; i++ {
		kp := keypair.MustRandom()
		require.NoError(t, account.AddSigner(adminID, domain.Signer{
			PublicKey:  kp.Address(),
			Weight:     1,
			IdentityID: ta.cosignerIdentity(i),
		}))
		ta.cosigners = append(ta.cosigners, kp)
	}

	require.NoError(t, repoManager.AccountRepository().AddAccount(ctx, account))
	return ta
}

func (a *testAccount) signerKeys() []string {
	return a.account.SignerKeys()
}

func newRepoManager() ports.RepoManager {
	return inmemory.NewRepoManager()
}

func newAccountState(sequence int64, signerKeys ...string) *ports.AccountState {
	signers := make([]ports.SignerState, 0, len(signerKeys))
	for _, key := range signerKeys {
		signers = append(signers, ports.SignerState{Key: key, Weight: 1})
	}
	return &ports.AccountState{
		Sequence: sequence,
		Signers:  signers,
		Balances: []ports.Balance{{Asset: "native", Amount: "100.0000000"}},
	}
}

// counterSign attaches the given keypair's signature to the envelope,
// leaving any existing signature in place.
func counterSign(t *testing.T, envelopeXDR string, kp *keypair.Full) string {
	t.Helper()

	tx, err := stellartx.ParseEnvelope(envelopeXDR)
	require.NoError(t, err)

	signedTx, err := tx.Sign(passphrase, kp)
	require.NoError(t, err)

	signedXDR, err := signedTx.Base64()
	require.NoError(t, err)
	return signedXDR
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
