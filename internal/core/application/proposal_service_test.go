package application_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/internal/core/application"
	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
	"github.com/lumenvault/lumenvault/pkg/stellartx"
)

var (
	baseFee   = int64(txnbuild.MinBaseFee)
	txTimeout = 5 * time.Minute
)

func newProposalService(
	repoManager ports.RepoManager, ledger ports.LedgerService,
) *application.ProposalService {
	return application.NewProposalService(
		repoManager, ledger, passphrase, baseFee, txTimeout,
	)
}

func TestBuildPayment(t *testing.T) {
	repoManager := newRepoManager()
	ta := newTestAccount(t, repoManager, 2, 2)
	destination := ta.cosigners[0].Address()

	ledger := newMockedLedger()
	ledger.On("GetAccount", ta.owner.Address()).
		Return(newAccountState(100, ta.signerKeys()...), nil)

	svc := newProposalService(repoManager, ledger)

	proposal, err := svc.BuildPayment(
		ctx, ta.account.ID, destination, "125.5", "invoice 42",
	)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalPayment, proposal.Kind)
	require.Equal(t, domain.ProposalPending, proposal.Status)
	require.Zero(t, proposal.CountApprovals())

	tx, err := stellartx.ParseEnvelope(proposal.EnvelopeXDR)
	require.NoError(t, err)
	require.Equal(t, ta.owner.Address(), tx.SourceAccount().AccountID)
	require.Equal(t, int64(101), tx.SequenceNumber())

	ops := tx.Operations()
	require.Len(t, ops, 1)
	payment, ok := ops[0].(*txnbuild.Payment)
	require.True(t, ok)
	require.Equal(t, destination, payment.Destination)
	require.Equal(t, "125.5", payment.Amount)

	// the stored hash is the commitment approvals are verified against.
	hash, err := stellartx.HashHex(proposal.EnvelopeXDR, passphrase)
	require.NoError(t, err)
	require.Equal(t, hash, proposal.EnvelopeHash)

	t.Run("memo_is_truncated", func(t *testing.T) {
		longMemo := strings.Repeat("x", 40)
		proposal, err := svc.BuildPayment(
			ctx, ta.account.ID, destination, "1", longMemo,
		)
		require.NoError(t, err)

		tx, err := stellartx.ParseEnvelope(proposal.EnvelopeXDR)
		require.NoError(t, err)
		memo, ok := tx.Memo().(txnbuild.MemoText)
		require.True(t, ok)
		require.Len(t, string(memo), 28)
	})

	t.Run("invalid_args", func(t *testing.T) {
		_, err := svc.BuildPayment(ctx, ta.account.ID, "not a key", "1", "")
		require.ErrorIs(t, err, application.ErrInvalidKey)

		_, err = svc.BuildPayment(ctx, ta.account.ID, destination, "-1", "")
		require.ErrorIs(t, err, application.ErrInvalidAmount)

		_, err = svc.BuildPayment(
			ctx, ta.account.ID, destination, "0.00000001", "",
		)
		require.ErrorIs(t, err, application.ErrInvalidAmount)

		_, err = svc.BuildPayment(ctx, "unknown", destination, "1", "")
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("unfunded_source", func(t *testing.T) {
		repoManager := newRepoManager()
		ta := newTestAccount(t, repoManager, 1, 0)

		ledger := newMockedLedger()
		ledger.On("GetAccount", ta.owner.Address()).
			Return(nil, ports.ErrAccountNotFound)

		svc := newProposalService(repoManager, ledger)
		_, err := svc.BuildPayment(ctx, ta.account.ID, destination, "1", "")
		require.ErrorIs(t, err, application.ErrSourceAccountNotFound)
	})
}

func TestBuildReconfiguration(t *testing.T) {
	repoManager := newRepoManager()
	ta := newTestAccount(t, repoManager, 2, 2)

	ledger := newMockedLedger()
	ledger.On("GetAccount", ta.owner.Address()).
		Return(newAccountState(100, ta.signerKeys()...), nil)

	svc := newProposalService(repoManager, ledger)

	proposal, err := svc.BuildReconfiguration(ctx, ta.account.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalReconfigure, proposal.Kind)
	require.Equal(t, domain.ProposalPending, proposal.Status)

	tx, err := stellartx.ParseEnvelope(proposal.EnvelopeXDR)
	require.NoError(t, err)

	// one signer-granting operation per cosigner in deterministic order,
	// then exactly one closing operation carrying the thresholds.
	ops := tx.Operations()
	require.Len(t, ops, 3)

	cosigners := ta.account.CosignerEntries()
	for i, entry := range cosigners {
		setOpts, ok := ops[i].(*txnbuild.SetOptions)
		require.True(t, ok)
		require.NotNil(t, setOpts.Signer)
		require.Equal(t, entry.PublicKey, setOpts.Signer.Address)
		require.Equal(t, txnbuild.Threshold(entry.Weight), setOpts.Signer.Weight)
		require.Nil(t, setOpts.LowThreshold)
	}

	closing, ok := ops[len(ops)-1].(*txnbuild.SetOptions)
	require.True(t, ok)
	require.Nil(t, closing.Signer)
	require.Equal(t, txnbuild.NewThreshold(1), closing.MasterWeight)
	require.Equal(t, txnbuild.NewThreshold(2), closing.LowThreshold)
	require.Equal(t, txnbuild.NewThreshold(2), closing.MediumThreshold)
	require.Equal(t, txnbuild.NewThreshold(2), closing.HighThreshold)
}

func TestApprove(t *testing.T) {
	repoManager := newRepoManager()
	ta := newTestAccount(t, repoManager, 2, 3)

	ledger := newMockedLedger()
	ledger.On("GetAccount", mock.Anything).
		Return(newAccountState(100, ta.signerKeys()...), nil)

	svc := newProposalService(repoManager, ledger)

	proposal, err := svc.BuildPayment(
		ctx, ta.account.ID, ta.cosigners[0].Address(), "10", "",
	)
	require.NoError(t, err)

	signedByFirst := counterSign(t, proposal.EnvelopeXDR, ta.cosigners[0])
	err = svc.Approve(
		ctx, proposal.ID, ta.cosigners[0].Address(), signedByFirst,
		ta.cosignerIdentity(0),
	)
	require.NoError(t, err)

	updated, err := svc.GetProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalPending, updated.Status)
	require.Equal(t, 1, updated.CountApprovals())

	t.Run("duplicate_approval", func(t *testing.T) {
		err := svc.Approve(
			ctx, proposal.ID, ta.cosigners[0].Address(), signedByFirst,
			ta.cosignerIdentity(0),
		)
		require.ErrorIs(t, err, domain.ErrDuplicateApproval)
	})

	t.Run("unauthorized_signer", func(t *testing.T) {
		intruder := keypair.MustRandom()
		signed := counterSign(t, proposal.EnvelopeXDR, intruder)
		err := svc.Approve(
			ctx, proposal.ID, intruder.Address(), signed, ta.adminID,
		)
		require.ErrorIs(t, err, application.ErrSignerNotAuthorized)
	})

	t.Run("identity_mismatch", func(t *testing.T) {
		signed := counterSign(t, proposal.EnvelopeXDR, ta.cosigners[1])
		err := svc.Approve(
			ctx, proposal.ID, ta.cosigners[1].Address(), signed,
			ta.cosignerIdentity(2),
		)
		require.ErrorIs(t, err, application.ErrIdentityMismatch)
	})

	t.Run("envelope_mismatch", func(t *testing.T) {
		other, err := svc.BuildPayment(
			ctx, ta.account.ID, ta.cosigners[0].Address(), "999", "",
		)
		require.NoError(t, err)

		signed := counterSign(t, other.EnvelopeXDR, ta.cosigners[1])
		err = svc.Approve(
			ctx, proposal.ID, ta.cosigners[1].Address(), signed,
			ta.cosignerIdentity(1),
		)
		require.ErrorIs(t, err, application.ErrEnvelopeMismatch)
	})

	t.Run("missing_signature", func(t *testing.T) {
		// right envelope, but not signed by the claimed signer.
		signed := counterSign(t, proposal.EnvelopeXDR, ta.cosigners[0])
		err := svc.Approve(
			ctx, proposal.ID, ta.cosigners[1].Address(), signed,
			ta.cosignerIdentity(1),
		)
		require.ErrorIs(t, err, application.ErrInvalidSignature)
	})

	t.Run("threshold_reached_on_exact_count", func(t *testing.T) {
		signed := counterSign(t, proposal.EnvelopeXDR, ta.cosigners[1])
		err := svc.Approve(
			ctx, proposal.ID, ta.cosigners[1].Address(), signed,
			ta.cosignerIdentity(1),
		)
		require.NoError(t, err)

		updated, err := svc.GetProposal(ctx, proposal.ID)
		require.NoError(t, err)
		require.Equal(t, domain.ProposalApproved, updated.Status)
		require.Equal(t, 2, updated.CountApprovals())
	})

	t.Run("no_approval_after_finalized", func(t *testing.T) {
		rejected, err := svc.BuildPayment(
			ctx, ta.account.ID, ta.cosigners[0].Address(), "1", "",
		)
		require.NoError(t, err)
		require.NoError(t, svc.Reject(ctx, rejected.ID, ta.adminID))

		signed := counterSign(t, rejected.EnvelopeXDR, ta.cosigners[0])
		err = svc.Approve(
			ctx, rejected.ID, ta.cosigners[0].Address(), signed,
			ta.cosignerIdentity(0),
		)
		require.ErrorIs(t, err, domain.ErrProposalAlreadyFinalized)
	})
}

func TestReject(t *testing.T) {
	repoManager := newRepoManager()
	ta := newTestAccount(t, repoManager, 2, 2)

	ledger := newMockedLedger()
	ledger.On("GetAccount", mock.Anything).
		Return(newAccountState(100, ta.signerKeys()...), nil)

	svc := newProposalService(repoManager, ledger)

	t.Run("by_administrator", func(t *testing.T) {
		proposal, err := svc.BuildPayment(
			ctx, ta.account.ID, ta.cosigners[0].Address(), "1", "",
		)
		require.NoError(t, err)

		require.NoError(t, svc.Reject(ctx, proposal.ID, ta.adminID))

		updated, err := svc.GetProposal(ctx, proposal.ID)
		require.NoError(t, err)
		require.Equal(t, domain.ProposalRejected, updated.Status)
	})

	t.Run("by_linked_signer_identity", func(t *testing.T) {
		proposal, err := svc.BuildPayment(
			ctx, ta.account.ID, ta.cosigners[0].Address(), "1", "",
		)
		require.NoError(t, err)

		require.NoError(t, svc.Reject(ctx, proposal.ID, ta.cosignerIdentity(1)))
	})

	t.Run("by_unknown_identity", func(t *testing.T) {
		proposal, err := svc.BuildPayment(
			ctx, ta.account.ID, ta.cosigners[0].Address(), "1", "",
		)
		require.NoError(t, err)

		err = svc.Reject(ctx, proposal.ID, "nobody")
		require.ErrorIs(t, err, application.ErrSignerNotAuthorized)
	})

	t.Run("rejecting_twice", func(t *testing.T) {
		proposal, err := svc.BuildPayment(
			ctx, ta.account.ID, ta.cosigners[0].Address(), "1", "",
		)
		require.NoError(t, err)

		require.NoError(t, svc.Reject(ctx, proposal.ID, ta.adminID))
		err = svc.Reject(ctx, proposal.ID, ta.adminID)
		require.ErrorIs(t, err, domain.ErrProposalAlreadyFinalized)
	})
}

func TestListProposals(t *testing.T) {
	repoManager := newRepoManager()
	ta := newTestAccount(t, repoManager, 1, 1)

	ledger := newMockedLedger()
	ledger.On("GetAccount", mock.Anything).
		Return(newAccountState(100, ta.signerKeys()...), nil)

	svc := newProposalService(repoManager, ledger)

	first, err := svc.BuildPayment(
		ctx, ta.account.ID, ta.cosigners[0].Address(), "1", "",
	)
	require.NoError(t, err)
	second, err := svc.BuildReconfiguration(ctx, ta.account.ID)
	require.NoError(t, err)

	proposals, err := svc.ListProposals(ctx, ta.account.ID)
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	require.Equal(t, first.ID, proposals[0].ID)
	require.Equal(t, second.ID, proposals[1].ID)
}
