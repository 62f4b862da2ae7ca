package application_test

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/internal/core/application"
	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
	"github.com/lumenvault/lumenvault/pkg/stellartx"
)

func newExecutorService(
	repoManager ports.RepoManager, ledger ports.LedgerService,
) *application.ExecutorService {
	return application.NewExecutorService(repoManager, ledger, passphrase)
}

// approvedPayment builds a payment proposal and collects approvals from the
// first numApprovals cosigners.
func approvedPayment(
	t *testing.T, svc *application.ProposalService, ta *testAccount,
	numApprovals int,
) *domain.Proposal {
	t.Helper()

	proposal, err := svc.BuildPayment(
		ctx, ta.account.ID, ta.cosigners[0].Address(), "10", "",
	)
	require.NoError(t, err)

	for i := 0; i < numApprovals; i++ {
		signed := counterSign(t, proposal.EnvelopeXDR, ta.cosigners[i])
		require.NoError(t, svc.Approve(
			ctx, proposal.ID, ta.cosigners[i].Address(), signed,
			ta.cosignerIdentity(i),
		))
	}

	updated, err := svc.GetProposal(ctx, proposal.ID)
	require.NoError(t, err)
	return updated
}

func TestExecute(t *testing.T) {
	repoManager := newRepoManager()
	ta := newTestAccount(t, repoManager, 2, 2)

	var submittedXDR string
	ledger := newMockedLedger()
	ledger.On("GetAccount", ta.owner.Address()).
		Return(newAccountState(100, ta.signerKeys()...), nil)
	ledger.On("SubmitEnvelope", mock.Anything).
		Run(func(args mock.Arguments) {
			submittedXDR = args.String(0)
		}).
		Return(&ports.SubmitResult{TxHash: randomHex(32), Ledger: 1234}, nil)

	proposalSvc := newProposalService(repoManager, ledger)
	executorSvc := newExecutorService(repoManager, ledger)

	proposal := approvedPayment(t, proposalSvc, ta, 2)
	require.Equal(t, domain.ProposalApproved, proposal.Status)

	txHash, err := executorSvc.Execute(ctx, proposal.ID)
	require.NoError(t, err)
	require.NotEmpty(t, txHash)

	executed, err := proposalSvc.GetProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalExecuted, executed.Status)
	require.Equal(t, txHash, executed.ResultTxHash)
	require.NotNil(t, executed.ExecutedAt)

	// both collected signatures must survive reconciliation and travel
	// with the submitted envelope.
	tx, err := stellartx.ParseEnvelope(submittedXDR)
	require.NoError(t, err)
	require.Len(t, tx.Signatures(), 2)

	t.Run("executing_twice", func(t *testing.T) {
		_, err := executorSvc.Execute(ctx, proposal.ID)
		require.ErrorIs(t, err, application.ErrProposalNotExecutable)
	})
}

func TestExecuteDropsStaleSignatures(t *testing.T) {
	repoManager := newRepoManager()
	ta := newTestAccount(t, repoManager, 2, 2)

	ledger := newMockedLedger()
	ledger.On("GetAccount", ta.owner.Address()).
		Return(newAccountState(100, ta.signerKeys()...), nil)

	proposalSvc := newProposalService(repoManager, ledger)
	proposal := approvedPayment(t, proposalSvc, ta, 2)

	// the second cosigner was dropped on-chain after approving: its stored
	// signature must not reach the network.
	staleState := newAccountState(
		100, ta.owner.Address(), ta.cosigners[0].Address(),
	)
	var submittedXDR string
	staleLedger := newMockedLedger()
	staleLedger.On("GetAccount", ta.owner.Address()).Return(staleState, nil)
	staleLedger.On("SubmitEnvelope", mock.Anything).
		Run(func(args mock.Arguments) {
			submittedXDR = args.String(0)
		}).
		Return(&ports.SubmitResult{TxHash: randomHex(32)}, nil)

	executorSvc := newExecutorService(repoManager, staleLedger)
	_, err := executorSvc.Execute(ctx, proposal.ID)
	require.NoError(t, err)

	tx, err := stellartx.ParseEnvelope(submittedXDR)
	require.NoError(t, err)
	require.Len(t, tx.Signatures(), 1)
}

func TestExecuteFailures(t *testing.T) {
	t.Run("pending_payment", func(t *testing.T) {
		repoManager := newRepoManager()
		ta := newTestAccount(t, repoManager, 2, 2)

		ledger := newMockedLedger()
		ledger.On("GetAccount", ta.owner.Address()).
			Return(newAccountState(100, ta.signerKeys()...), nil)

		proposalSvc := newProposalService(repoManager, ledger)
		executorSvc := newExecutorService(repoManager, ledger)

		proposal := approvedPayment(t, proposalSvc, ta, 1)
		require.Equal(t, domain.ProposalPending, proposal.Status)

		_, err := executorSvc.Execute(ctx, proposal.ID)
		require.ErrorIs(t, err, application.ErrProposalNotExecutable)
	})

	t.Run("threshold_raised_after_approval", func(t *testing.T) {
		repoManager := newRepoManager()
		ta := newTestAccount(t, repoManager, 2, 2)

		ledger := newMockedLedger()
		ledger.On("GetAccount", ta.owner.Address()).
			Return(newAccountState(100, ta.signerKeys()...), nil)

		proposalSvc := newProposalService(repoManager, ledger)
		executorSvc := newExecutorService(repoManager, ledger)

		proposal := approvedPayment(t, proposalSvc, ta, 2)
		require.Equal(t, domain.ProposalApproved, proposal.Status)

		require.NoError(t, repoManager.AccountRepository().UpdateAccount(
			ctx, ta.account.ID,
			func(a *domain.Account) (*domain.Account, error) {
				if err := a.SetThreshold(ta.adminID, 3); err != nil {
					return nil, err
				}
				return a, nil
			},
		))

		_, err := executorSvc.Execute(ctx, proposal.ID)
		require.ErrorIs(t, err, application.ErrInsufficientApprovals)
	})

	t.Run("network_rejection_keeps_proposal_retriable", func(t *testing.T) {
		repoManager := newRepoManager()
		ta := newTestAccount(t, repoManager, 2, 2)

		ledger := newMockedLedger()
		ledger.On("GetAccount", ta.owner.Address()).
			Return(newAccountState(100, ta.signerKeys()...), nil)
		ledger.On("SubmitEnvelope", mock.Anything).
			Return(nil, &ports.SubmitError{
				TxCode:  "tx_failed",
				OpCodes: []string{"op_underfunded"},
			}).Once()
		ledger.On("SubmitEnvelope", mock.Anything).
			Return(&ports.SubmitResult{TxHash: randomHex(32)}, nil)

		proposalSvc := newProposalService(repoManager, ledger)
		executorSvc := newExecutorService(repoManager, ledger)

		proposal := approvedPayment(t, proposalSvc, ta, 2)

		_, err := executorSvc.Execute(ctx, proposal.ID)
		var submitErr *ports.SubmitError
		require.ErrorAs(t, err, &submitErr)
		require.Equal(t, "tx_failed", submitErr.TxCode)

		// still approved, a retry must be able to succeed.
		kept, err := proposalSvc.GetProposal(ctx, proposal.ID)
		require.NoError(t, err)
		require.Equal(t, domain.ProposalApproved, kept.Status)

		txHash, err := executorSvc.Execute(ctx, proposal.ID)
		require.NoError(t, err)
		require.NotEmpty(t, txHash)
	})
}

func TestExecuteReconfiguration(t *testing.T) {
	repoManager := newRepoManager()
	ta := newTestAccount(t, repoManager, 2, 2)

	ledger := newMockedLedger()
	ledger.On("GetAccount", ta.owner.Address()).
		Return(newAccountState(100, ta.owner.Address()), nil)
	ledger.On("SubmitEnvelope", mock.Anything).
		Return(&ports.SubmitResult{TxHash: randomHex(32)}, nil)

	proposalSvc := newProposalService(repoManager, ledger)
	executorSvc := newExecutorService(repoManager, ledger)

	proposal, err := proposalSvc.BuildReconfiguration(ctx, ta.account.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalPending, proposal.Status)

	// executable with zero approvals: the owner key is still the sole
	// authority the network recognizes.
	txHash, err := executorSvc.Execute(ctx, proposal.ID)
	require.NoError(t, err)
	require.NotEmpty(t, txHash)

	executed, err := proposalSvc.GetProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalExecuted, executed.Status)
}
