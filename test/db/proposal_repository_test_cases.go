package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/test/testutil"
)

func TestProposalRepository(
	t *testing.T, ctx context.Context, repo domain.ProposalRepository,
) {
	accountID := uuid.NewString()
	proposal := newTestProposal(accountID, domain.ProposalPayment)

	testAddAndGetProposal(t, ctx, repo, proposal)

	testGetProposalsForAccount(t, ctx, repo, proposal)

	testUpdateProposal(t, ctx, repo, proposal.ID)

	time.Sleep(1 * time.Second) //wait for events
}

func testAddAndGetProposal(
	t *testing.T, ctx context.Context, repo domain.ProposalRepository,
	proposal *domain.Proposal,
) {
	gotten, err := repo.GetProposal(ctx, proposal.ID)
	require.ErrorIs(t, err, domain.ErrProposalNotFound)
	require.Nil(t, gotten)

	err = repo.AddProposal(ctx, proposal)
	require.NoError(t, err)

	err = repo.AddProposal(ctx, proposal)
	require.Error(t, err)

	gotten, err = repo.GetProposal(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, proposal.ID, gotten.ID)
	require.Equal(t, proposal.AccountID, gotten.AccountID)
	require.Equal(t, proposal.Kind, gotten.Kind)
	require.Equal(t, proposal.EnvelopeXDR, gotten.EnvelopeXDR)
	require.Equal(t, proposal.EnvelopeHash, gotten.EnvelopeHash)
	require.Equal(t, domain.ProposalPending, gotten.Status)
	require.Zero(t, gotten.CountApprovals())
}

func testGetProposalsForAccount(
	t *testing.T, ctx context.Context, repo domain.ProposalRepository,
	first *domain.Proposal,
) {
	time.Sleep(10 * time.Millisecond)
	second := newTestProposal(first.AccountID, domain.ProposalReconfigure)
	err := repo.AddProposal(ctx, second)
	require.NoError(t, err)

	proposals, err := repo.GetProposalsForAccount(ctx, first.AccountID)
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	require.Equal(t, first.ID, proposals[0].ID)
	require.Equal(t, second.ID, proposals[1].ID)

	proposals, err = repo.GetProposalsForAccount(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Empty(t, proposals)
}

func testUpdateProposal(
	t *testing.T, ctx context.Context, repo domain.ProposalRepository,
	proposalID string,
) {
	signerKey := keypair.MustRandom().Address()
	signature := testutil.RandomBytes(64)

	err := repo.UpdateProposal(
		ctx, proposalID, func(p *domain.Proposal) (*domain.Proposal, error) {
			if err := p.AddApproval(signerKey, signature, 1); err != nil {
				return nil, err
			}
			return p, nil
		},
	)
	require.NoError(t, err)

	gotten, err := repo.GetProposal(ctx, proposalID)
	require.NoError(t, err)
	require.Equal(t, domain.ProposalApproved, gotten.Status)
	require.Equal(t, 1, gotten.CountApprovals())
	require.True(t, gotten.HasApproval(signerKey))
	require.Equal(t, signature, gotten.Approvals[signerKey])

	err = repo.UpdateProposal(
		ctx, proposalID, func(p *domain.Proposal) (*domain.Proposal, error) {
			return nil, errSomethingWentWrong
		},
	)
	require.EqualError(t, errSomethingWentWrong, err.Error())

	err = repo.UpdateProposal(
		ctx, uuid.NewString(),
		func(p *domain.Proposal) (*domain.Proposal, error) {
			return p, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrProposalNotFound)
}

func newTestProposal(
	accountID string, kind domain.ProposalKind,
) *domain.Proposal {
	return domain.NewProposal(
		uuid.NewString(), accountID, kind,
		testutil.RandomHex(128), testutil.RandomHex(32),
	)
}
