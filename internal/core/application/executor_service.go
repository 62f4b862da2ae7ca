package application

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stellar/go/xdr"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
	"github.com/lumenvault/lumenvault/pkg/stellartx"
)

var (
	ErrProposalNotExecutable = fmt.Errorf("proposal is not executable")
	ErrInsufficientApprovals = fmt.Errorf(
		"proposal has not collected enough approvals",
	)
)

// ExecutorService reconciles an executable proposal against the live ledger
// state and broadcasts it:
//   - Fetch the current on-chain signer set of the source account, which
//     can differ from the stored policy if a reconfiguration already
//     partially executed.
//   - Keep only the accumulated signatures the network will currently
//     accept, dropping the rest silently: a single stale signature would
//     abort the whole submission as extra/invalid.
//   - Merge the surviving signatures into the base envelope and submit.
//
// A network rejection is surfaced verbatim and leaves the proposal
// untouched, so execution can be retried later without re-collecting
// signatures.
type ExecutorService struct {
	repoManager       ports.RepoManager
	ledger            ports.LedgerService
	networkPassphrase string

	log func(format string, a ...interface{})
}

func NewExecutorService(
	repoManager ports.RepoManager, ledger ports.LedgerService,
	networkPassphrase string,
) *ExecutorService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("executor service: %s", format)
		log.Debugf(format, a...)
	}
	svc := &ExecutorService{repoManager, ledger, networkPassphrase, logFn}
	svc.registerHandlerForProposalEvents()
	return svc
}

// Execute submits the given proposal to the network and returns the
// network transaction hash. Reconfiguration proposals are executable while
// still pending since they only need the owner's signature, which the
// network already trusts as sole authority before the reconfiguration
// takes effect.
func (s *ExecutorService) Execute(
	ctx context.Context, proposalID string,
) (string, error) {
	proposal, err := s.repoManager.ProposalRepository().GetProposal(
		ctx, proposalID,
	)
	if err != nil {
		return "", err
	}
	if !proposal.IsExecutable() {
		return "", ErrProposalNotExecutable
	}

	account, err := s.repoManager.AccountRepository().GetAccount(
		ctx, proposal.AccountID,
	)
	if err != nil {
		return "", err
	}
	if proposal.Kind != domain.ProposalReconfigure &&
		proposal.CountApprovals() < int(account.Threshold) {
		return "", ErrInsufficientApprovals
	}

	state, err := s.ledger.GetAccount(ctx, account.OwnerKey)
	if err != nil {
		if err == ports.ErrAccountNotFound {
			return "", ErrSourceAccountNotFound
		}
		return "", fmt.Errorf("failed to load account state: %s", err)
	}

	signedXDR, err := s.mergeSignatures(proposal, state.SignerKeys())
	if err != nil {
		return "", err
	}

	res, err := s.ledger.SubmitEnvelope(ctx, signedXDR)
	if err != nil {
		// Structured rejections and unclassified failures alike are
		// surfaced to the caller; the proposal stays in its prior state.
		return "", err
	}

	executedAt := time.Now()
	if err := s.repoManager.ProposalRepository().UpdateProposal(
		ctx, proposalID, func(p *domain.Proposal) (*domain.Proposal, error) {
			if err := p.MarkExecuted(res.TxHash, executedAt); err != nil {
				return nil, err
			}
			return p, nil
		},
	); err != nil {
		return "", err
	}

	s.log("proposal %s executed, tx %s", proposalID, res.TxHash)
	return res.TxHash, nil
}

// mergeSignatures filters the proposal's accumulated signatures down to
// those some current on-chain signer can have produced, and attaches them
// to the base envelope, skipping exact duplicates already present.
func (s *ExecutorService) mergeSignatures(
	proposal *domain.Proposal, onChainSigners []string,
) (string, error) {
	tx, err := stellartx.ParseEnvelope(proposal.EnvelopeXDR)
	if err != nil {
		return "", err
	}

	signerKeys := make([]string, 0, len(proposal.Approvals))
	for signerKey := range proposal.Approvals {
		signerKeys = append(signerKeys, signerKey)
	}
	sort.Strings(signerKeys)

	for _, signerKey := range signerKeys {
		signature := proposal.Approvals[signerKey]

		hint, err := stellartx.SignatureHint(signerKey)
		if err != nil {
			continue
		}
		if !stellartx.MatchesAnySigner(hint, onChainSigners) {
			s.log(
				"dropping signature from %s: no longer an on-chain signer",
				signerKey,
			)
			continue
		}
		if hasSignature(tx.Signatures(), signature) {
			continue
		}

		decorated, err := stellartx.DecorateSignature(signerKey, signature)
		if err != nil {
			continue
		}
		tx, err = tx.AddSignatureDecorated(decorated)
		if err != nil {
			return "", fmt.Errorf("failed to attach signature: %s", err)
		}
	}

	return tx.Base64()
}

func (s *ExecutorService) registerHandlerForProposalEvents() {
	s.repoManager.RegisterHandlerForProposalEvent(
		domain.ProposalExecutedEvent, func(event domain.ProposalEvent) {
			s.log(
				"proposal %s finalized with tx %s",
				event.Proposal.ID, event.Proposal.ResultTxHash,
			)
		},
	)
}

func hasSignature(existing []xdr.DecoratedSignature, signature []byte) bool {
	for _, sig := range existing {
		if bytes.Equal(sig.Signature, signature) {
			return true
		}
	}
	return false
}
