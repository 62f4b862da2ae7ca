package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
	"github.com/lumenvault/lumenvault/pkg/stellartx"
)

var (
	ErrSourceAccountNotFound = fmt.Errorf(
		"source account not found on the ledger, it must be funded first",
	)
	ErrSignerNotAuthorized = fmt.Errorf("signer not authorized for the account")
	ErrIdentityMismatch    = fmt.Errorf(
		"caller identity does not match the signer's linked identity",
	)
	ErrEnvelopeMismatch = fmt.Errorf(
		"submitted envelope does not match the proposal's envelope",
	)
	ErrInvalidSignature = fmt.Errorf(
		"envelope carries no valid signature from the signer key",
	)
)

// ProposalService is responsible for the proposal lifecycle up to the
// execution step:
//   - Build the unsigned envelope for a native-asset payment and record it
//     as a pending payment proposal.
//   - Build the unsigned envelope staging an account's signer set and
//     thresholds on-chain and record it as a pending reconfiguration
//     proposal.
//   - Collect detached signatures from authorized signers, verifying each
//     against the proposal's envelope hash, until the account's threshold
//     of distinct approvals is reached.
//   - Reject a pending proposal.
//
// Approvals are serialized per proposal by the repository's transactional
// update, so concurrent submissions can never double-count a signer nor
// miss the threshold transition.
type ProposalService struct {
	repoManager       ports.RepoManager
	ledger            ports.LedgerService
	networkPassphrase string
	baseFee           int64
	txTimeout         time.Duration

	log func(format string, a ...interface{})
}

func NewProposalService(
	repoManager ports.RepoManager, ledger ports.LedgerService,
	networkPassphrase string, baseFee int64, txTimeout time.Duration,
) *ProposalService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("proposal service: %s", format)
		log.Debugf(format, a...)
	}
	svc := &ProposalService{
		repoManager, ledger, networkPassphrase, baseFee, txTimeout, logFn,
	}
	svc.registerHandlerForProposalEvents()
	return svc
}

// BuildPayment creates a pending payment proposal for the given account:
// one native-asset payment from the account's owner key, built on the
// current on-chain sequence. The memo, if any, is silently truncated to the
// network's 28-byte limit.
func (s *ProposalService) BuildPayment(
	ctx context.Context, accountID, destination, amount, memo string,
) (*domain.Proposal, error) {
	account, err := s.repoManager.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if _, err := keypair.ParseAddress(destination); err != nil {
		return nil, ErrInvalidKey
	}
	amt, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	state, err := s.loadAccountState(ctx, account.OwnerKey)
	if err != nil {
		return nil, err
	}

	params := txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: account.OwnerKey,
			Sequence:  state.Sequence,
		},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: destination,
				Amount:      amt,
				Asset:       txnbuild.NativeAsset{},
			},
		},
		BaseFee: s.baseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(s.txTimeout.Seconds())),
		},
	}
	if len(memo) > 0 {
		params.Memo = txnbuild.MemoText(TruncateMemo(memo))
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment envelope: %s", err)
	}

	return s.addProposal(ctx, account.ID, domain.ProposalPayment, tx)
}

// BuildReconfiguration creates a pending reconfiguration proposal staging
// the account's policy on-chain. The envelope contains, in strict order,
// one operation per non-owner signer granting its configured weight,
// followed by exactly one operation setting the owner's master weight and
// all thresholds. The thresholds must come last: an intermediate state
// could otherwise lock the account before all signers are registered.
func (s *ProposalService) BuildReconfiguration(
	ctx context.Context, accountID string,
) (*domain.Proposal, error) {
	account, err := s.repoManager.AccountRepository().GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadAccountState(ctx, account.OwnerKey)
	if err != nil {
		return nil, err
	}

	ops := make([]txnbuild.Operation, 0, len(account.Signers))
	for _, signer := range account.CosignerEntries() {
		ops = append(ops, &txnbuild.SetOptions{
			Signer: &txnbuild.Signer{
				Address: signer.PublicKey,
				Weight:  txnbuild.Threshold(signer.Weight),
			},
		})
	}
	threshold := txnbuild.Threshold(account.Threshold)
	ops = append(ops, &txnbuild.SetOptions{
		MasterWeight:    txnbuild.NewThreshold(txnbuild.Threshold(account.OwnerWeight())),
		LowThreshold:    txnbuild.NewThreshold(threshold),
		MediumThreshold: txnbuild.NewThreshold(threshold),
		HighThreshold:   txnbuild.NewThreshold(threshold),
	})

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: account.OwnerKey,
			Sequence:  state.Sequence,
		},
		IncrementSequenceNum: true,
		Operations:           ops,
		BaseFee:              s.baseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(s.txTimeout.Seconds())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf(
			"failed to build reconfiguration envelope: %s", err,
		)
	}

	return s.addProposal(ctx, account.ID, domain.ProposalReconfigure, tx)
}

// GetProposal returns the proposal identified by the given id.
func (s *ProposalService) GetProposal(
	ctx context.Context, proposalID string,
) (*domain.Proposal, error) {
	return s.repoManager.ProposalRepository().GetProposal(ctx, proposalID)
}

// ListProposals returns all proposals owned by the given account.
func (s *ProposalService) ListProposals(
	ctx context.Context, accountID string,
) ([]*domain.Proposal, error) {
	return s.repoManager.ProposalRepository().GetProposalsForAccount(
		ctx, accountID,
	)
}

// Approve verifies and records the detached signature of an authorized
// signer extracted from the counter-signed envelope. The submitted envelope
// must hash to the proposal's stored commitment: a signer cannot smuggle in
// a different transaction. Once the count of distinct approvals reaches the
// account's threshold the proposal becomes approved.
func (s *ProposalService) Approve(
	ctx context.Context, proposalID, signerKey, envelopeXDR, callerID string,
) error {
	proposalRepo := s.repoManager.ProposalRepository()
	proposal, err := proposalRepo.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	if proposal.IsFinalized() {
		return domain.ErrProposalAlreadyFinalized
	}

	account, err := s.repoManager.AccountRepository().GetAccount(
		ctx, proposal.AccountID,
	)
	if err != nil {
		return err
	}
	signer, ok := account.GetSigner(signerKey)
	if !ok {
		return ErrSignerNotAuthorized
	}
	if err := checkIdentity(account, signer, callerID); err != nil {
		return err
	}

	tx, err := stellartx.ParseEnvelope(envelopeXDR)
	if err != nil {
		return ErrMalformedEnvelope
	}
	hash, err := tx.HashHex(s.networkPassphrase)
	if err != nil {
		return fmt.Errorf("failed to hash submitted envelope: %s", err)
	}
	if hash != proposal.EnvelopeHash {
		return ErrEnvelopeMismatch
	}

	signature, err := stellartx.FindSignature(
		tx, s.networkPassphrase, signerKey,
	)
	if err != nil {
		return ErrInvalidSignature
	}

	// The finalized/duplicate checks re-run inside the transactional update:
	// the read above was only a fast path and may be stale by now.
	if err := proposalRepo.UpdateProposal(
		ctx, proposalID, func(p *domain.Proposal) (*domain.Proposal, error) {
			if err := p.AddApproval(
				signerKey, signature, account.Threshold,
			); err != nil {
				return nil, err
			}
			return p, nil
		},
	); err != nil {
		return err
	}

	s.log("recorded approval from %s for proposal %s", signerKey, proposalID)
	return nil
}

// Reject finalizes a pending proposal. Any authorized signer's identity or
// the account administrator may reject.
func (s *ProposalService) Reject(
	ctx context.Context, proposalID, callerID string,
) error {
	proposalRepo := s.repoManager.ProposalRepository()
	proposal, err := proposalRepo.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}

	account, err := s.repoManager.AccountRepository().GetAccount(
		ctx, proposal.AccountID,
	)
	if err != nil {
		return err
	}
	if !canReject(account, callerID) {
		return ErrSignerNotAuthorized
	}

	if err := proposalRepo.UpdateProposal(
		ctx, proposalID, func(p *domain.Proposal) (*domain.Proposal, error) {
			if err := p.Reject(); err != nil {
				return nil, err
			}
			return p, nil
		},
	); err != nil {
		return err
	}

	s.log("proposal %s rejected by %s", proposalID, callerID)
	return nil
}

func (s *ProposalService) addProposal(
	ctx context.Context, accountID string, kind domain.ProposalKind,
	tx *txnbuild.Transaction,
) (*domain.Proposal, error) {
	envelopeXDR, err := tx.Base64()
	if err != nil {
		return nil, err
	}
	hash, err := tx.HashHex(s.networkPassphrase)
	if err != nil {
		return nil, err
	}

	proposal := domain.NewProposal(
		uuid.NewString(), accountID, kind, envelopeXDR, hash,
	)
	if err := s.repoManager.ProposalRepository().AddProposal(
		ctx, proposal,
	); err != nil {
		return nil, err
	}
	return proposal, nil
}

func (s *ProposalService) loadAccountState(
	ctx context.Context, ownerKey string,
) (*ports.AccountState, error) {
	state, err := s.ledger.GetAccount(ctx, ownerKey)
	if err != nil {
		if err == ports.ErrAccountNotFound {
			return nil, ErrSourceAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account state: %s", err)
	}
	return state, nil
}

func (s *ProposalService) registerHandlerForProposalEvents() {
	s.repoManager.RegisterHandlerForProposalEvent(
		domain.ProposalThresholdReached, func(event domain.ProposalEvent) {
			s.log(
				"proposal %s reached approval threshold", event.Proposal.ID,
			)
		},
	)
}

// checkIdentity enforces that the caller's verified identity corresponds to
// the signer's linked identity. The administrator may act on behalf of a
// signer entry with no linked identity.
func checkIdentity(
	account *domain.Account, signer domain.Signer, callerID string,
) error {
	if len(signer.IdentityID) > 0 {
		if callerID != signer.IdentityID {
			return ErrIdentityMismatch
		}
		return nil
	}
	if callerID != account.AdminID {
		return ErrIdentityMismatch
	}
	return nil
}

func canReject(account *domain.Account, callerID string) bool {
	if callerID == account.AdminID {
		return true
	}
	for _, signer := range account.Signers {
		if len(signer.IdentityID) > 0 && signer.IdentityID == callerID {
			return true
		}
	}
	return false
}
