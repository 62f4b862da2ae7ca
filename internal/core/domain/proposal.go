package domain

import (
	"fmt"
	"time"
)

const (
	ProposalPayment ProposalKind = iota
	ProposalReconfigure
)

const (
	ProposalPending ProposalStatus = iota
	ProposalApproved
	ProposalRejected
	ProposalExecuted
)

var (
	ErrProposalNotFound         = fmt.Errorf("proposal not found")
	ErrProposalAlreadyFinalized = fmt.Errorf("proposal already finalized")
	ErrDuplicateApproval        = fmt.Errorf("signer already approved the proposal")

	proposalKindString = map[ProposalKind]string{
		ProposalPayment:     "payment",
		ProposalReconfigure: "reconfigure",
	}
	proposalStatusString = map[ProposalStatus]string{
		ProposalPending:  "pending",
		ProposalApproved: "approved",
		ProposalRejected: "rejected",
		ProposalExecuted: "executed",
	}
)

type ProposalKind int

func (k ProposalKind) String() string {
	return proposalKindString[k]
}

type ProposalStatus int

func (s ProposalStatus) String() string {
	return proposalStatusString[s]
}

// Proposal is a pending or resolved authorization request: the unsigned
// envelope it commits to, and the detached signatures collected so far from
// distinct authorized signers, keyed by signer public key so that no signer
// can ever be counted twice.
type Proposal struct {
	ID           string
	AccountID    string
	Kind         ProposalKind
	EnvelopeXDR  string
	EnvelopeHash string
	Approvals    map[string][]byte
	Status       ProposalStatus
	CreatedAt    time.Time
	ExecutedAt   *time.Time
	ResultTxHash string
}

// NewProposal returns a new pending Proposal with no approvals. The envelope
// and its network-scoped hash are immutable from now on: the hash is the
// binding commitment every approval is verified against.
func NewProposal(
	id, accountID string, kind ProposalKind, envelopeXDR, envelopeHash string,
) *Proposal {
	return &Proposal{
		ID:           id,
		AccountID:    accountID,
		Kind:         kind,
		EnvelopeXDR:  envelopeXDR,
		EnvelopeHash: envelopeHash,
		Approvals:    make(map[string][]byte),
		Status:       ProposalPending,
		CreatedAt:    time.Now(),
	}
}

// IsFinalized returns whether the proposal reached a terminal status. No
// transition leaves a finalized proposal.
func (p *Proposal) IsFinalized() bool {
	return p.Status == ProposalRejected || p.Status == ProposalExecuted
}

// HasApproval returns whether the given signer already has a recorded
// approval.
func (p *Proposal) HasApproval(signerKey string) bool {
	_, ok := p.Approvals[signerKey]
	return ok
}

// CountApprovals returns the number of distinct recorded approvals.
func (p *Proposal) CountApprovals() int {
	return len(p.Approvals)
}

// AddApproval records the detached signature of the given signer and flips
// the status to approved once the count of distinct approvals reaches the
// threshold. The caller must have verified the signature against the
// proposal's envelope hash beforehand.
func (p *Proposal) AddApproval(
	signerKey string, signature []byte, threshold int32,
) error {
	if p.IsFinalized() {
		return ErrProposalAlreadyFinalized
	}
	if p.HasApproval(signerKey) {
		return ErrDuplicateApproval
	}

	if p.Approvals == nil {
		p.Approvals = make(map[string][]byte)
	}
	p.Approvals[signerKey] = signature

	if int32(len(p.Approvals)) >= threshold {
		p.Status = ProposalApproved
	}
	return nil
}

// Reject finalizes the proposal on its alternate terminal path. Permitted
// only while pending.
func (p *Proposal) Reject() error {
	if p.Status != ProposalPending {
		return ErrProposalAlreadyFinalized
	}

	p.Status = ProposalRejected
	return nil
}

// IsExecutable returns whether the proposal can be submitted to the
// network. Reconfiguration proposals are executable while still pending
// because the network trusts the owner's signature as sole authority until
// the reconfiguration takes effect.
func (p *Proposal) IsExecutable() bool {
	switch p.Status {
	case ProposalApproved:
		return true
	case ProposalPending:
		return p.Kind == ProposalReconfigure
	default:
		return false
	}
}

// MarkExecuted finalizes the proposal after a successful broadcast,
// recording the network transaction hash and the execution time.
func (p *Proposal) MarkExecuted(txHash string, at time.Time) error {
	if p.IsFinalized() {
		return ErrProposalAlreadyFinalized
	}

	p.Status = ProposalExecuted
	p.ExecutedAt = &at
	p.ResultTxHash = txHash
	return nil
}
