package domain

import "context"

const (
	ProposalCreated ProposalEventType = iota
	ProposalApprovalAdded
	ProposalThresholdReached
	ProposalRejectedEvent
	ProposalExecutedEvent
)

var (
	proposalTypeString = map[ProposalEventType]string{
		ProposalCreated:          "ProposalCreated",
		ProposalApprovalAdded:    "ProposalApprovalAdded",
		ProposalThresholdReached: "ProposalThresholdReached",
		ProposalRejectedEvent:    "ProposalRejected",
		ProposalExecutedEvent:    "ProposalExecuted",
	}
)

type ProposalEventType int

func (t ProposalEventType) String() string {
	return proposalTypeString[t]
}

// ProposalEvent holds info about an event occured within the repository.
type ProposalEvent struct {
	EventType ProposalEventType
	Proposal  *Proposal
}

// ProposalRepository is the abstraction for any kind of database intended
// to persist proposals.
//
// UpdateProposal is the per-proposal mutual exclusion scope required by the
// approval flow: implementations must guarantee that the updateFn of two
// concurrent calls for the same proposal never interleaves, so that a
// check-then-insert on the approvals set cannot race.
type ProposalRepository interface {
	// AddProposal stores a new proposal by preventing duplicates.
	// Generates a ProposalCreated event if successful.
	AddProposal(ctx context.Context, proposal *Proposal) error
	// GetProposal returns the proposal identified by the given id.
	GetProposal(ctx context.Context, id string) (*Proposal, error)
	// GetProposalsForAccount returns all proposals owned by the given
	// account.
	GetProposalsForAccount(
		ctx context.Context, accountID string,
	) ([]*Proposal, error)
	// UpdateProposal allows to commit multiple changes to the same proposal
	// in a transactional way.
	// Generates ProposalApprovalAdded/ProposalThresholdReached/
	// ProposalRejected/ProposalExecuted events for the resulting state
	// changes if successful.
	UpdateProposal(
		ctx context.Context, id string,
		updateFn func(proposal *Proposal) (*Proposal, error),
	) error
	// GetEventChannel returns the channel of ProposalEvents.
	GetEventChannel() chan ProposalEvent
}
