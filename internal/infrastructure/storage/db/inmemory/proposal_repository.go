package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type proposalInmemoryStore struct {
	proposals map[string]*domain.Proposal
	lock      *sync.RWMutex
}

type proposalRepository struct {
	store            *proposalInmemoryStore
	chEvents         chan domain.ProposalEvent
	externalChEvents chan domain.ProposalEvent
	chLock           *sync.Mutex
}

func NewProposalRepository() domain.ProposalRepository {
	return newProposalRepository()
}

func newProposalRepository() *proposalRepository {
	return &proposalRepository{
		store: &proposalInmemoryStore{
			proposals: make(map[string]*domain.Proposal),
			lock:      &sync.RWMutex{},
		},
		chEvents:         make(chan domain.ProposalEvent),
		externalChEvents: make(chan domain.ProposalEvent),
		chLock:           &sync.Mutex{},
	}
}

func (r *proposalRepository) AddProposal(
	ctx context.Context, proposal *domain.Proposal,
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.proposals[proposal.ID]; ok {
		return fmt.Errorf("proposal %s already existing", proposal.ID)
	}
	r.store.proposals[proposal.ID] = proposal

	go r.publishEvent(domain.ProposalEvent{
		EventType: domain.ProposalCreated,
		Proposal:  proposal,
	})

	return nil
}

func (r *proposalRepository) GetProposal(
	ctx context.Context, id string,
) (*domain.Proposal, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getProposal(id)
}

func (r *proposalRepository) GetProposalsForAccount(
	ctx context.Context, accountID string,
) ([]*domain.Proposal, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	proposals := make([]*domain.Proposal, 0)
	for _, proposal := range r.store.proposals {
		if proposal.AccountID == accountID {
			proposals = append(proposals, proposal)
		}
	}
	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].CreatedAt.Before(proposals[j].CreatedAt)
	})
	return proposals, nil
}

// UpdateProposal runs updateFn under the store write-lock, which is the
// mutual exclusion scope that makes check-then-insert on the approvals set
// safe against concurrent approvers.
func (r *proposalRepository) UpdateProposal(
	ctx context.Context, id string,
	updateFn func(proposal *domain.Proposal) (*domain.Proposal, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	proposal, err := r.getProposal(id)
	if err != nil {
		return err
	}

	prevStatus := proposal.Status
	prevApprovals := proposal.CountApprovals()

	updatedProposal, err := updateFn(proposal)
	if err != nil {
		return err
	}
	r.store.proposals[id] = updatedProposal

	for _, event := range proposalEventsForChange(
		prevStatus, prevApprovals, updatedProposal,
	) {
		go r.publishEvent(event)
	}

	return nil
}

func (r *proposalRepository) GetEventChannel() chan domain.ProposalEvent {
	return r.externalChEvents
}

func (r *proposalRepository) getProposal(id string) (*domain.Proposal, error) {
	proposal, ok := r.store.proposals[id]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	return proposal, nil
}

func (r *proposalRepository) publishEvent(event domain.ProposalEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *proposalRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.proposals = make(map[string]*domain.Proposal)
}

func (r *proposalRepository) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}

// proposalEventsForChange diffs the proposal against its pre-update status
// and approval count and returns the events to publish.
func proposalEventsForChange(
	prevStatus domain.ProposalStatus, prevApprovals int,
	proposal *domain.Proposal,
) []domain.ProposalEvent {
	events := make([]domain.ProposalEvent, 0, 2)
	if proposal.CountApprovals() > prevApprovals {
		events = append(events, domain.ProposalEvent{
			EventType: domain.ProposalApprovalAdded,
			Proposal:  proposal,
		})
	}
	if proposal.Status != prevStatus {
		switch proposal.Status {
		case domain.ProposalApproved:
			events = append(events, domain.ProposalEvent{
				EventType: domain.ProposalThresholdReached,
				Proposal:  proposal,
			})
		case domain.ProposalRejected:
			events = append(events, domain.ProposalEvent{
				EventType: domain.ProposalRejectedEvent,
				Proposal:  proposal,
			})
		case domain.ProposalExecuted:
			events = append(events, domain.ProposalEvent{
				EventType: domain.ProposalExecutedEvent,
				Proposal:  proposal,
			})
		}
	}
	return events
}
