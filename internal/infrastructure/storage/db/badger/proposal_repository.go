package dbbadger

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type proposalRepository struct {
	store            *badgerhold.Store
	chEvents         chan domain.ProposalEvent
	externalChEvents chan domain.ProposalEvent
	chLock           *sync.Mutex
	updateLock       *sync.Mutex

	log func(format string, a ...interface{})
}

func NewProposalRepository(store *badgerhold.Store) domain.ProposalRepository {
	return newProposalRepository(store)
}

func newProposalRepository(store *badgerhold.Store) *proposalRepository {
	chEvents := make(chan domain.ProposalEvent)
	externalChEvents := make(chan domain.ProposalEvent)
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("proposal repository: %s", format)
		log.Debugf(format, a...)
	}
	return &proposalRepository{
		store, chEvents, externalChEvents,
		&sync.Mutex{}, &sync.Mutex{}, logFn,
	}
}

func (r *proposalRepository) AddProposal(
	ctx context.Context, proposal *domain.Proposal,
) error {
	if err := r.store.Insert(proposal.ID, proposal); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("proposal %s already existing", proposal.ID)
		}
		return err
	}

	go r.publishEvent(domain.ProposalEvent{
		EventType: domain.ProposalCreated,
		Proposal:  proposal,
	})

	return nil
}

func (r *proposalRepository) GetProposal(
	ctx context.Context, id string,
) (*domain.Proposal, error) {
	return r.getProposal(id)
}

func (r *proposalRepository) GetProposalsForAccount(
	ctx context.Context, accountID string,
) ([]*domain.Proposal, error) {
	var proposals []domain.Proposal
	if err := r.store.Find(
		&proposals,
		badgerhold.Where("AccountID").Eq(accountID).SortBy("CreatedAt"),
	); err != nil {
		return nil, err
	}

	list := make([]*domain.Proposal, 0, len(proposals))
	for i := range proposals {
		proposal := proposals[i]
		list = append(list, &proposal)
	}
	return list, nil
}

// UpdateProposal serializes all updates to the store behind updateLock so
// that concurrent approvals of the same proposal cannot interleave their
// check-then-insert on the approvals set.
func (r *proposalRepository) UpdateProposal(
	ctx context.Context, id string,
	updateFn func(proposal *domain.Proposal) (*domain.Proposal, error),
) error {
	r.updateLock.Lock()
	defer r.updateLock.Unlock()

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

	if err := r.store.Update(id, *updatedProposal); err != nil {
		return err
	}

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
	var proposal domain.Proposal
	if err := r.store.Get(id, &proposal); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) publishEvent(event domain.ProposalEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.log("publish event %s", event.EventType)
	r.chEvents <- event

	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *proposalRepository) reset() {
	r.store.Badger().DropAll()
}

func (r *proposalRepository) close() {
	r.store.Close()
	close(r.chEvents)
	close(r.externalChEvents)
}

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
