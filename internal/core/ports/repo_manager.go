package ports

import (
	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type AccountEventHandler func(event domain.AccountEvent)
type ProposalEventHandler func(event domain.ProposalEvent)

// RepoManager is the abstraction for any kind of service intended to manage
// domain repositories implementations of the same concrete type.
type RepoManager interface {
	// AccountRepository returns the account policy repository.
	AccountRepository() domain.AccountRepository
	// ProposalRepository returns the proposal repository.
	ProposalRepository() domain.ProposalRepository
	// ChallengeRepository returns the challenge repository.
	ChallengeRepository() domain.ChallengeRepository

	// RegisterHandlerForAccountEvent registers an handler function, executed
	// whenever the given event type occurs.
	RegisterHandlerForAccountEvent(
		eventType domain.AccountEventType, handler AccountEventHandler,
	)
	// RegisterHandlerForProposalEvent registers an handler function, executed
	// whenever the given event type occurs.
	RegisterHandlerForProposalEvent(
		eventType domain.ProposalEventType, handler ProposalEventHandler,
	)

	// Reset brings all the repos to their initial state by deleting any
	// persisted data.
	Reset()

	// Close closes the connection with all concrete repositories
	// implementations.
	Close()
}
