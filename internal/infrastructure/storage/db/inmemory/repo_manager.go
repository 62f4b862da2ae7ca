package inmemory

import (
	"sync"
	"time"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
)

type repoManager struct {
	accountRepository   *accountRepository
	proposalRepository  *proposalRepository
	challengeRepository *challengeRepository

	accountEventHandlers  *handlerMap
	proposalEventHandlers *handlerMap
}

// NewRepoManager returns a volatile implementation of ports.RepoManager with
// all repositories kept in memory. Meant for testing and throwaway setups.
func NewRepoManager() ports.RepoManager {
	accountRepo := newAccountRepository()
	proposalRepo := newProposalRepository()
	challengeRepo := newChallengeRepository()

	rm := &repoManager{
		accountRepository:     accountRepo,
		proposalRepository:    proposalRepo,
		challengeRepository:   challengeRepo,
		accountEventHandlers:  newHandlerMap(),
		proposalEventHandlers: newHandlerMap(),
	}

	go rm.listenToAccountEvents()
	go rm.listenToProposalEvents()

	return rm
}

func (rm *repoManager) AccountRepository() domain.AccountRepository {
	return rm.accountRepository
}

func (rm *repoManager) ProposalRepository() domain.ProposalRepository {
	return rm.proposalRepository
}

func (rm *repoManager) ChallengeRepository() domain.ChallengeRepository {
	return rm.challengeRepository
}

func (rm *repoManager) RegisterHandlerForAccountEvent(
	eventType domain.AccountEventType, handler ports.AccountEventHandler,
) {
	rm.accountEventHandlers.add(int(eventType), handler)
}

func (rm *repoManager) RegisterHandlerForProposalEvent(
	eventType domain.ProposalEventType, handler ports.ProposalEventHandler,
) {
	rm.proposalEventHandlers.add(int(eventType), handler)
}

func (rm *repoManager) Reset() {
	rm.accountRepository.reset()
	rm.proposalRepository.reset()
	rm.challengeRepository.reset()
}

func (rm *repoManager) Close() {
	rm.accountRepository.close()
	rm.proposalRepository.close()
}

func (rm *repoManager) listenToAccountEvents() {
	for event := range rm.accountRepository.chEvents {
		time.Sleep(time.Millisecond)

		if handlers, ok := rm.accountEventHandlers.get(int(event.EventType)); ok {
			for i := range handlers {
				handler := handlers[i]
				go handler.(ports.AccountEventHandler)(event)
			}
		}
	}
}

func (rm *repoManager) listenToProposalEvents() {
	for event := range rm.proposalRepository.chEvents {
		time.Sleep(time.Millisecond)

		if handlers, ok := rm.proposalEventHandlers.get(int(event.EventType)); ok {
			for i := range handlers {
				handler := handlers[i]
				go handler.(ports.ProposalEventHandler)(event)
			}
		}
	}
}

// handlerMap is a util type to prevent race conditions when registering
// event handlers while listening to events from the repositories.
type handlerMap struct {
	handlersByEventType map[int][]interface{}
	lock                *sync.Mutex
}

func newHandlerMap() *handlerMap {
	return &handlerMap{
		handlersByEventType: make(map[int][]interface{}),
		lock:                &sync.Mutex{},
	}
}

func (m *handlerMap) add(key int, handler interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.handlersByEventType[key] = append(m.handlersByEventType[key], handler)
}

func (m *handlerMap) get(key int) ([]interface{}, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	handlers, ok := m.handlersByEventType[key]
	return handlers, ok
}
