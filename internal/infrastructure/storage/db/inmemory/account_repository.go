package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type accountInmemoryStore struct {
	accounts map[string]*domain.Account
	lock     *sync.RWMutex
}

type accountRepository struct {
	store            *accountInmemoryStore
	chEvents         chan domain.AccountEvent
	externalChEvents chan domain.AccountEvent
	chLock           *sync.Mutex
}

func NewAccountRepository() domain.AccountRepository {
	return newAccountRepository()
}

func newAccountRepository() *accountRepository {
	return &accountRepository{
		store: &accountInmemoryStore{
			accounts: make(map[string]*domain.Account),
			lock:     &sync.RWMutex{},
		},
		chEvents:         make(chan domain.AccountEvent),
		externalChEvents: make(chan domain.AccountEvent),
		chLock:           &sync.Mutex{},
	}
}

func (r *accountRepository) AddAccount(
	ctx context.Context, account *domain.Account,
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.accounts[account.ID]; ok {
		return fmt.Errorf("account %s already existing", account.ID)
	}
	r.store.accounts[account.ID] = account

	go r.publishEvent(domain.AccountEvent{
		EventType: domain.AccountCreated,
		AccountID: account.ID,
	})

	return nil
}

func (r *accountRepository) GetAccount(
	ctx context.Context, id string,
) (*domain.Account, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getAccount(id)
}

func (r *accountRepository) GetAccountByOwnerKey(
	ctx context.Context, ownerKey string,
) (*domain.Account, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	for _, account := range r.store.accounts {
		if account.OwnerKey == ownerKey {
			return account, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *accountRepository) UpdateAccount(
	ctx context.Context, id string,
	updateFn func(account *domain.Account) (*domain.Account, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	account, err := r.getAccount(id)
	if err != nil {
		return err
	}

	prevSigners := make(map[string]struct{}, len(account.Signers))
	for key := range account.Signers {
		prevSigners[key] = struct{}{}
	}

	updatedAccount, err := updateFn(account)
	if err != nil {
		return err
	}
	r.store.accounts[id] = updatedAccount

	for key := range updatedAccount.Signers {
		if _, ok := prevSigners[key]; !ok {
			go r.publishEvent(domain.AccountEvent{
				EventType: domain.AccountSignerAdded,
				AccountID: id,
				SignerKey: key,
			})
		}
	}
	for key := range prevSigners {
		if _, ok := updatedAccount.Signers[key]; !ok {
			go r.publishEvent(domain.AccountEvent{
				EventType: domain.AccountSignerRemoved,
				AccountID: id,
				SignerKey: key,
			})
		}
	}

	return nil
}

func (r *accountRepository) GetEventChannel() chan domain.AccountEvent {
	return r.externalChEvents
}

func (r *accountRepository) getAccount(id string) (*domain.Account, error) {
	account, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (r *accountRepository) publishEvent(event domain.AccountEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *accountRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.accounts = make(map[string]*domain.Account)
}

func (r *accountRepository) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}
