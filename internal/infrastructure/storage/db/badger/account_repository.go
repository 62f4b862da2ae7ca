package dbbadger

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type accountRepository struct {
	store            *badgerhold.Store
	chEvents         chan domain.AccountEvent
	externalChEvents chan domain.AccountEvent
	chLock           *sync.Mutex
	updateLock       *sync.Mutex

	log func(format string, a ...interface{})
}

func NewAccountRepository(store *badgerhold.Store) domain.AccountRepository {
	return newAccountRepository(store)
}

func newAccountRepository(store *badgerhold.Store) *accountRepository {
	chEvents := make(chan domain.AccountEvent)
	externalChEvents := make(chan domain.AccountEvent)
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("account repository: %s", format)
		log.Debugf(format, a...)
	}
	return &accountRepository{
		store, chEvents, externalChEvents,
		&sync.Mutex{}, &sync.Mutex{}, logFn,
	}
}

func (r *accountRepository) AddAccount(
	ctx context.Context, account *domain.Account,
) error {
	if err := r.store.Insert(account.ID, account); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("account %s already existing", account.ID)
		}
		return err
	}

	go r.publishEvent(domain.AccountEvent{
		EventType: domain.AccountCreated,
		AccountID: account.ID,
	})

	return nil
}

func (r *accountRepository) GetAccount(
	ctx context.Context, id string,
) (*domain.Account, error) {
	return r.getAccount(id)
}

func (r *accountRepository) GetAccountByOwnerKey(
	ctx context.Context, ownerKey string,
) (*domain.Account, error) {
	var accounts []domain.Account
	if err := r.store.Find(
		&accounts, badgerhold.Where("OwnerKey").Eq(ownerKey),
	); err != nil {
		return nil, err
	}
	if len(accounts) <= 0 {
		return nil, domain.ErrAccountNotFound
	}
	return &accounts[0], nil
}

func (r *accountRepository) UpdateAccount(
	ctx context.Context, id string,
	updateFn func(account *domain.Account) (*domain.Account, error),
) error {
	r.updateLock.Lock()
	defer r.updateLock.Unlock()

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

	if err := r.store.Update(id, *updatedAccount); err != nil {
		return err
	}

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
	var account domain.Account
	if err := r.store.Get(id, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) publishEvent(event domain.AccountEvent) {
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

func (r *accountRepository) reset() {
	r.store.Badger().DropAll()
}

func (r *accountRepository) close() {
	r.store.Close()
	close(r.chEvents)
	close(r.externalChEvents)
}
