package domain

import "context"

const (
	AccountCreated AccountEventType = iota
	AccountSignerAdded
	AccountSignerRemoved
	AccountThresholdChanged
)

var (
	accountTypeString = map[AccountEventType]string{
		AccountCreated:          "AccountCreated",
		AccountSignerAdded:      "AccountSignerAdded",
		AccountSignerRemoved:    "AccountSignerRemoved",
		AccountThresholdChanged: "AccountThresholdChanged",
	}
)

type AccountEventType int

func (t AccountEventType) String() string {
	return accountTypeString[t]
}

// AccountEvent holds info about an event occured within the repository.
type AccountEvent struct {
	EventType AccountEventType
	AccountID string
	SignerKey string
}

// AccountRepository is the abstraction for any kind of database intended to
// persist account policies.
type AccountRepository interface {
	// AddAccount stores a new account policy by preventing duplicates.
	// Generates an AccountCreated event if successful.
	AddAccount(ctx context.Context, account *Account) error
	// GetAccount returns the account identified by the given id.
	GetAccount(ctx context.Context, id string) (*Account, error)
	// GetAccountByOwnerKey returns the account whose policy guards the given
	// owner public key.
	GetAccountByOwnerKey(ctx context.Context, ownerKey string) (*Account, error)
	// UpdateAccount allows to commit multiple changes to the same account in
	// a transactional way.
	// Generates AccountSignerAdded/AccountSignerRemoved events for signer
	// set changes if successful.
	UpdateAccount(
		ctx context.Context, id string,
		updateFn func(account *Account) (*Account, error),
	) error
	// GetEventChannel returns the channel of AccountEvents.
	GetEventChannel() chan AccountEvent
}
