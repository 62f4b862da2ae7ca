package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
)

// AccountService is responsible for the administration of account policies:
//   - Create a policy for a ledger account owned by an administrator
//     identity.
//   - Add or remove authorized signers and change the approval threshold,
//     all gated to the administrator.
//   - Read balances and payment history of the underlying ledger account.
//
// Policy changes only alter the stored policy; staging them on-chain is the
// job of a reconfiguration proposal.
type AccountService struct {
	repoManager ports.RepoManager
	ledger      ports.LedgerService

	log func(format string, a ...interface{})
}

func NewAccountService(
	repoManager ports.RepoManager, ledger ports.LedgerService,
) *AccountService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("account service: %s", format)
		log.Debugf(format, a...)
	}
	svc := &AccountService{repoManager, ledger, logFn}
	svc.registerHandlerForAccountEvents()
	return svc
}

// CreateAccount stores a new account policy for the given owner key, owned
// by the given administrator identity.
func (s *AccountService) CreateAccount(
	ctx context.Context, adminID, ownerKey string, threshold int32,
) (*domain.Account, error) {
	account, err := domain.NewAccount(
		uuid.NewString(), adminID, ownerKey, threshold,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repoManager.AccountRepository().AddAccount(
		ctx, account,
	); err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount safely returns the account identified by the given id.
func (s *AccountService) GetAccount(
	ctx context.Context, accountID string,
) (*domain.Account, error) {
	return s.repoManager.AccountRepository().GetAccount(ctx, accountID)
}

// AddSigner adds a signer entry to the account policy. Gated to the
// account administrator.
func (s *AccountService) AddSigner(
	ctx context.Context, accountID, callerID string, signer domain.Signer,
) error {
	return s.repoManager.AccountRepository().UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			if err := a.AddSigner(callerID, signer); err != nil {
				return nil, err
			}
			return a, nil
		},
	)
}

// RemoveSigner removes a signer entry from the account policy. Gated to
// the account administrator.
func (s *AccountService) RemoveSigner(
	ctx context.Context, accountID, callerID, publicKey string,
) error {
	return s.repoManager.AccountRepository().UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			if err := a.RemoveSigner(callerID, publicKey); err != nil {
				return nil, err
			}
			return a, nil
		},
	)
}

// SetThreshold changes the number of approvals required to authorize the
// account's proposals. Gated to the account administrator.
func (s *AccountService) SetThreshold(
	ctx context.Context, accountID, callerID string, threshold int32,
) error {
	return s.repoManager.AccountRepository().UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			if err := a.SetThreshold(callerID, threshold); err != nil {
				return nil, err
			}
			return a, nil
		},
	)
}

// Balances returns the current on-chain balances of the account's owner
// key.
func (s *AccountService) Balances(
	ctx context.Context, accountID string,
) ([]ports.Balance, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	state, err := s.ledger.GetAccount(ctx, account.OwnerKey)
	if err != nil {
		if err == ports.ErrAccountNotFound {
			return nil, ErrSourceAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account state: %s", err)
	}
	return state.Balances, nil
}

// PaymentHistory returns the payments involving the account's owner key,
// most recent first.
func (s *AccountService) PaymentHistory(
	ctx context.Context, accountID string,
) ([]ports.Payment, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.ledger.GetPaymentHistory(ctx, account.OwnerKey)
}

func (s *AccountService) registerHandlerForAccountEvents() {
	s.repoManager.RegisterHandlerForAccountEvent(
		domain.AccountSignerAdded, func(event domain.AccountEvent) {
			s.log(
				"signer %s added to account %s",
				event.SignerKey, event.AccountID,
			)
		},
	)
	s.repoManager.RegisterHandlerForAccountEvent(
		domain.AccountSignerRemoved, func(event domain.AccountEvent) {
			s.log(
				"signer %s removed from account %s",
				event.SignerKey, event.AccountID,
			)
		},
	)
}
