package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

var (
	errSomethingWentWrong = fmt.Errorf("something went wrong")
)

func TestAccountRepository(
	t *testing.T, ctx context.Context, repo domain.AccountRepository,
) {
	account := newTestAccountPolicy(t, 2)

	testAddAndGetAccount(t, ctx, repo, account)

	testUpdateAccount(t, ctx, repo, account.ID)

	time.Sleep(1 * time.Second) //wait for events
}

func testAddAndGetAccount(
	t *testing.T, ctx context.Context, repo domain.AccountRepository,
	account *domain.Account,
) {
	gotten, err := repo.GetAccount(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	require.Nil(t, gotten)

	err = repo.AddAccount(ctx, account)
	require.NoError(t, err)

	err = repo.AddAccount(ctx, account)
	require.Error(t, err)

	gotten, err = repo.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.ID, gotten.ID)
	require.Equal(t, account.AdminID, gotten.AdminID)
	require.Equal(t, account.OwnerKey, gotten.OwnerKey)
	require.Equal(t, account.Threshold, gotten.Threshold)
	require.Len(t, gotten.Signers, 1)
	require.True(t, gotten.HasSigner(account.OwnerKey))

	gotten, err = repo.GetAccountByOwnerKey(ctx, account.OwnerKey)
	require.NoError(t, err)
	require.Equal(t, account.ID, gotten.ID)

	gotten, err = repo.GetAccountByOwnerKey(
		ctx, keypair.MustRandom().Address(),
	)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	require.Nil(t, gotten)
}

func testUpdateAccount(
	t *testing.T, ctx context.Context, repo domain.AccountRepository,
	accountID string,
) {
	cosignerKey := keypair.MustRandom().Address()
	err := repo.UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			if err := a.AddSigner(a.AdminID, domain.Signer{
				PublicKey:  cosignerKey,
				Weight:     1,
				IdentityID: "identity-0",
			}); err != nil {
				return nil, err
			}
			return a, nil
		},
	)
	require.NoError(t, err)

	gotten, err := repo.GetAccount(ctx, accountID)
	require.NoError(t, err)
	require.True(t, gotten.HasSigner(cosignerKey))
	require.Equal(t, int32(2), gotten.TotalWeight)

	err = repo.UpdateAccount(
		ctx, accountID, func(a *domain.Account) (*domain.Account, error) {
			return nil, errSomethingWentWrong
		},
	)
	require.EqualError(t, errSomethingWentWrong, err.Error())

	err = repo.UpdateAccount(
		ctx, uuid.NewString(),
		func(a *domain.Account) (*domain.Account, error) {
			return a, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func newTestAccountPolicy(t *testing.T, threshold int32) *domain.Account {
	account, err := domain.NewAccount(
		uuid.NewString(), "admin", keypair.MustRandom().Address(), threshold,
	)
	require.NoError(t, err)
	return account
}
