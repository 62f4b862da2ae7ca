package postgresdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

const (
	//uniqueViolation is a postgres error code for unique constraint violation
	uniqueViolation = "23505"
)

type accountRepositoryPg struct {
	pgxPool          *pgxpool.Pool
	chLock           *sync.Mutex
	chEvents         chan domain.AccountEvent
	externalChEvents chan domain.AccountEvent
}

func NewAccountRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.AccountRepository {
	return &accountRepositoryPg{
		pgxPool:          pgxPool,
		chLock:           &sync.Mutex{},
		chEvents:         make(chan domain.AccountEvent),
		externalChEvents: make(chan domain.AccountEvent),
	}
}

func (r *accountRepositoryPg) AddAccount(
	ctx context.Context, account *domain.Account,
) error {
	tx, err := r.pgxPool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx,
		"INSERT INTO account (id, admin_id, owner_key, threshold, total_weight) "+
			"VALUES ($1, $2, $3, $4, $5)",
		account.ID, account.AdminID, account.OwnerKey,
		account.Threshold, account.TotalWeight,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s already existing", account.ID)
		}
		return err
	}

	if err := insertSigners(ctx, tx, account.ID, account.Signers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	go r.publishEvent(domain.AccountEvent{
		EventType: domain.AccountCreated,
		AccountID: account.ID,
	})

	return nil
}

func (r *accountRepositoryPg) GetAccount(
	ctx context.Context, id string,
) (*domain.Account, error) {
	return r.getAccount(ctx, r.pgxPool, "id", id)
}

func (r *accountRepositoryPg) GetAccountByOwnerKey(
	ctx context.Context, ownerKey string,
) (*domain.Account, error) {
	return r.getAccount(ctx, r.pgxPool, "owner_key", ownerKey)
}

// UpdateAccount runs updateFn against the account row locked with
// SELECT ... FOR UPDATE, so that concurrent updates to the same account are
// serialized by the database.
func (r *accountRepositoryPg) UpdateAccount(
	ctx context.Context, id string,
	updateFn func(account *domain.Account) (*domain.Account, error),
) error {
	tx, err := r.pgxPool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	account, err := r.getAccountForUpdate(ctx, tx, id)
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

	if _, err := tx.Exec(
		ctx,
		"UPDATE account SET threshold = $1, total_weight = $2 WHERE id = $3",
		updatedAccount.Threshold, updatedAccount.TotalWeight, id,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		ctx, "DELETE FROM account_signer WHERE fk_account_id = $1", id,
	); err != nil {
		return err
	}
	if err := insertSigners(ctx, tx, id, updatedAccount.Signers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
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

func (r *accountRepositoryPg) GetEventChannel() chan domain.AccountEvent {
	return r.externalChEvents
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *accountRepositoryPg) getAccount(
	ctx context.Context, querier rowQuerier, column, value string,
) (*domain.Account, error) {
	var account domain.Account
	if err := querier.QueryRow(
		ctx,
		"SELECT id, admin_id, owner_key, threshold, total_weight "+
			"FROM account WHERE "+column+" = $1",
		value,
	).Scan(
		&account.ID, &account.AdminID, &account.OwnerKey,
		&account.Threshold, &account.TotalWeight,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	signers, err := getSigners(ctx, querier, account.ID)
	if err != nil {
		return nil, err
	}
	account.Signers = signers

	return &account, nil
}

func (r *accountRepositoryPg) getAccountForUpdate(
	ctx context.Context, tx pgx.Tx, id string,
) (*domain.Account, error) {
	var account domain.Account
	if err := tx.QueryRow(
		ctx,
		"SELECT id, admin_id, owner_key, threshold, total_weight "+
			"FROM account WHERE id = $1 FOR UPDATE",
		id,
	).Scan(
		&account.ID, &account.AdminID, &account.OwnerKey,
		&account.Threshold, &account.TotalWeight,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	signers, err := getSigners(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	account.Signers = signers

	return &account, nil
}

func getSigners(
	ctx context.Context, querier rowQuerier, accountID string,
) (map[string]domain.Signer, error) {
	rows, err := querier.Query(
		ctx,
		"SELECT public_key, weight, identity_id FROM account_signer "+
			"WHERE fk_account_id = $1",
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signers := make(map[string]domain.Signer)
	for rows.Next() {
		var signer domain.Signer
		if err := rows.Scan(
			&signer.PublicKey, &signer.Weight, &signer.IdentityID,
		); err != nil {
			return nil, err
		}
		signers[signer.PublicKey] = signer
	}
	return signers, rows.Err()
}

func insertSigners(
	ctx context.Context, tx pgx.Tx, accountID string,
	signers map[string]domain.Signer,
) error {
	for _, signer := range signers {
		if _, err := tx.Exec(
			ctx,
			"INSERT INTO account_signer "+
				"(public_key, weight, identity_id, fk_account_id) "+
				"VALUES ($1, $2, $3, $4)",
			signer.PublicKey, signer.Weight, signer.IdentityID, accountID,
		); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pgconn.PgError)
	return ok && pqErr != nil && pqErr.Code == uniqueViolation
}

func (r *accountRepositoryPg) publishEvent(event domain.AccountEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *accountRepositoryPg) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}
