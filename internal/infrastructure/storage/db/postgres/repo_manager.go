package postgresdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"

	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	postgresDriver             = "pgx"
	insecureDataSourceTemplate = "postgresql://%s:%s@%s:%d/%s?sslmode=disable"
)

type DbConfig struct {
	DbUser             string
	DbPassword         string
	DbHost             string
	DbPort             int
	DbName             string
	MigrationSourceURL string
}

type repoManager struct {
	pgxPool *pgxpool.Pool

	accountRepository   domain.AccountRepository
	proposalRepository  domain.ProposalRepository
	challengeRepository domain.ChallengeRepository

	accountEventHandlers  *handlerMap
	proposalEventHandlers *handlerMap
}

func NewRepoManager(dbConfig DbConfig) (ports.RepoManager, error) {
	dataSource := insecureDataSourceStr(dbConfig)

	pgxPool, err := connect(dataSource)
	if err != nil {
		return nil, err
	}

	if err = migrateDb(dataSource, dbConfig.MigrationSourceURL); err != nil {
		return nil, err
	}

	accountRepository := NewAccountRepositoryPgImpl(pgxPool)
	proposalRepository := NewProposalRepositoryPgImpl(pgxPool)
	challengeRepository := NewChallengeRepositoryPgImpl(pgxPool)

	rm := &repoManager{
		pgxPool:               pgxPool,
		accountRepository:     accountRepository,
		proposalRepository:    proposalRepository,
		challengeRepository:   challengeRepository,
		accountEventHandlers:  newHandlerMap(),
		proposalEventHandlers: newHandlerMap(),
	}

	go rm.listenToAccountEvents()
	go rm.listenToProposalEvents()

	return rm, nil
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
	rm.accountEventHandlers.set(int(eventType), handler)
}

func (rm *repoManager) RegisterHandlerForProposalEvent(
	eventType domain.ProposalEventType, handler ports.ProposalEventHandler,
) {
	rm.proposalEventHandlers.set(int(eventType), handler)
}

func (rm *repoManager) Reset() {
	ctx := context.Background()
	_, _ = rm.pgxPool.Exec(
		ctx,
		"TRUNCATE challenge, proposal_approval, proposal, "+
			"account_signer, account",
	)
}

func (rm *repoManager) Close() {
	rm.accountRepository.(*accountRepositoryPg).close()
	rm.proposalRepository.(*proposalRepositoryPg).close()

	rm.pgxPool.Close()
}

func (rm *repoManager) listenToAccountEvents() {
	for event := range rm.accountRepository.(*accountRepositoryPg).chEvents {
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
	for event := range rm.proposalRepository.(*proposalRepositoryPg).chEvents {
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
// or retrieving handlers for events.
type handlerMap struct {
	handlersByEventType map[int][]interface{}
	lock                *sync.RWMutex
}

func newHandlerMap() *handlerMap {
	return &handlerMap{
		handlersByEventType: make(map[int][]interface{}),
		lock:                &sync.RWMutex{},
	}
}

func (m *handlerMap) set(key int, val interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.handlersByEventType[key] = append(m.handlersByEventType[key], val)
}

func (m *handlerMap) get(key int) ([]interface{}, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	val, ok := m.handlersByEventType[key]
	return val, ok
}

func connect(dataSource string) (*pgxpool.Pool, error) {
	return pgxpool.Connect(context.Background(), dataSource)
}

func migrateDb(dataSource, migrationSourceUrl string) error {
	pg := postgres.Postgres{}

	d, err := pg.Open(dataSource)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationSourceUrl,
		postgresDriver,
		d,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

// insecureDataSourceStr converts database configuration params to connection string
func insecureDataSourceStr(dbConfig DbConfig) string {
	return fmt.Sprintf(
		insecureDataSourceTemplate,
		dbConfig.DbUser,
		dbConfig.DbPassword,
		dbConfig.DbHost,
		dbConfig.DbPort,
		dbConfig.DbName,
	)
}
