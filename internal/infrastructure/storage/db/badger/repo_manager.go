package dbbadger

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/lumenvault/lumenvault/internal/core/domain"
	"github.com/lumenvault/lumenvault/internal/core/ports"
)

// repoManager holds all the badgerhold stores and domain repositories
// implementations in a single data structure.
type repoManager struct {
	accountRepository   *accountRepository
	proposalRepository  *proposalRepository
	challengeRepository *challengeRepository

	accountEventHandlers  *handlerMap
	proposalEventHandlers *handlerMap
}

// NewRepoManager is the factory for creating a new badger implementation
// of the ports.RepoManager interface.
// It takes care of creating the db files on disk (or in-memory if no baseDbDir
// is provided - to be used only for testing purposes), and opening and closing
// the connection to them.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var accountDir, proposalDir, challengeDir string
	if len(baseDbDir) > 0 {
		accountDir = filepath.Join(baseDbDir, "accounts")
		proposalDir = filepath.Join(baseDbDir, "proposals")
		challengeDir = filepath.Join(baseDbDir, "challenges")
	}

	accountDb, err := createDb(accountDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening account db: %w", err)
	}

	proposalDb, err := createDb(proposalDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening proposal db: %w", err)
	}

	challengeDb, err := createDb(challengeDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening challenge db: %w", err)
	}

	accountRepo := newAccountRepository(accountDb)
	proposalRepo := newProposalRepository(proposalDb)
	challengeRepo := newChallengeRepository(challengeDb)

	rm := &repoManager{
		accountRepository:     accountRepo,
		proposalRepository:    proposalRepo,
		challengeRepository:   challengeRepo,
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
	rm.accountRepository.reset()
	rm.proposalRepository.reset()
	rm.challengeRepository.reset()
}

func (rm *repoManager) Close() {
	rm.accountRepository.close()
	rm.proposalRepository.close()
	rm.challengeRepository.close()
}

func (rm *repoManager) listenToAccountEvents() {
	for event := range rm.accountRepository.chEvents {
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
		if handlers, ok := rm.proposalEventHandlers.get(int(event.EventType)); ok {
			for i := range handlers {
				handler := handlers[i]
				go handler.(ports.ProposalEventHandler)(event)
			}
		}
	}
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for {
				<-ticker.C
				if err := db.Badger().RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
					log.Warnf("garbage collector: %s", err)
				}
			}
		}()
	}

	return db, nil
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
