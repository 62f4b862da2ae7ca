package dbbadger

import (
	"context"
	"sync"

	"github.com/timshannon/badgerhold/v4"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type challengeRepository struct {
	store      *badgerhold.Store
	updateLock *sync.Mutex
}

func NewChallengeRepository(store *badgerhold.Store) domain.ChallengeRepository {
	return newChallengeRepository(store)
}

func newChallengeRepository(store *badgerhold.Store) *challengeRepository {
	return &challengeRepository{store, &sync.Mutex{}}
}

func (r *challengeRepository) UpsertChallenge(
	ctx context.Context, challenge *domain.Challenge,
) error {
	r.updateLock.Lock()
	defer r.updateLock.Unlock()

	return r.store.Upsert(challenge.SubjectKey, challenge)
}

func (r *challengeRepository) GetChallenge(
	ctx context.Context, subjectKey string,
) (*domain.Challenge, error) {
	var challenge domain.Challenge
	if err := r.store.Get(subjectKey, &challenge); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// DeleteChallenge removes the challenge behind updateLock so that of two
// racing redemptions only one observes the challenge as present.
func (r *challengeRepository) DeleteChallenge(
	ctx context.Context, subjectKey string,
) error {
	r.updateLock.Lock()
	defer r.updateLock.Unlock()

	if err := r.store.Delete(subjectKey, &domain.Challenge{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return domain.ErrChallengeNotFound
		}
		return err
	}
	return nil
}

func (r *challengeRepository) reset() {
	r.store.Badger().DropAll()
}

func (r *challengeRepository) close() {
	r.store.Close()
}
