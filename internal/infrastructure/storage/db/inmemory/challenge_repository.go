package inmemory

import (
	"context"
	"sync"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type challengeInmemoryStore struct {
	challenges map[string]*domain.Challenge
	lock       *sync.RWMutex
}

type challengeRepository struct {
	store *challengeInmemoryStore
}

func NewChallengeRepository() domain.ChallengeRepository {
	return newChallengeRepository()
}

func newChallengeRepository() *challengeRepository {
	return &challengeRepository{
		store: &challengeInmemoryStore{
			challenges: make(map[string]*domain.Challenge),
			lock:       &sync.RWMutex{},
		},
	}
}

func (r *challengeRepository) UpsertChallenge(
	ctx context.Context, challenge *domain.Challenge,
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.challenges[challenge.SubjectKey] = challenge
	return nil
}

func (r *challengeRepository) GetChallenge(
	ctx context.Context, subjectKey string,
) (*domain.Challenge, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	challenge, ok := r.store.challenges[subjectKey]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return challenge, nil
}

// DeleteChallenge removes the challenge under the write-lock so that of two
// racing redemptions only one observes the challenge as present.
func (r *challengeRepository) DeleteChallenge(
	ctx context.Context, subjectKey string,
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.challenges[subjectKey]; !ok {
		return domain.ErrChallengeNotFound
	}
	delete(r.store.challenges, subjectKey)
	return nil
}

func (r *challengeRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.challenges = make(map[string]*domain.Challenge)
}
