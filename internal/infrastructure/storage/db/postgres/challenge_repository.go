package postgresdb

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/lumenvault/lumenvault/internal/core/domain"
)

type challengeRepositoryPg struct {
	pgxPool *pgxpool.Pool
}

func NewChallengeRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.ChallengeRepository {
	return &challengeRepositoryPg{pgxPool}
}

func (r *challengeRepositoryPg) UpsertChallenge(
	ctx context.Context, challenge *domain.Challenge,
) error {
	_, err := r.pgxPool.Exec(
		ctx,
		"INSERT INTO challenge (subject_key, nonce, expires_at) "+
			"VALUES ($1, $2, $3) ON CONFLICT (subject_key) "+
			"DO UPDATE SET nonce = $2, expires_at = $3",
		challenge.SubjectKey, challenge.Nonce, challenge.ExpiresAt,
	)
	return err
}

func (r *challengeRepositoryPg) GetChallenge(
	ctx context.Context, subjectKey string,
) (*domain.Challenge, error) {
	var challenge domain.Challenge
	if err := r.pgxPool.QueryRow(
		ctx,
		"SELECT subject_key, nonce, expires_at FROM challenge "+
			"WHERE subject_key = $1",
		subjectKey,
	).Scan(
		&challenge.SubjectKey, &challenge.Nonce, &challenge.ExpiresAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// DeleteChallenge relies on the atomicity of a single DELETE: of two racing
// redemptions only one sees a non-zero rows-affected count.
func (r *challengeRepositoryPg) DeleteChallenge(
	ctx context.Context, subjectKey string,
) error {
	res, err := r.pgxPool.Exec(
		ctx, "DELETE FROM challenge WHERE subject_key = $1", subjectKey,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() <= 0 {
		return domain.ErrChallengeNotFound
	}
	return nil
}
