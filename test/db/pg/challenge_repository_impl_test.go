package pgtest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (p *PgDbTestSuite) TestChallengeRepository() {
	dbtest.TestChallengeRepository(
		p.T(),
		ctx,
		pgRepoManager.ChallengeRepository(),
	)
}
