package badgertest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (b *BadgerDbTestSuite) TestChallengeRepository() {
	dbtest.TestChallengeRepository(
		b.T(),
		ctx,
		badgerRepoManager.ChallengeRepository(),
	)
}
