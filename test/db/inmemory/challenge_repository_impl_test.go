package inmemorytest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (i *InMemoryDbTestSuite) TestChallengeRepository() {
	dbtest.TestChallengeRepository(
		i.T(),
		ctx,
		inMemoryRepoManager.ChallengeRepository(),
	)
}
