package inmemorytest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (i *InMemoryDbTestSuite) TestAccountRepository() {
	dbtest.TestAccountRepository(
		i.T(),
		ctx,
		inMemoryRepoManager.AccountRepository(),
	)
}
