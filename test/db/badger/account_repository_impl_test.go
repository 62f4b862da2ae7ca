package badgertest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (b *BadgerDbTestSuite) TestAccountRepository() {
	dbtest.TestAccountRepository(
		b.T(),
		ctx,
		badgerRepoManager.AccountRepository(),
	)
}
