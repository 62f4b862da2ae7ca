package pgtest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (p *PgDbTestSuite) TestAccountRepository() {
	dbtest.TestAccountRepository(
		p.T(),
		ctx,
		pgRepoManager.AccountRepository(),
	)
}
