package pgtest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (p *PgDbTestSuite) TestProposalRepository() {
	dbtest.TestProposalRepository(
		p.T(),
		ctx,
		pgRepoManager.ProposalRepository(),
	)
}
