package badgertest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (b *BadgerDbTestSuite) TestProposalRepository() {
	dbtest.TestProposalRepository(
		b.T(),
		ctx,
		badgerRepoManager.ProposalRepository(),
	)
}
