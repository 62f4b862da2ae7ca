package inmemorytest

import dbtest "github.com/lumenvault/lumenvault/test/db"

func (i *InMemoryDbTestSuite) TestProposalRepository() {
	dbtest.TestProposalRepository(
		i.T(),
		ctx,
		inMemoryRepoManager.ProposalRepository(),
	)
}
