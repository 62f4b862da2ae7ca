package inmemorytest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/lumenvault/lumenvault/internal/core/ports"
	"github.com/lumenvault/lumenvault/internal/infrastructure/storage/db/inmemory"
	"github.com/lumenvault/lumenvault/test/testutil"
)

var (
	ctx = context.Background()

	inMemoryRepoManager ports.RepoManager
)

type InMemoryDbTestSuite struct {
	suite.Suite
}

func (i *InMemoryDbTestSuite) SetupSuite() {
	inMemoryRepoManager = inmemory.NewRepoManager()

	testutil.RegisterEventHandlers(i.T(), "inmemory", inMemoryRepoManager)
}

func (i *InMemoryDbTestSuite) TearDownSuite() {
	inMemoryRepoManager.Close()
}
