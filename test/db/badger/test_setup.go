package badgertest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/lumenvault/lumenvault/internal/core/ports"
	dbbadger "github.com/lumenvault/lumenvault/internal/infrastructure/storage/db/badger"
	"github.com/lumenvault/lumenvault/test/testutil"
)

var (
	ctx = context.Background()

	badgerRepoManager ports.RepoManager
)

type BadgerDbTestSuite struct {
	suite.Suite
}

func (b *BadgerDbTestSuite) SetupSuite() {
	// no datadir, the stores are kept in memory.
	rm, err := dbbadger.NewRepoManager("", nil)
	if err != nil {
		b.FailNow(err.Error())
	}
	badgerRepoManager = rm

	testutil.RegisterEventHandlers(b.T(), "badger", badgerRepoManager)
}

func (b *BadgerDbTestSuite) TearDownSuite() {
	badgerRepoManager.Close()
}
