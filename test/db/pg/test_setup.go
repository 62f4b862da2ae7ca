package pgtest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/lumenvault/lumenvault/internal/core/ports"
	postgresdb "github.com/lumenvault/lumenvault/internal/infrastructure/storage/db/postgres"
	"github.com/lumenvault/lumenvault/test/testutil"
)

var (
	ctx = context.Background()

	pgRepoManager ports.RepoManager
)

type PgDbTestSuite struct {
	suite.Suite
}

func (p *PgDbTestSuite) SetupSuite() {
	if err := testutil.SetupDB(); err != nil {
		p.T().Skipf("postgres not reachable, skipping suite: %s", err)
	}

	pg, err := postgresdb.NewRepoManager(postgresdb.DbConfig{
		DbUser:     "root",
		DbPassword: "secret",
		DbHost:     "127.0.0.1",
		DbPort:     5432,
		DbName:     "lumenvault-db-test",
		MigrationSourceURL: "file://../../.." +
			"/internal/infrastructure/storage/db/postgres/migration",
	})
	if err != nil {
		p.FailNow(err.Error())
	}

	pgRepoManager = pg

	testutil.RegisterEventHandlers(p.T(), "postgres", pgRepoManager)
}

func (p *PgDbTestSuite) TearDownSuite() {
	if pgRepoManager == nil {
		return
	}
	if err := testutil.ShutdownDB(); err != nil {
		p.FailNow(err.Error())
	}
}

func (p *PgDbTestSuite) BeforeTest(suiteName, testName string) {
	if err := testutil.TruncateDB(); err != nil {
		p.FailNow(err.Error())
	}
}
