package pgtest

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

func TestPgDbTestSuite(t *testing.T) {
	suite.Run(t, new(PgDbTestSuite))
}
