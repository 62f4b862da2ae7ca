package badgertest

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

func TestBadgerDbTestSuite(t *testing.T) {
	suite.Run(t, new(BadgerDbTestSuite))
}
