package inmemorytest

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

func TestInMemoryDbTestSuite(t *testing.T) {
	suite.Run(t, new(InMemoryDbTestSuite))
}
