package jobxsqlite_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestJobxSqlite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "jobxsqlite Suite")
}
