package jobxmemory_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestJobxMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "jobxmemory Suite")
}
