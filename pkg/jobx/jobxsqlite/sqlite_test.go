package jobxsqlite_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxsqlite"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxtest"
)

func openStore() *jobxsqlite.Store {
	db, err := jobxsqlite.Open(filepath.Join(GinkgoT().TempDir(), "pgque.db"))
	Expect(err).NotTo(HaveOccurred())
	return jobxsqlite.New(db)
}

var _ = Describe("SQLiteStore", func() {
	jobxtest.StoreSuite(func() (jobx.Store, func()) {
		s := openStore()
		Expect(s.CreateSchema(context.Background())).To(Succeed())
		return s, func() { _ = s.Close() }
	})

	Describe("schema", func() {
		It("reports version 0 before creation and the current version after", func() {
			ctx := context.Background()
			s := openStore()
			defer s.Close()

			Expect(s.Version(ctx)).To(Equal(0))
			Expect(s.CreateSchema(ctx)).To(Succeed())
			Expect(s.CreateSchema(ctx)).To(Succeed())
			Expect(s.Version(ctx)).To(Equal(jobxsqlite.SchemaVersion))
		})
	})
})
