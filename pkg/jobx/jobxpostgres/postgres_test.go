package jobxpostgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxpostgres"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxtest"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const testSchema = "pgque_test"

var _ = Describe("PostgresStore", Ordered, ContinueOnFailure, func() {
	var (
		db    *sqlx.DB
		store *jobxpostgres.Store
	)

	BeforeAll(func() {
		dsn := os.Getenv("PGQUE_TEST_DATABASE_URL")
		if dsn == "" {
			Skip("PGQUE_TEST_DATABASE_URL not set")
		}

		var err error
		db, err = sqlx.Connect("postgres", dsn)
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(16)

		_, err = db.Exec(`DROP SCHEMA IF EXISTS ` + testSchema + ` CASCADE`)
		Expect(err).NotTo(HaveOccurred())

		store, err = jobxpostgres.New(db, testSchema)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.CreateSchema(context.Background())).To(Succeed())
	})

	AfterAll(func() {
		if store != nil {
			_ = store.Close()
		}
	})

	Describe("schema", func() {
		It("records its version and can be created twice", func() {
			ctx := context.Background()
			Expect(store.CreateSchema(ctx)).To(Succeed())
			Expect(store.Version(ctx)).To(Equal(jobxpostgres.SchemaVersion))
		})

		It("reports version 0 for a missing schema", func() {
			other, err := jobxpostgres.New(db, "pgque_missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(other.Version(context.Background())).To(Equal(0))
		})
	})

	jobxtest.StoreSuite(func() (jobx.Store, func()) {
		_, err := db.Exec(`TRUNCATE ` + testSchema + `.job, ` + testSchema + `.archive`)
		Expect(err).NotTo(HaveOccurred())
		return store, func() {}
	})
})
