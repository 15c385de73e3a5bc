package jobxmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxmemory"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxtest"
)

var _ = Describe("MemoryStore", func() {
	jobxtest.StoreSuite(func() (jobx.Store, func()) {
		s := jobxmemory.New()
		return s, func() { _ = s.Close() }
	})

	Describe("Transition", func() {
		It("leaves the store unchanged when the transition func fails", func() {
			ctx := context.Background()
			store := jobxmemory.New()
			queue := jobx.NewQueue(store, jobx.WithLogger(jobxtest.QuietLogger()))

			a, err := queue.Enqueue(ctx, "q", nil)
			Expect(err).NotTo(HaveOccurred())
			b, err := queue.Enqueue(ctx, "q", nil)
			Expect(err).NotTo(HaveOccurred())

			calls := 0
			_, err = store.Transition(ctx, jobx.Selection{IDs: []string{a, b}, Below: jobx.StateCompleted},
				func(j *jobx.Job) (jobx.Outcome, error) {
					calls++
					if calls == 2 {
						return jobx.Outcome{}, jobx.InvalidArgument("job", "boom")
					}
					return jobx.Outcome{Transition: jobx.Transition{State: jobx.StateCancelled, StartAfter: j.StartAfter}}, nil
				})
			Expect(err).To(HaveOccurred())

			for _, id := range []string{a, b} {
				j, err := store.GetJob(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(j.State).To(Equal(jobx.StateCreated))
			}
		})
	})

	Describe("Claim", func() {
		It("rejects a pattern ending in the escape character", func() {
			_, err := jobxmemory.New().Claim(context.Background(), `q\`, 1, time.Now())
			Expect(jobx.IsInvalidArgument(err)).To(BeTrue())
		})
	})
})
