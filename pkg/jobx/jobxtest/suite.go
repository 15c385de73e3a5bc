package jobxtest

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Abraxas-365/pgque/pkg/asyncx"
	"github.com/Abraxas-365/pgque/pkg/jobx"
)

// Factory returns an empty store and a function releasing it.
type Factory func() (jobx.Store, func())

// StoreSuite registers the queue behaviour specs against stores built by
// factory. Call it inside a Describe.
func StoreSuite(factory Factory) {
	var (
		store   jobx.Store
		cleanup func()
		queue   *jobx.Queue
		clock   *Clock
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store, cleanup = factory()
		clock = NewClock(Epoch)
		queue = jobx.NewQueue(store,
			jobx.WithClock(clock.Now),
			jobx.WithJitter(func() float64 { return 0 }),
			jobx.WithLogger(QuietLogger()),
		)
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	enqueue := func(name string, opts ...jobx.EnqueueOption) string {
		id, err := queue.Enqueue(ctx, name, map[string]string{"name": name}, opts...)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())
		return id
	}

	claimIDs := func(pattern string, n int) []string {
		jobs, err := queue.Claim(ctx, pattern, n)
		Expect(err).NotTo(HaveOccurred())
		ids := make([]string, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}
		return ids
	}

	getJob := func(id string) *jobx.Job {
		j, err := queue.GetJob(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return j
	}

	envelopes := func(name string) []jobx.CompletionEnvelope {
		jobs, err := queue.Claim(ctx, jobx.EscapePattern(jobx.CompletionName(name)), 100)
		Expect(err).NotTo(HaveOccurred())
		out := make([]jobx.CompletionEnvelope, len(jobs))
		for i, j := range jobs {
			Expect(json.Unmarshal(j.Data, &out[i])).To(Succeed())
		}
		return out
	}

	Describe("Enqueue", func() {
		It("stores a created job with default options", func() {
			id := enqueue("email")

			job := getJob(id)
			Expect(job.Name).To(Equal("email"))
			Expect(job.State).To(Equal(jobx.StateCreated))
			Expect(job.Priority).To(Equal(0))
			Expect(job.RetryLimit).To(Equal(jobx.DefaultRetryLimit))
			Expect(job.RetryDelay).To(Equal(jobx.DefaultRetryDelay))
			Expect(job.RetryCount).To(Equal(0))
			Expect(job.ExpireIn).To(Equal(jobx.DefaultExpireIn))
			Expect(job.StartAfter).To(BeTemporally("==", clock.Now()))
			Expect(job.CreatedOn).To(BeTemporally("==", clock.Now()))
			Expect(job.StartedOn).To(BeNil())
			Expect(job.CompletedOn).To(BeNil())
			Expect(string(job.Data)).To(MatchJSON(`{"name":"email"}`))
		})

		It("keeps a delayed job out of reach until its start time", func() {
			id := enqueue("email", jobx.WithDelay(30*time.Second))

			Expect(claimIDs("email", 1)).To(BeEmpty())
			clock.Advance(30 * time.Second)
			Expect(claimIDs("email", 1)).To(Equal([]string{id}))
		})

		It("drops a job whose id is already taken", func() {
			const id = "5d1f3c8e-9a0b-4c2d-8e7f-6a5b4c3d2e1f"
			fixed := jobx.NewQueue(store,
				jobx.WithClock(clock.Now),
				jobx.WithIDGenerator(func() string { return id }),
				jobx.WithLogger(QuietLogger()),
			)

			first, err := fixed.Enqueue(ctx, "q", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(Equal(id))

			second, err := fixed.Enqueue(ctx, "other", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeEmpty())
			Expect(getJob(id).Name).To(Equal("q"))
		})

		It("rejects the reserved completion prefix", func() {
			_, err := queue.Enqueue(ctx, jobx.CompletionName("email"), nil)
			Expect(jobx.IsInvalidArgument(err)).To(BeTrue())
		})

		Context("with a singleton key", func() {
			It("keeps one live job per key", func() {
				first := enqueue("report", jobx.WithSingletonKey("daily"))

				id, err := queue.Enqueue(ctx, "report", nil, jobx.WithSingletonKey("daily"))
				Expect(err).NotTo(HaveOccurred())
				Expect(id).To(BeEmpty())

				stats, err := queue.Stats(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(stats.ByName["report"]).To(Equal(1))

				Expect(claimIDs("report", 1)).To(Equal([]string{first}))
				Expect(queue.Complete(ctx, []string{first}, nil)).To(Equal(1))
				enqueue("report", jobx.WithSingletonKey("daily"))
			})

			It("does not collide across names or keys", func() {
				enqueue("report", jobx.WithSingletonKey("daily"))
				enqueue("report", jobx.WithSingletonKey("weekly"))
				enqueue("audit", jobx.WithSingletonKey("daily"))
			})
		})

		Context("with a singleton window", func() {
			It("keeps one job per window", func() {
				enqueue("tick", jobx.WithSingletonWindow(60))

				id, err := queue.Enqueue(ctx, "tick", nil, jobx.WithSingletonWindow(60))
				Expect(err).NotTo(HaveOccurred())
				Expect(id).To(BeEmpty())

				clock.Advance(time.Minute)
				enqueue("tick", jobx.WithSingletonWindow(60))
			})

			It("scopes a key to the window", func() {
				enqueue("tick", jobx.WithSingletonWindow(60), jobx.WithSingletonKey("a"))
				enqueue("tick", jobx.WithSingletonWindow(60), jobx.WithSingletonKey("b"))

				id, err := queue.Enqueue(ctx, "tick", nil, jobx.WithSingletonWindow(60), jobx.WithSingletonKey("a"))
				Expect(err).NotTo(HaveOccurred())
				Expect(id).To(BeEmpty())

				clock.Advance(time.Minute)
				enqueue("tick", jobx.WithSingletonWindow(60), jobx.WithSingletonKey("a"))
			})
		})
	})

	Describe("Claim", func() {
		It("returns the highest priority, then the oldest job", func() {
			c := enqueue("q", jobx.WithPriority(5))
			clock.Advance(time.Second)
			enqueue("q", jobx.WithPriority(5))
			b := enqueue("q", jobx.WithPriority(10))

			Expect(claimIDs("q", 2)).To(Equal([]string{b, c}))
		})

		It("breaks ties by id", func() {
			ids := []string{enqueue("q"), enqueue("q"), enqueue("q")}
			claimed := claimIDs("q", 3)
			Expect(claimed).To(ConsistOf(ids))
			Expect(claimed[0] < claimed[1] && claimed[1] < claimed[2]).To(BeTrue())
		})

		It("marks claimed jobs active", func() {
			id := enqueue("q")
			clock.Advance(time.Second)
			Expect(claimIDs("q", 1)).To(Equal([]string{id}))

			job := getJob(id)
			Expect(job.State).To(Equal(jobx.StateActive))
			Expect(job.StartedOn).NotTo(BeNil())
			Expect(*job.StartedOn).To(BeTemporally("==", clock.Now()))
			Expect(job.RetryCount).To(Equal(0))

			Expect(claimIDs("q", 1)).To(BeEmpty())
		})

		It("returns the payload", func() {
			enqueue("q")
			jobs, err := queue.Claim(ctx, "q", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].Name).To(Equal("q"))
			Expect(string(jobs[0].Data)).To(MatchJSON(`{"name":"q"}`))
		})

		It("matches names with LIKE patterns", func() {
			enqueue("email")
			enqueue("email-bulk")
			enqueue("sms")
			ab := enqueue("a_b")
			axb := enqueue("axb")

			Expect(claimIDs("email%", 10)).To(HaveLen(2))
			Expect(claimIDs(jobx.EscapePattern("a_b"), 10)).To(Equal([]string{ab}))
			Expect(claimIDs("a_b", 10)).To(Equal([]string{axb}))
			Expect(claimIDs("%", 10)).To(HaveLen(1))
		})

		It("increments retryCount only when reclaiming a retry", func() {
			id := enqueue("q", jobx.WithRetryLimit(2), jobx.WithRetryDelay(0))

			Expect(claimIDs("q", 1)).To(Equal([]string{id}))
			Expect(queue.Fail(ctx, []string{id}, nil)).To(Equal(1))
			Expect(getJob(id).RetryCount).To(Equal(0))

			Expect(claimIDs("q", 1)).To(Equal([]string{id}))
			Expect(getJob(id).RetryCount).To(Equal(1))
		})

		It("rejects a pattern ending in the escape character", func() {
			enqueue("q")
			_, err := queue.Claim(ctx, `q\`, 1)
			Expect(jobx.IsInvalidArgument(err)).To(BeTrue())
		})

		It("rejects a batch size below one", func() {
			_, err := queue.Claim(ctx, "q", 0)
			Expect(jobx.IsInvalidArgument(err)).To(BeTrue())
		})

		DescribeTable("never hands the same job to two claimers",
			func(jobs, claimers, batch int) {
				for range jobs {
					enqueue("contended")
				}

				fns := make([]func(context.Context) ([]jobx.ClaimedJob, error), claimers)
				for i := range fns {
					fns[i] = func(ctx context.Context) ([]jobx.ClaimedJob, error) {
						return queue.Claim(ctx, "contended", batch)
					}
				}
				batches, err := asyncx.All(ctx, fns...)
				Expect(err).NotTo(HaveOccurred())

				seen := make(map[string]bool)
				for _, b := range batches {
					for _, j := range b {
						Expect(seen[j.ID]).To(BeFalse(), "job %s claimed twice", j.ID)
						seen[j.ID] = true
					}
				}
				Expect(seen).To(HaveLen(min(jobs, claimers*batch)))
			},
			Entry("fewer jobs than claim capacity", 25, 8, 5),
			Entry("more jobs than claim capacity", 50, 4, 5),
		)
	})

	Describe("Complete", func() {
		It("is idempotent", func() {
			id := enqueue("q")
			claimIDs("q", 1)

			Expect(queue.Complete(ctx, []string{id}, nil)).To(Equal(1))
			Expect(queue.Complete(ctx, []string{id}, nil)).To(Equal(0))

			job := getJob(id)
			Expect(job.State).To(Equal(jobx.StateCompleted))
			Expect(*job.CompletedOn).To(BeTemporally("==", clock.Now()))
		})

		It("skips jobs that are not active", func() {
			id := enqueue("q")
			Expect(queue.Complete(ctx, []string{id}, nil)).To(Equal(0))
			Expect(getJob(id).State).To(Equal(jobx.StateCreated))
		})

		It("emits a completion record", func() {
			id := enqueue("q")
			claimIDs("q", 1)
			Expect(queue.Complete(ctx, []string{id}, map[string]bool{"ok": true})).To(Equal(1))

			envs := envelopes("q")
			Expect(envs).To(HaveLen(1))
			Expect(envs[0].Request.ID).To(Equal(id))
			Expect(envs[0].Request.Name).To(Equal("q"))
			Expect(string(envs[0].Request.Data)).To(MatchJSON(`{"name":"q"}`))
			Expect(string(envs[0].Response)).To(MatchJSON(`{"ok":true}`))
			Expect(envs[0].State).To(Equal(jobx.StateCompleted))
			Expect(envs[0].Failed).To(BeFalse())
		})

		It("does not count completion records in stats", func() {
			id := enqueue("q")
			claimIDs("q", 1)
			Expect(queue.Complete(ctx, []string{id}, nil)).To(Equal(1))

			stats, err := queue.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(1))
			Expect(stats.Count("q", jobx.StateCompleted)).To(Equal(1))
		})

		It("rejects malformed ids without applying anything", func() {
			id := enqueue("q")
			claimIDs("q", 1)

			_, err := queue.Complete(ctx, []string{id, "not-a-uuid"}, nil)
			Expect(jobx.IsInvalidArgument(err)).To(BeTrue())
			Expect(getJob(id).State).To(Equal(jobx.StateActive))
		})
	})

	Describe("Fail", func() {
		It("fails a job exactly when its retries run out", func() {
			id := enqueue("q", jobx.WithRetryLimit(3), jobx.WithRetryDelay(0))

			attempts := 0
			for {
				Expect(claimIDs("q", 1)).To(Equal([]string{id}))
				attempts++
				Expect(queue.Fail(ctx, []string{id}, nil)).To(Equal(1))

				job := getJob(id)
				if job.State == jobx.StateFailed {
					Expect(job.RetryCount).To(Equal(3))
					Expect(job.CompletedOn).NotTo(BeNil())
					break
				}
				Expect(job.State).To(Equal(jobx.StateRetry))
				Expect(job.CompletedOn).To(BeNil())
				Expect(attempts).To(BeNumerically("<", 4))
			}
			Expect(attempts).To(Equal(4))
		})

		It("delays the retry by retryDelay", func() {
			id := enqueue("q", jobx.WithRetryDelay(5))
			claimIDs("q", 1)
			Expect(queue.Fail(ctx, []string{id}, nil)).To(Equal(1))

			Expect(getJob(id).StartAfter).To(BeTemporally("==", clock.Now().Add(5*time.Second)))
			Expect(claimIDs("q", 1)).To(BeEmpty())
			clock.Advance(5 * time.Second)
			Expect(claimIDs("q", 1)).To(Equal([]string{id}))
		})

		It("backs off exponentially", func() {
			id := enqueue("q", jobx.WithRetryLimit(5), jobx.WithRetryDelay(1), jobx.WithRetryBackoff(true))

			var gaps []time.Duration
			for range 4 {
				clock.Advance(time.Hour)
				Expect(claimIDs("q", 1)).To(Equal([]string{id}))
				Expect(queue.Fail(ctx, []string{id}, nil)).To(Equal(1))
				gaps = append(gaps, getJob(id).StartAfter.Sub(clock.Now()))
			}
			Expect(gaps).To(Equal([]time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}))
		})

		It("emits a record only when the job fails for good", func() {
			id := enqueue("q", jobx.WithRetryDelay(0))
			claimIDs("q", 1)
			Expect(queue.Fail(ctx, []string{id}, map[string]string{"message": "boom"})).To(Equal(1))
			Expect(envelopes("q")).To(BeEmpty())

			claimIDs("q", 1)
			Expect(queue.Fail(ctx, []string{id}, map[string]string{"message": "boom"})).To(Equal(1))

			envs := envelopes("q")
			Expect(envs).To(HaveLen(1))
			Expect(envs[0].State).To(Equal(jobx.StateFailed))
			Expect(envs[0].Failed).To(BeTrue())
			Expect(envs[0].RetryCount).To(Equal(1))
			Expect(string(envs[0].Response)).To(MatchJSON(`{"message":"boom"}`))
		})

		It("skips terminal jobs", func() {
			id := enqueue("q")
			claimIDs("q", 1)
			Expect(queue.Complete(ctx, []string{id}, nil)).To(Equal(1))
			Expect(queue.Fail(ctx, []string{id}, nil)).To(Equal(0))
		})
	})

	Describe("Cancel", func() {
		It("cancels jobs that are not yet terminal", func() {
			created := enqueue("q")
			active := enqueue("q", jobx.WithPriority(1))
			done := enqueue("q", jobx.WithPriority(2))
			Expect(claimIDs("q", 2)).To(Equal([]string{done, active}))
			Expect(queue.Complete(ctx, []string{done}, nil)).To(Equal(1))

			Expect(queue.Cancel(ctx, []string{created, active, done})).To(Equal(2))
			Expect(queue.Cancel(ctx, []string{created, active, done})).To(Equal(0))

			Expect(getJob(created).State).To(Equal(jobx.StateCancelled))
			Expect(getJob(active).State).To(Equal(jobx.StateCancelled))
			Expect(getJob(active).CompletedOn).NotTo(BeNil())
			Expect(getJob(done).State).To(Equal(jobx.StateCompleted))
		})

		It("does not emit a completion record", func() {
			id := enqueue("q")
			Expect(queue.Cancel(ctx, []string{id})).To(Equal(1))
			Expect(envelopes("q")).To(BeEmpty())
		})
	})

	Describe("Expire", func() {
		It("expires active jobs past expireIn", func() {
			id := enqueue("q", jobx.WithRetryLimit(0), jobx.WithExpireIn(time.Minute))
			claimIDs("q", 1)

			clock.Advance(time.Minute)
			Expect(queue.Expire(ctx)).To(Equal(0))

			clock.Advance(time.Second)
			Expect(queue.Expire(ctx)).To(Equal(1))
			Expect(getJob(id).State).To(Equal(jobx.StateExpired))

			envs := envelopes("q")
			Expect(envs).To(HaveLen(1))
			Expect(envs[0].State).To(Equal(jobx.StateExpired))
			Expect(envs[0].Failed).To(BeTrue())
		})

		It("sends expired jobs with retries left back to retry", func() {
			id := enqueue("q", jobx.WithRetryLimit(1), jobx.WithRetryDelay(0), jobx.WithExpireIn(time.Minute))
			claimIDs("q", 1)
			clock.Advance(2 * time.Minute)

			Expect(queue.Expire(ctx)).To(Equal(1))
			Expect(getJob(id).State).To(Equal(jobx.StateRetry))
			Expect(claimIDs("q", 1)).To(Equal([]string{id}))
		})

		It("leaves jobs that are not active alone", func() {
			enqueue("q", jobx.WithExpireIn(time.Minute))
			clock.Advance(time.Hour)
			Expect(queue.Expire(ctx)).To(Equal(0))
		})
	})

	Describe("Archive and Purge", func() {
		It("moves old completed jobs to the archive and purges them later", func() {
			id := enqueue("q")
			claimIDs("q", 1)
			Expect(queue.Complete(ctx, []string{id}, nil)).To(Equal(1))

			Expect(queue.Archive(ctx, time.Hour)).To(Equal(0))
			clock.Advance(2 * time.Hour)
			// the job and its unconsumed completion record
			Expect(queue.Archive(ctx, time.Hour)).To(Equal(2))

			_, err := queue.GetJob(ctx, id)
			Expect(jobx.IsNotFound(err)).To(BeTrue())

			archived, err := queue.GetArchivedJob(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(archived.State).To(Equal(jobx.StateCompleted))
			Expect(archived.ArchivedOn).To(BeTemporally("==", clock.Now()))

			Expect(queue.Purge(ctx, 30*time.Minute)).To(Equal(0))
			clock.Advance(time.Hour)
			Expect(queue.Purge(ctx, 30*time.Minute)).To(Equal(2))

			_, err = queue.GetArchivedJob(ctx, id)
			Expect(jobx.IsNotFound(err)).To(BeTrue())
		})

		It("keeps live jobs in place", func() {
			created := enqueue("q")
			active := enqueue("q", jobx.WithPriority(1))
			claimIDs("q", 1)
			clock.Advance(24 * time.Hour)

			Expect(queue.Archive(ctx, time.Hour)).To(Equal(0))
			Expect(getJob(created).State).To(Equal(jobx.StateCreated))
			Expect(getJob(active).State).To(Equal(jobx.StateActive))
		})

		It("rejects a non-positive retention", func() {
			_, err := queue.Archive(ctx, 0)
			Expect(jobx.IsInvalidArgument(err)).To(BeTrue())
			_, err = queue.Purge(ctx, -time.Second)
			Expect(jobx.IsInvalidArgument(err)).To(BeTrue())
		})
	})

	Describe("Stats", func() {
		It("counts jobs by name and state with totals", func() {
			enqueue("a")
			enqueue("a")
			enqueue("b")
			Expect(claimIDs("a", 1)).To(HaveLen(1))

			stats, err := queue.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Count("a", jobx.StateCreated)).To(Equal(1))
			Expect(stats.Count("a", jobx.StateActive)).To(Equal(1))
			Expect(stats.Count("b", jobx.StateCreated)).To(Equal(1))
			Expect(stats.ByName).To(Equal(map[string]int{"a": 2, "b": 1}))
			Expect(stats.ByState).To(Equal(map[jobx.State]int{jobx.StateCreated: 2, jobx.StateActive: 1}))
			Expect(stats.Total).To(Equal(3))
		})

		It("reports an empty table", func() {
			stats, err := queue.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(0))
			Expect(stats.ByName).To(BeEmpty())
		})
	})

	Describe("DeleteQueue", func() {
		It("removes one queue or all of them", func() {
			enqueue("a")
			id := enqueue("a")
			enqueue("b")
			claimIDs("a", 1)

			Expect(queue.DeleteQueue(ctx, "a")).To(Equal(2))
			_, err := queue.GetJob(ctx, id)
			Expect(jobx.IsNotFound(err)).To(BeTrue())

			Expect(queue.DeleteAllQueues(ctx)).To(Succeed())
			stats, err := queue.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(0))
		})
	})
}
