package barrier_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/uopsim/timing/barrier"
)

var _ = Describe("SkewBarrier", func() {
	var b *barrier.SkewBarrier

	BeforeEach(func() {
		b = barrier.NewSkewBarrier(2, 1000)
	})

	advance := func(core int, now uint64) chan error {
		done := make(chan error, 1)
		go func() {
			done <- b.Advance(context.Background(), core, now)
		}()
		return done
	}

	It("should not block within one quantum", func() {
		Expect(b.Advance(context.Background(), 0, 1000)).To(Succeed())
		Expect(b.Waits(0)).To(BeZero())
	})

	It("should block a core that runs ahead", func() {
		done := advance(1, 2500)
		Consistently(done, "50ms").ShouldNot(Receive())

		Expect(b.Advance(context.Background(), 0, 1200)).To(Succeed())
		Consistently(done, "50ms").ShouldNot(Receive())

		Expect(b.Advance(context.Background(), 0, 1500)).To(Succeed())
		Eventually(done).Should(Receive(BeNil()))
		Expect(b.Waits(1)).To(Equal(uint64(1)))
	})

	It("should release waiting cores when the slowest leaves", func() {
		done := advance(1, 5000)
		Consistently(done, "50ms").ShouldNot(Receive())

		b.Leave(0)
		Eventually(done).Should(Receive(BeNil()))
		Expect(b.Slowest()).To(Equal(uint64(5000)))
	})

	It("should stop waiting when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- b.Advance(ctx, 1, 5000)
		}()
		Consistently(done, "50ms").ShouldNot(Receive())

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	It("should refuse to move a core backwards", func() {
		Expect(b.Advance(context.Background(), 0, 500)).To(Succeed())
		Expect(func() {
			_ = b.Advance(context.Background(), 0, 400)
		}).To(Panic())
	})

	It("should refuse a zero quantum", func() {
		Expect(func() { barrier.NewSkewBarrier(1, 0) }).To(Panic())
	})
})
