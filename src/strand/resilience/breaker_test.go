package resilience_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/strand/strand-go/src/strand/resilience"
)

var _ = Describe("CircuitBreaker", func() {
	var subject *resilience.CircuitBreaker

	BeforeEach(func() {
		subject = resilience.NewBreaker(3, 25*time.Millisecond)
	})

	It("starts closed and allows calls", func() {
		Expect(subject.State()).To(Equal(resilience.Closed))
		Expect(subject.Allow()).To(Succeed())
	})

	It("stays closed below the failure threshold", func() {
		subject.RecordFailure()
		subject.RecordFailure()

		Expect(subject.State()).To(Equal(resilience.Closed))
		Expect(subject.Allow()).To(Succeed())
	})

	It("opens after the threshold of consecutive failures", func() {
		for i := 0; i < 3; i++ {
			subject.RecordFailure()
		}

		Expect(subject.State()).To(Equal(resilience.Open))

		err := subject.Allow()
		Expect(err).To(HaveOccurred())

		var open *resilience.CircuitOpenError
		Expect(err).To(BeAssignableToTypeOf(open))
	})

	It("resets the failure count on success", func() {
		subject.RecordFailure()
		subject.RecordFailure()
		subject.RecordSuccess()
		subject.RecordFailure()
		subject.RecordFailure()

		Expect(subject.State()).To(Equal(resilience.Closed))
	})

	It("reports the remaining cooldown when rejecting", func() {
		for i := 0; i < 3; i++ {
			subject.RecordFailure()
		}

		err := subject.Allow()

		var open *resilience.CircuitOpenError
		Expect(err).To(BeAssignableToTypeOf(open))
		Expect(err.(*resilience.CircuitOpenError).Remaining).To(BeNumerically(">", 0))
		Expect(err.(*resilience.CircuitOpenError).Retryable()).To(BeTrue())
	})

	Context("after the cooldown elapses", func() {
		BeforeEach(func() {
			for i := 0; i < 3; i++ {
				subject.RecordFailure()
			}

			time.Sleep(30 * time.Millisecond)
		})

		It("admits exactly one trial call", func() {
			Expect(subject.Allow()).To(Succeed())
			Expect(subject.State()).To(Equal(resilience.HalfOpen))

			Expect(subject.Allow()).To(HaveOccurred())
		})

		It("closes after a successful trial", func() {
			Expect(subject.Allow()).To(Succeed())
			subject.RecordSuccess()

			Expect(subject.State()).To(Equal(resilience.Closed))
			Expect(subject.Allow()).To(Succeed())
		})

		It("reopens and extends the cooldown after a failed trial", func() {
			Expect(subject.Allow()).To(Succeed())
			subject.RecordFailure()

			Expect(subject.State()).To(Equal(resilience.Open))
			Expect(subject.Allow()).To(HaveOccurred())
		})
	})
})

var _ = Describe("NewBreaker", func() {
	It("applies defaults for non-positive parameters", func() {
		subject := resilience.NewBreaker(0, 0)

		// the defaults keep the breaker usable, not observable directly;
		// verify it behaves as a closed breaker
		Expect(subject.State()).To(Equal(resilience.Closed))
		Expect(subject.Allow()).To(Succeed())
	})
})

var _ = Describe("BreakerState", func() {
	Describe("String", func() {
		It("names each state", func() {
			Expect(resilience.Closed.String()).To(Equal("closed"))
			Expect(resilience.Open.String()).To(Equal("open"))
			Expect(resilience.HalfOpen.String()).To(Equal("half-open"))
		})
	})
})
