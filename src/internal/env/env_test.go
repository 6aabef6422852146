package env_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/strand/strand-go/src/internal/env"
)

var _ = Describe("Duration", func() {
	AfterEach(func() {
		os.Unsetenv("STRAND_TEST_VAR")
	})

	It("parses milliseconds", func() {
		os.Setenv("STRAND_TEST_VAR", "1500")

		d, ok, err := env.Duration("STRAND_TEST_VAR")

		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(d).To(Equal(1500 * time.Millisecond))
	})

	It("reports undefined variables", func() {
		_, ok, err := env.Duration("STRAND_TEST_VAR")

		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("rejects zero and non-numeric values", func() {
		os.Setenv("STRAND_TEST_VAR", "0")
		_, _, err := env.Duration("STRAND_TEST_VAR")
		Expect(err).To(HaveOccurred())

		os.Setenv("STRAND_TEST_VAR", "soon")
		_, _, err = env.Duration("STRAND_TEST_VAR")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("UInt", func() {
	AfterEach(func() {
		os.Unsetenv("STRAND_TEST_VAR")
	})

	It("parses positive integers", func() {
		os.Setenv("STRAND_TEST_VAR", "42")

		n, ok, err := env.UInt("STRAND_TEST_VAR")

		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(n).To(Equal(uint(42)))
	})

	It("rejects zero", func() {
		os.Setenv("STRAND_TEST_VAR", "0")

		_, _, err := env.UInt("STRAND_TEST_VAR")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Bool", func() {
	AfterEach(func() {
		os.Unsetenv("STRAND_TEST_VAR")
	})

	It("parses 'true' and 'false'", func() {
		os.Setenv("STRAND_TEST_VAR", "true")
		b, ok, err := env.Bool("STRAND_TEST_VAR")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(b).To(BeTrue())

		os.Setenv("STRAND_TEST_VAR", "false")
		b, ok, err = env.Bool("STRAND_TEST_VAR")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(b).To(BeFalse())
	})

	It("rejects other values", func() {
		os.Setenv("STRAND_TEST_VAR", "yes")

		_, _, err := env.Bool("STRAND_TEST_VAR")
		Expect(err).To(HaveOccurred())
	})
})
