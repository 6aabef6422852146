package options_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/strand/strand-go/src/strand/options"
	"github.com/strand/strand-go/src/strand/resilience"
)

var _ = Describe("NewOptions", func() {
	It("applies sensible defaults", func() {
		o, err := options.NewOptions()

		Expect(err).ShouldNot(HaveOccurred())
		Expect(o.DefaultTimeout).To(Equal(5 * time.Second))
		Expect(o.Logger).NotTo(BeNil())
		Expect(o.Tracer).NotTo(BeNil())
		Expect(o.Retry).To(Equal(resilience.DefaultRetry()))
		Expect(o.FailureThreshold).To(Equal(uint(resilience.DefaultFailureThreshold)))
		Expect(o.CircuitCooldown).To(Equal(resilience.DefaultCooldown))
		Expect(o.NotifyBuffer).To(Equal(uint(16)))
		Expect(o.StrictValidation).To(BeTrue())
		Expect(o.Product).To(Equal(""))
	})

	It("lets explicit options override the defaults", func() {
		logger := &twelf.StandardLogger{CaptureDebug: true}

		o, err := options.NewOptions(
			options.DefaultTimeout(time.Second),
			options.Logger(logger),
			options.Retry(resilience.ConservativeRetry()),
			options.FailureThreshold(9),
			options.CircuitCooldown(time.Minute),
			options.NotifyBuffer(64),
			options.StrictValidation(false),
			options.Product("my-app/1.3.0"),
		)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(o.DefaultTimeout).To(Equal(time.Second))
		Expect(o.Logger).To(BeIdenticalTo(logger))
		Expect(o.Retry).To(Equal(resilience.ConservativeRetry()))
		Expect(o.FailureThreshold).To(Equal(uint(9)))
		Expect(o.CircuitCooldown).To(Equal(time.Minute))
		Expect(o.NotifyBuffer).To(Equal(uint(64)))
		Expect(o.StrictValidation).To(BeFalse())
		Expect(o.Product).To(Equal("my-app/1.3.0"))
	})

	It("panics on a nil logger", func() {
		Expect(func() {
			options.NewOptions(options.Logger(nil))
		}).To(Panic())
	})

	It("panics on a nil tracer", func() {
		Expect(func() {
			options.NewOptions(options.Tracer(nil))
		}).To(Panic())
	})
})

var _ = Describe("FromEnv", func() {
	vars := []string{
		"STRAND_DEFAULT_TIMEOUT",
		"STRAND_LOG_DEBUG",
		"STRAND_FAILURE_THRESHOLD",
		"STRAND_CIRCUIT_COOLDOWN",
		"STRAND_NOTIFY_BUFFER",
		"STRAND_STRICT_VALIDATION",
		"STRAND_PRODUCT",
	}

	AfterEach(func() {
		for _, v := range vars {
			os.Unsetenv(v)
		}
	})

	It("returns no options when nothing is set", func() {
		opts, err := options.FromEnv()

		Expect(err).ShouldNot(HaveOccurred())
		Expect(opts).To(BeEmpty())
	})

	It("reads values from the environment", func() {
		os.Setenv("STRAND_DEFAULT_TIMEOUT", "2500")
		os.Setenv("STRAND_FAILURE_THRESHOLD", "7")
		os.Setenv("STRAND_STRICT_VALIDATION", "false")
		os.Setenv("STRAND_PRODUCT", "my-app/1.3.0")

		opts, err := options.FromEnv()
		Expect(err).ShouldNot(HaveOccurred())

		o, err := options.NewOptions(opts...)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(o.DefaultTimeout).To(Equal(2500 * time.Millisecond))
		Expect(o.FailureThreshold).To(Equal(uint(7)))
		Expect(o.StrictValidation).To(BeFalse())
		Expect(o.Product).To(Equal("my-app/1.3.0"))
	})

	It("rejects malformed values", func() {
		os.Setenv("STRAND_DEFAULT_TIMEOUT", "soon")

		_, err := options.FromEnv()
		Expect(err).To(HaveOccurred())
	})

	It("rejects non-boolean debug flags", func() {
		os.Setenv("STRAND_LOG_DEBUG", "yes")

		_, err := options.FromEnv()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("FromFile", func() {
	write := func(content string) string {
		path := filepath.Join(GinkgoT().TempDir(), "strand.yml")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("reads values from a YAML file", func() {
		path := write(`
default_timeout: 2s
failure_threshold: 7
circuit_cooldown: 45s
notify_buffer: 64
strict_validation: false
product: my-app/1.3.0
`)

		opts, err := options.FromFile(path)
		Expect(err).ShouldNot(HaveOccurred())

		o, err := options.NewOptions(opts...)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(o.DefaultTimeout).To(Equal(2 * time.Second))
		Expect(o.FailureThreshold).To(Equal(uint(7)))
		Expect(o.CircuitCooldown).To(Equal(45 * time.Second))
		Expect(o.NotifyBuffer).To(Equal(uint(64)))
		Expect(o.StrictValidation).To(BeFalse())
		Expect(o.Product).To(Equal("my-app/1.3.0"))
	})

	It("leaves omitted fields at their defaults", func() {
		path := write(`product: my-app/1.3.0`)

		opts, err := options.FromFile(path)
		Expect(err).ShouldNot(HaveOccurred())

		o, err := options.NewOptions(opts...)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(o.DefaultTimeout).To(Equal(5 * time.Second))
		Expect(o.StrictValidation).To(BeTrue())
	})

	It("rejects malformed durations", func() {
		path := write(`default_timeout: soon`)

		_, err := options.FromFile(path)
		Expect(err).To(HaveOccurred())
	})

	It("rejects files that are not valid YAML", func() {
		path := write(`{{nope`)

		_, err := options.FromFile(path)
		Expect(err).To(HaveOccurred())
	})

	It("fails when the file does not exist", func() {
		_, err := options.FromFile("/nonexistent/strand.yml")
		Expect(err).To(HaveOccurred())
	})
})
