package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Guard", func() {
	var guard *Guard

	BeforeEach(func() {
		guard = NewGuard()
	})

	It("should acquire when idle", func() {
		Expect(guard.TryAcquire()).To(BeTrue())
	})

	It("should refuse a second acquire while held", func() {
		Expect(guard.TryAcquire()).To(BeTrue())
		Expect(guard.TryAcquire()).To(BeFalse())
	})

	It("should acquire again after release", func() {
		Expect(guard.TryAcquire()).To(BeTrue())
		guard.Release()
		Expect(guard.TryAcquire()).To(BeTrue())
	})

	It("should tolerate release of an idle guard", func() {
		guard.Release()
		Expect(guard.TryAcquire()).To(BeTrue())
	})
})
