package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SanitizeFilename", func() {
	It("should strip special characters", func() {
		Expect(SanitizeFilename("IMG_2024!@#.jpg")).To(Equal("IMG_2024.jpg"))
	})

	It("should collapse repeated spaces", func() {
		Expect(SanitizeFilename("my   receipt  photo.png")).To(Equal("my receipt photo.png"))
	})

	It("should fall back to a default base name", func() {
		Expect(SanitizeFilename("!!!.jpg")).To(Equal("receipt.jpg"))
	})

	It("should truncate very long base names", func() {
		long := ""
		for i := 0; i < 80; i++ {
			long += "a"
		}
		Expect(SanitizeFilename(long + ".jpg")).To(HaveLen(50 + 4))
	})
})

var _ = Describe("LocalPhotoStore", func() {
	var store *LocalPhotoStore

	BeforeEach(func() {
		var err error
		store, err = NewLocalPhotoStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should round-trip photo bytes", func() {
		path, err := store.Save("receipt.jpg", []byte("photo data"))
		Expect(err).NotTo(HaveOccurred())

		data, err := store.Get(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("photo data"))
	})

	It("should delete stored photos", func() {
		path, err := store.Save("receipt.jpg", []byte("photo data"))
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Delete(path)).To(Succeed())
		_, err = store.Get(path)
		Expect(err).To(HaveOccurred())
	})
})
