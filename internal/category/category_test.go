package category_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mjaros/paragon-bot/internal/category"
)

func TestCategory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Category Suite")
}

var _ = Describe("Directory", func() {
	var dir *category.Directory

	BeforeEach(func() {
		var err error
		dir, err = category.New([]category.Category{
			{ID: "FOD", Name: "Food", Description: "Groceries"},
			{ID: "CHM", Name: "Chemicals", Description: "Cleaning products"},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Lookup", func() {
		It("should find a category by id", func() {
			c, ok := dir.Lookup("FOD")
			Expect(ok).To(BeTrue())
			Expect(c.Name).To(Equal("Food"))
		})

		It("should find a category by name", func() {
			c, ok := dir.Lookup("Chemicals")
			Expect(ok).To(BeTrue())
			Expect(c.ID).To(Equal("CHM"))
		})

		It("should ignore case and surrounding spaces", func() {
			c, ok := dir.Lookup("  fod ")
			Expect(ok).To(BeTrue())
			Expect(c.ID).To(Equal("FOD"))

			_, ok = dir.Lookup("cHeMiCaLs")
			Expect(ok).To(BeTrue())
		})

		It("should report unknown categories", func() {
			_, ok := dir.Lookup("XYZ")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("New", func() {
		It("should reject ids that are not three letters", func() {
			_, err := category.New([]category.Category{{ID: "FOOD", Name: "Food"}})
			Expect(err).To(HaveOccurred())
		})

		It("should reject categories without a name", func() {
			_, err := category.New([]category.Category{{ID: "FOD"}})
			Expect(err).To(HaveOccurred())
		})

		It("should reject an empty set", func() {
			_, err := category.New(nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Load", func() {
		It("should load categories from a YAML file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "categories.yaml")
			content := "- id: FOD\n  name: Food\n  description: Groceries\n- id: ALC\n  name: Alcohol\n"
			Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())

			loaded, err := category.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.All()).To(HaveLen(2))

			c, ok := loaded.Lookup("alcohol")
			Expect(ok).To(BeTrue())
			Expect(c.ID).To(Equal("ALC"))
		})

		It("should fail on a missing file", func() {
			_, err := category.Load("nonexistent.yaml")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Default", func() {
		It("should resolve the built-in set", func() {
			d := category.Default()
			_, ok := d.Lookup("food")
			Expect(ok).To(BeTrue())
			_, ok = d.Lookup("OTH")
			Expect(ok).To(BeTrue())
		})
	})
})
