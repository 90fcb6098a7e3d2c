package flow

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mjaros/paragon-bot/internal/category"
	"github.com/mjaros/paragon-bot/internal/chat"
	"github.com/mjaros/paragon-bot/internal/receipt"
)

var _ = Describe("Keywords", func() {
	keywords := DefaultKeywords()

	DescribeTable("Classify",
		func(answer string, expected Decision) {
			Expect(keywords.Classify(answer)).To(Equal(expected))
		},
		Entry("shared short form", "w", DecisionShared),
		Entry("shared english", "shared", DecisionShared),
		Entry("shared with spaces and case", "  W  ", DecisionShared),
		Entry("private", "p", DecisionPrivate),
		Entry("multi", "multi", DecisionMulti),
		Entry("multi short form", "m", DecisionMulti),
		Entry("manual", "manual", DecisionManual),
		Entry("unrecognized", "banana", DecisionUnrecognized),
		Entry("empty", "", DecisionUnrecognized),
	)

	It("should recognize yes and no answers", func() {
		Expect(keywords.IsYes("t")).To(BeTrue())
		Expect(keywords.IsYes("tak")).To(BeTrue())
		Expect(keywords.IsNo("nie")).To(BeTrue())
		Expect(keywords.IsYes("nie")).To(BeFalse())
	})
})

var _ = Describe("ParseSelection", func() {
	It("should parse comma-separated 1-based indices", func() {
		Expect(ParseSelection("1,3", 3)).To(Equal([]int{1, 3}))
	})

	It("should tolerate spaces", func() {
		Expect(ParseSelection(" 2 , 3 ", 3)).To(Equal([]int{2, 3}))
	})

	It("should drop out-of-range indices", func() {
		Expect(ParseSelection("99", 3)).To(BeEmpty())
		Expect(ParseSelection("0,2", 3)).To(Equal([]int{2}))
	})

	It("should drop non-numeric tokens", func() {
		Expect(ParseSelection("a,2,!", 3)).To(Equal([]int{2}))
	})
})

var _ = Describe("ToggleItems", func() {
	It("should restore the original flag when toggled twice", func() {
		items := []receipt.LineItem{{Name: "A", IsShared: true}, {Name: "B"}}

		ToggleItems(items, []int{1, 2})
		Expect(items[0].IsShared).To(BeFalse())
		Expect(items[1].IsShared).To(BeTrue())

		ToggleItems(items, []int{1, 2})
		Expect(items[0].IsShared).To(BeTrue())
		Expect(items[1].IsShared).To(BeFalse())
	})
})

var _ = Describe("ParsePrice", func() {
	It("should parse dot decimals into cents", func() {
		Expect(ParsePrice("69.99")).To(Equal(6999))
	})

	It("should parse comma decimals into cents", func() {
		Expect(ParsePrice("164,99")).To(Equal(16499))
	})

	It("should parse whole amounts", func() {
		Expect(ParsePrice("12")).To(Equal(1200))
	})

	It("should reject negative prices", func() {
		_, err := ParsePrice("-1.50")
		Expect(receipt.IsValidation(err)).To(BeTrue())
	})

	It("should reject non-numeric input", func() {
		_, err := ParsePrice("cheap")
		Expect(receipt.IsValidation(err)).To(BeTrue())
	})
})

var _ = Describe("ParseProductLine", func() {
	var dir *category.Directory
	keywords := DefaultKeywords()

	BeforeEach(func() {
		dir = category.Default()
	})

	It("should parse a full product line", func() {
		item, err := ParseProductLine("Mleko; 4,99; FOD", dir, true, keywords)
		Expect(err).NotTo(HaveOccurred())
		Expect(item.Name).To(Equal("Mleko"))
		Expect(item.Price).To(Equal(499))
		Expect(item.Category).To(Equal("FOD"))
		Expect(item.IsShared).To(BeTrue())
	})

	It("should resolve the category by name", func() {
		item, err := ParseProductLine("Beer; 12.50; alcohol", dir, false, keywords)
		Expect(err).NotTo(HaveOccurred())
		Expect(item.Category).To(Equal("ALC"))
	})

	It("should honor the inline flag override", func() {
		item, err := ParseProductLine("Piwo; 12.50; ALC; p", dir, true, keywords)
		Expect(err).NotTo(HaveOccurred())
		Expect(item.IsShared).To(BeFalse())
	})

	It("should reject an unknown category", func() {
		_, err := ParseProductLine("Mleko; 4.99; XYZ", dir, true, keywords)
		Expect(receipt.IsValidation(err)).To(BeTrue())
	})

	It("should reject missing fields", func() {
		_, err := ParseProductLine("Mleko; 4.99", dir, true, keywords)
		Expect(receipt.IsValidation(err)).To(BeTrue())
	})

	It("should reject an empty name", func() {
		_, err := ParseProductLine("; 4.99; FOD", dir, true, keywords)
		Expect(receipt.IsValidation(err)).To(BeTrue())
	})

	It("should reject an unknown override token", func() {
		_, err := ParseProductLine("Mleko; 4.99; FOD; maybe", dir, true, keywords)
		Expect(receipt.IsValidation(err)).To(BeTrue())
	})
})

var _ = Describe("Resolver", func() {
	var (
		conv     *fakeConv
		inbox    chan chat.Message
		resolver *Resolver
		items    []receipt.LineItem
	)

	BeforeEach(func() {
		conv = newFakeConv()
		inbox = make(chan chat.Message, 16)
		resolver = NewResolver(conv, NewCollector(conv, inbox), DefaultKeywords(), 20)
		items = []receipt.LineItem{
			{Name: "A", Price: 100},
			{Name: "B", Price: 200},
			{Name: "C", Price: 300},
		}
	})

	answer := func(texts ...string) {
		for _, t := range texts {
			inbox <- chat.Message{Text: t}
		}
	}

	It("should mark everything shared on a shared answer", func() {
		answer("w")

		Expect(resolver.Resolve(context.Background(), items)).To(Succeed())
		for _, item := range items {
			Expect(item.IsShared).To(BeTrue())
		}
	})

	It("should mark everything private on a private answer", func() {
		items[0].IsShared = true
		answer("p")

		Expect(resolver.Resolve(context.Background(), items)).To(Succeed())
		for _, item := range items {
			Expect(item.IsShared).To(BeFalse())
		}
	})

	It("should ignore unclassifiable answers before the mode is chosen", func() {
		answer("banana", "w")

		Expect(resolver.Resolve(context.Background(), items)).To(Succeed())
		Expect(items[0].IsShared).To(BeTrue())
	})

	When("the answer is multi", func() {
		It("should run the selection loop over a private baseline", func() {
			answer("m", "p", "1,2", "1", "99", "stop")

			Expect(resolver.Resolve(context.Background(), items)).To(Succeed())

			// "1,2" flips A and B; "1" flips A back; "99" changes nothing
			Expect(items[0].IsShared).To(BeFalse())
			Expect(items[1].IsShared).To(BeTrue())
			Expect(items[2].IsShared).To(BeFalse())
		})

		It("should report an invalid selection without mutating", func() {
			answer("m", "w", "99", "stop")

			Expect(resolver.Resolve(context.Background(), items)).To(Succeed())
			Expect(conv.Sent()).To(ContainElement(msgInvalidSelection))
			for _, item := range items {
				Expect(item.IsShared).To(BeTrue())
			}
		})

		It("should redisplay the list on show without mutating", func() {
			answer("m", "w", "show", "stop")

			Expect(resolver.Resolve(context.Background(), items)).To(Succeed())

			listed := 0
			for _, sent := range conv.Sent() {
				if strings.HasPrefix(sent, "1. A:") {
					listed++
				}
			}
			Expect(listed).To(BeNumerically(">=", 2))
		})

		It("should give up when the turn budget is spent", func() {
			resolver = NewResolver(conv, NewCollector(conv, inbox), DefaultKeywords(), 2)
			answer("m", "w", "1", "2")

			Expect(resolver.Resolve(context.Background(), items)).To(MatchError(ErrTurnsExceeded))
		})
	})
})
