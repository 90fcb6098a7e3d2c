package flow

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mjaros/paragon-bot/internal/chat"
)

var _ = Describe("Collector", func() {
	var (
		conv      *fakeConv
		inbox     chan chat.Message
		collector *Collector
	)

	BeforeEach(func() {
		conv = newFakeConv()
		inbox = make(chan chat.Message, 16)
		collector = NewCollector(conv, inbox)
	})

	Describe("Await", func() {
		It("should return the first message passing the filter", func() {
			inbox <- chat.Message{Text: "not this one"}
			inbox <- chat.Message{Text: "42"}

			answer, err := collector.Await(context.Background(), func(s string) bool {
				return s == "42"
			}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("42"))
		})

		It("should accept any message with a nil filter", func() {
			inbox <- chat.Message{Text: "anything"}

			answer, err := collector.Await(context.Background(), nil, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("anything"))
		})

		It("should return ErrTimeout when the timeout elapses first", func() {
			_, err := collector.Await(context.Background(), nil, 20*time.Millisecond)
			Expect(err).To(MatchError(ErrTimeout))
		})

		It("should stop on context cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := collector.Await(ctx, nil, 0)
			Expect(err).To(MatchError(context.Canceled))
		})

		It("should report a closed channel", func() {
			close(inbox)

			_, err := collector.Await(context.Background(), nil, 0)
			Expect(err).To(MatchError(ErrChannelClosed))
		})
	})

	Describe("AwaitValid", func() {
		It("should send the prompt first", func() {
			inbox <- chat.Message{Text: "ok"}

			_, err := collector.AwaitValid(context.Background(), "store name?", nil, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(conv.Sent()).To(ContainElement("store name?"))
		})

		It("should silently skip invalid answers", func() {
			inbox <- chat.Message{Text: "banana"}
			inbox <- chat.Message{Text: "also wrong"}
			inbox <- chat.Message{Text: "t"}

			answer, err := collector.AwaitValid(context.Background(), "?", func(s string) bool {
				return s == "t"
			}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("t"))
		})

		It("should give up when the turn budget is spent", func() {
			inbox <- chat.Message{Text: "wrong"}
			inbox <- chat.Message{Text: "still wrong"}

			_, err := collector.AwaitValid(context.Background(), "?", func(string) bool {
				return false
			}, 2)
			Expect(err).To(MatchError(ErrTurnsExceeded))
		})

		It("should reject a non-positive turn budget", func() {
			_, err := collector.AwaitValid(context.Background(), "?", nil, 0)
			Expect(err).To(HaveOccurred())
		})
	})
})
