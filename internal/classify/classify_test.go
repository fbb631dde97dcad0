package classify_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulseboard.app/signals/common/llm"
	"pulseboard.app/signals/internal/classify"
)

type fakeLLM struct {
	chatFn func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
	calls  int
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	f.calls++
	if f.chatFn != nil {
		return f.chatFn(ctx, req, result)
	}
	return &llm.Response{}, nil
}

func (f *fakeLLM) Model() string { return "fake-model" }

func respondWith(result any, payload string) {
	ExpectWithOffset(1, json.Unmarshal([]byte(payload), result)).To(Succeed())
}

var _ = Describe("LLMClassifier", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("maps the structured verdict onto the classification", func() {
		backend := &fakeLLM{
			chatFn: func(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
				Expect(req.SchemaName).To(Equal("task_classification"))
				Expect(req.Temperature).To(HaveValue(BeZero()))
				respondWith(result, `{"is_task": true, "task_title": "Review the Q3 deck", "confidence": 82, "reason": "direct ask"}`)
				return &llm.Response{}, nil
			},
		}
		classifier := classify.NewLLMClassifier(backend)

		result := classifier.Classify(ctx, "can you review the q3 deck", classify.MessageContext{IsMention: true})
		Expect(result.IsTask).To(BeTrue())
		Expect(result.TaskTitle).To(Equal("Review the Q3 deck"))
		Expect(result.Confidence).To(BeNumerically("~", 0.82, 0.001))
		Expect(result.Reason).To(Equal("direct ask"))
	})

	It("clamps out-of-range confidence", func() {
		backend := &fakeLLM{
			chatFn: func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
				respondWith(result, `{"is_task": true, "task_title": "t", "confidence": 140, "reason": "r"}`)
				return &llm.Response{}, nil
			},
		}
		classifier := classify.NewLLMClassifier(backend)

		result := classifier.Classify(ctx, "message", classify.MessageContext{IsDirectMessage: true})
		Expect(result.Confidence).To(Equal(1.0))
	})

	It("retries once after a transient failure", func() {
		backend := &fakeLLM{}
		backend.chatFn = func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
			if backend.calls == 1 {
				return nil, errors.New("connection reset by peer")
			}
			respondWith(result, `{"is_task": true, "task_title": "Review the Q3 deck", "confidence": 70, "reason": "direct ask"}`)
			return &llm.Response{}, nil
		}
		classifier := classify.NewLLMClassifier(backend)

		result := classifier.Classify(ctx, "can you review the q3 deck", classify.MessageContext{IsMention: true})
		Expect(backend.calls).To(Equal(2))
		Expect(result.IsTask).To(BeTrue())
		Expect(result.TaskTitle).To(Equal("Review the Q3 deck"))
	})

	It("does not retry a cancelled context", func() {
		backend := &fakeLLM{
			chatFn: func(_ context.Context, _ llm.Request, _ any) (*llm.Response, error) {
				return nil, context.Canceled
			},
		}
		classifier := classify.NewLLMClassifier(backend)

		result := classifier.Classify(ctx, "message", classify.MessageContext{})
		Expect(backend.calls).To(Equal(1))
		Expect(result.Reason).To(Equal("classification failed"))
	})

	It("collapses backend errors to the conservative default", func() {
		backend := &fakeLLM{
			chatFn: func(_ context.Context, _ llm.Request, _ any) (*llm.Response, error) {
				return nil, errors.New("rate limited")
			},
		}
		classifier := classify.NewLLMClassifier(backend)

		result := classifier.Classify(ctx, "can you review the q3 deck", classify.MessageContext{IsMention: true})
		Expect(result.IsTask).To(BeFalse())
		Expect(result.TaskTitle).To(BeEmpty())
		Expect(result.Confidence).To(BeZero())
		Expect(result.Reason).To(Equal("classification failed"))
	})
})

var _ = Describe("HeuristicClassifier", func() {
	var (
		classifier *classify.HeuristicClassifier
		ctx        context.Context
	)

	BeforeEach(func() {
		classifier = classify.NewHeuristicClassifier()
		ctx = context.Background()
	})

	It("accepts an explicit request in a direct message", func() {
		result := classifier.Classify(ctx, "can you review the onboarding deck before the offsite", classify.MessageContext{IsDirectMessage: true})
		Expect(result.IsTask).To(BeTrue())
		Expect(result.TaskTitle).To(Equal("Review the onboarding deck before the offsite"))
		Expect(result.Confidence).To(Equal(0.85))
		Expect(result.Reason).To(Equal("explicit request"))
	})

	It("accepts an urgent message without request phrasing", func() {
		result := classifier.Classify(ctx, "need this deployed before eod, it is blocking the release team", classify.MessageContext{IsMention: true})
		Expect(result.IsTask).To(BeTrue())
		Expect(result.Reason).To(Equal("urgent request"))
	})

	DescribeTable("rejects with the cascade reason",
		func(message string, msgCtx classify.MessageContext, reason string) {
			result := classifier.Classify(context.Background(), message, msgCtx)
			Expect(result.IsTask).To(BeFalse())
			Expect(result.Reason).To(Equal(reason))
		},
		Entry("ambient channel message",
			"can you review the onboarding deck before the offsite",
			classify.MessageContext{},
			"not a DM or mention"),
		Entry("short message",
			"can you help",
			classify.MessageContext{IsDirectMessage: true},
			"too short"),
		Entry("greeting",
			"good morning everyone, hope the offsite prep is going well",
			classify.MessageContext{IsDirectMessage: true},
			"greeting"),
		Entry("acknowledgment",
			"thanks for sending that over, really appreciate the quick turnaround",
			classify.MessageContext{IsDirectMessage: true},
			"acknowledgment"),
		Entry("statement not request",
			"i have a question about the rollout process we discussed earlier",
			classify.MessageContext{IsDirectMessage: true},
			"statement not request"),
		Entry("no explicit request",
			"the quarterly numbers look better than the last report cycle",
			classify.MessageContext{IsMention: true},
			"no explicit request"),
	)
})

var _ = Describe("TitleFromText", func() {
	DescribeTable("derives a clean title",
		func(in, want string) {
			Expect(classify.TitleFromText(in)).To(Equal(want))
		},
		Entry("strips request prefix", "can you update the runbook", "Update the runbook"),
		Entry("strips formatting", "*please* review the _deploy_ checklist", "Review the deploy checklist"),
		Entry("first clause only", "update the dashboard. more context in thread", "Update the dashboard"),
		Entry("strips leading mention", "@maria update the dashboard", "Update the dashboard"),
		Entry("strips trailing thanks", "update the dashboard thanks!", "Update the dashboard"),
		Entry("strips reply prefix", "RE: update the dashboard", "Update the dashboard"),
		Entry("empty input", "   ", ""),
	)

	It("caps long titles with an ellipsis", func() {
		long := "review the extremely detailed migration plan covering every service dependency and rollout phase for the next three quarters"
		title := classify.TitleFromText(long)
		Expect(len(title)).To(BeNumerically("<=", 120))
		Expect(title).To(HaveSuffix("..."))
	})

	It("is used by the urgency helper's companions", func() {
		Expect(classify.IsUrgent("this is blocking the release")).To(BeTrue())
		Expect(classify.IsUrgent("see you at the offsite")).To(BeFalse())
	})
})
