package service_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulseboard.app/signals/internal/chat"
	"pulseboard.app/signals/internal/service"
)

var _ = Describe("SelectConversations", func() {
	dm := func(id string) chat.Conversation {
		return chat.Conversation{ID: id, IsDM: true}
	}
	channel := func(id, name string, member bool) chat.Conversation {
		return chat.Conversation{ID: id, Name: name, IsMember: member}
	}

	It("puts direct messages before channels", func() {
		selected := service.SelectConversations([]chat.Conversation{
			channel("C1", "ai-enablement", true),
			dm("D1"),
			dm("D2"),
		}, []string{"#ai-enablement"})

		Expect(selected[0].ID).To(Equal("D1"))
		Expect(selected[1].ID).To(Equal("D2"))
		Expect(selected[2].ID).To(Equal("C1"))
	})

	It("matches key channels case- and prefix-insensitively", func() {
		selected := service.SelectConversations([]chat.Conversation{
			channel("C1", "AI-Enablement", true),
			channel("C2", "random", true),
		}, []string{"  #ai-enablement  "})

		Expect(selected).To(HaveLen(1))
		Expect(selected[0].ID).To(Equal("C1"))
	})

	It("ignores key channels the user is not a member of", func() {
		selected := service.SelectConversations([]chat.Conversation{
			channel("C1", "ai-enablement", false),
			channel("C2", "random", true),
		}, []string{"#ai-enablement"})

		Expect(selected).To(HaveLen(1))
		Expect(selected[0].ID).To(Equal("C2"))
	})

	It("samples member channels when no key channel matches", func() {
		conversations := []chat.Conversation{
			channel("C1", "alpha", true),
			channel("C2", "beta", true),
			channel("C3", "gamma", true),
			channel("C4", "delta", true),
			channel("C5", "epsilon", true),
			channel("C6", "zeta", true),
			channel("C7", "eta", true),
		}

		selected := service.SelectConversations(conversations, []string{"#leadership-sync"})
		Expect(selected).To(HaveLen(6))
		Expect(selected[0].ID).To(Equal("C1"))
		Expect(selected[5].ID).To(Equal("C6"))
	})

	It("deduplicates by conversation id", func() {
		selected := service.SelectConversations([]chat.Conversation{
			dm("D1"),
			dm("D1"),
			channel("C1", "ai-enablement", true),
		}, []string{"ai-enablement"})

		Expect(selected).To(HaveLen(2))
	})

	It("returns nothing for no conversations", func() {
		Expect(service.SelectConversations(nil, []string{"#ai-enablement"})).To(BeEmpty())
	})
})
