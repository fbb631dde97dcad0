package chat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulseboard.app/signals/internal/chat"
)

// newTestServer routes each API method to a handler and records calls.
func newTestServer(handlers map[string]http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	for method, handler := range handlers {
		mux.HandleFunc("/"+method, handler)
	}
	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	ExpectWithOffset(1, json.NewEncoder(w).Encode(payload)).To(Succeed())
}

var _ = Describe("Token classes", func() {
	It("recognizes user tokens", func() {
		Expect(chat.IsUserToken("xoxp-123")).To(BeTrue())
		Expect(chat.IsUserToken("xwfp-123")).To(BeTrue())
		Expect(chat.IsUserToken("xoxs-123")).To(BeTrue())
		Expect(chat.IsUserToken("xoxb-123")).To(BeFalse())
	})

	It("recognizes bot tokens", func() {
		Expect(chat.IsBotToken("xoxb-123")).To(BeTrue())
		Expect(chat.IsBotToken("xoxp-123")).To(BeFalse())
	})
})

var _ = Describe("ListConversations", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("pages through the user-scoped listing with a user token", func() {
		var pages atomic.Int32
		server := newTestServer(map[string]http.HandlerFunc{
			"users.conversations": func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer xoxp-test"))
				Expect(r.URL.Query().Get("limit")).To(Equal("200"))

				page := pages.Add(1)
				cursor := ""
				if page == 1 {
					Expect(r.URL.Query().Get("cursor")).To(BeEmpty())
					cursor = "next-page"
				} else {
					Expect(r.URL.Query().Get("cursor")).To(Equal("next-page"))
				}
				writeJSON(w, map[string]any{
					"ok": true,
					"channels": []map[string]any{
						{"id": fmt.Sprintf("C%03d", page), "name": fmt.Sprintf("chan-%d", page), "is_member": true},
					},
					"response_metadata": map[string]any{"next_cursor": cursor},
				})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		conversations, err := client.ListConversations(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(conversations).To(HaveLen(2))
		Expect(pages.Load()).To(Equal(int32(2)))
	})

	It("falls back to the workspace listing when the user-scoped call fails", func() {
		server := newTestServer(map[string]http.HandlerFunc{
			"users.conversations": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"ok": false, "error": "missing_scope"})
			},
			"conversations.list": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{
					"ok": true,
					"channels": []map[string]any{
						{"id": "C001", "name": "general", "is_member": true},
					},
				})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		conversations, err := client.ListConversations(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(conversations).To(HaveLen(1))
		Expect(conversations[0].ID).To(Equal("C001"))
	})

	It("skips the user-scoped listing for non-user tokens", func() {
		var userScopedCalled atomic.Bool
		server := newTestServer(map[string]http.HandlerFunc{
			"users.conversations": func(w http.ResponseWriter, _ *http.Request) {
				userScopedCalled.Store(true)
				writeJSON(w, map[string]any{"ok": true})
			},
			"conversations.list": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"ok": true, "channels": []map[string]any{}})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxb-test", chat.WithBaseURL(server.URL))
		_, err := client.ListConversations(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(userScopedCalled.Load()).To(BeFalse())
	})

	It("deduplicates conversations across pages", func() {
		var pages atomic.Int32
		server := newTestServer(map[string]http.HandlerFunc{
			"users.conversations": func(w http.ResponseWriter, _ *http.Request) {
				page := pages.Add(1)
				cursor := ""
				if page == 1 {
					cursor = "more"
				}
				writeJSON(w, map[string]any{
					"ok": true,
					"channels": []map[string]any{
						{"id": "C001", "name": "general", "is_member": true},
						{"id": "D001", "is_im": true},
					},
					"response_metadata": map[string]any{"next_cursor": cursor},
				})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		conversations, err := client.ListConversations(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(conversations).To(HaveLen(2))
	})

	It("surfaces a categorized error when both listings fail", func() {
		server := newTestServer(map[string]http.HandlerFunc{
			"users.conversations": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"ok": false, "error": "not_allowed_token_type"})
			},
			"conversations.list": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"ok": false, "error": "not_allowed_token_type"})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		_, err := client.ListConversations(ctx)
		Expect(err).To(HaveOccurred())
		Expect(chat.Categorize(err)).To(Equal(chat.CategoryWrongTokenType))
	})
})

var _ = Describe("History", func() {
	It("requests the window inclusively and returns messages", func() {
		oldest := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
		server := newTestServer(map[string]http.HandlerFunc{
			"conversations.history": func(w http.ResponseWriter, r *http.Request) {
				query := r.URL.Query()
				Expect(query.Get("channel")).To(Equal("C042"))
				Expect(query.Get("oldest")).To(Equal(fmt.Sprintf("%d", oldest.Unix())))
				Expect(query.Get("limit")).To(Equal("120"))
				Expect(query.Get("inclusive")).To(Equal("true"))

				writeJSON(w, map[string]any{
					"ok": true,
					"messages": []map[string]any{
						{"ts": "1770710400.000100", "text": "hello", "user": "U001"},
					},
				})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		messages, err := client.History(context.Background(), "C042", oldest)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(HaveLen(1))
		Expect(messages[0].Text).To(Equal("hello"))
	})

	It("categorizes channel access errors", func() {
		server := newTestServer(map[string]http.HandlerFunc{
			"conversations.history": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"ok": false, "error": "not_in_channel"})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		_, err := client.History(context.Background(), "C042", time.Now())
		Expect(chat.Categorize(err)).To(Equal(chat.CategoryNotInChannel))
	})

	It("categorizes transport failures as history unavailable", func() {
		server := newTestServer(map[string]http.HandlerFunc{
			"conversations.history": func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		_, err := client.History(context.Background(), "C042", time.Now())
		Expect(chat.Categorize(err)).To(Equal(chat.CategoryHistoryUnavailable))
	})
})

var _ = Describe("Message", func() {
	It("parses the event time from ts", func() {
		message := chat.Message{TS: "1770710400.000100"}
		eventAt, ok := message.EventTime()
		Expect(ok).To(BeTrue())
		Expect(eventAt.Unix()).To(Equal(int64(1770710400)))
	})

	It("rejects missing or malformed ts", func() {
		_, ok := chat.Message{}.EventTime()
		Expect(ok).To(BeFalse())
		_, ok = chat.Message{TS: "not-a-ts"}.EventTime()
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("UserDisplayName", func() {
	It("memoizes lookups", func() {
		var calls atomic.Int32
		server := newTestServer(map[string]http.HandlerFunc{
			"users.info": func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				Expect(r.URL.Query().Get("user")).To(Equal("U001"))
				writeJSON(w, map[string]any{
					"ok": true,
					"user": map[string]any{
						"id":      "U001",
						"name":    "nina",
						"profile": map[string]any{"display_name": "Nina R"},
					},
				})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		ctx := context.Background()
		Expect(client.UserDisplayName(ctx, "u001")).To(Equal("Nina R"))
		Expect(client.UserDisplayName(ctx, "U001")).To(Equal("Nina R"))
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("caches the raw id on failure", func() {
		var calls atomic.Int32
		server := newTestServer(map[string]http.HandlerFunc{
			"users.info": func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				writeJSON(w, map[string]any{"ok": false, "error": "user_not_found"})
			},
		})
		defer server.Close()

		client := chat.NewClient("xoxp-test", chat.WithBaseURL(server.URL))
		ctx := context.Background()
		Expect(client.UserDisplayName(ctx, "U404")).To(Equal("U404"))
		Expect(client.UserDisplayName(ctx, "U404")).To(Equal("U404"))
		Expect(calls.Load()).To(Equal(int32(1)))
	})
})

var _ = Describe("Mentions", func() {
	It("extracts mentioned user ids", func() {
		ids := chat.MentionedUserIDs("hey <@U123ABC> and <@w456def|casey> look at this")
		Expect(ids).To(Equal([]string{"U123ABC", "W456DEF"}))
	})

	It("returns nil when nothing is mentioned", func() {
		Expect(chat.MentionedUserIDs("no mentions here")).To(BeNil())
	})

	DescribeTable("resolves the mention target",
		func(input chat.MentionTargetInput, want string) {
			Expect(chat.ResolveMentionTarget(input)).To(Equal(want))
		},
		Entry("configured wins", chat.MentionTargetInput{Configured: "u111aaa", AccountID: "U222BBB"}, "U111AAA"),
		Entry("account id next", chat.MentionTargetInput{AccountID: "u222bbb"}, "U222BBB"),
		Entry("id parsed from account name", chat.MentionTargetInput{AccountName: "Nina (U333CCC)"}, "U333CCC"),
		Entry("auth id for a user token", chat.MentionTargetInput{AuthUserID: "U444DDD", Token: "xoxp-1"}, "U444DDD"),
		Entry("auth id rejected for a bot token", chat.MentionTargetInput{AuthUserID: "U444DDD", Token: "xoxb-1"}, ""),
		Entry("nothing known", chat.MentionTargetInput{}, ""),
	)
})
