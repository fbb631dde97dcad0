package board_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulseboard.app/signals/internal/board"
	"pulseboard.app/signals/internal/model"
)

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }

var _ = Describe("BuildTaskBoard", func() {
	var (
		now      time.Time
		user     model.User
		settings model.PrioritizationSettings
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		user = model.User{ID: "user-1", Name: "Alex", RoleTitle: "Automation Lead"}
		settings = model.DefaultSettings()
	})

	byTitle := func(tasks []model.ScoredTask) map[string]model.ScoredTask {
		indexed := make(map[string]model.ScoredTask, len(tasks))
		for _, task := range tasks {
			indexed[task.Title] = task
		}
		return indexed
	}

	It("returns an empty board for no signals", func() {
		Expect(board.BuildTaskBoard(user, settings, nil, now)).To(BeEmpty())
	})

	Describe("column assignment", func() {
		It("places tasks by score thresholds and overdue state", func() {
			signals := []model.ActivitySignal{
				{Source: model.SourceManual, SourceID: "m1", Title: "Prepare board update", EventAt: now},
				{Source: model.SourceChat, SourceID: "c1", Title: "Review the deck", Author: strPtr("Nina"), IsMention: true, EventAt: now},
				{Source: model.SourceChat, SourceID: "c2", Title: "Review the budget", Author: strPtr("Nina"), IsMention: true, IsFlagged: true, EventAt: now},
				{Source: model.SourceEmail, SourceID: "e1", Title: "Send meeting notes", DueAt: timePtr(now.Add(-time.Hour)), EventAt: now},
			}

			tasks := byTitle(board.BuildTaskBoard(user, settings, signals, now))

			Expect(tasks["Prepare board update"].Column).To(Equal(model.ColumnNow))
			Expect(tasks["Review the deck"].Column).To(Equal(model.ColumnWaiting))
			Expect(tasks["Review the budget"].Column).To(Equal(model.ColumnNext))
			Expect(tasks["Send meeting notes"].Column).To(Equal(model.ColumnNow))
		})
	})

	Describe("confidence", func() {
		It("clamps into the advertised range", func() {
			signals := []model.ActivitySignal{
				{Source: model.SourceManual, SourceID: "m1", Title: "Prepare board update", EventAt: now},
				{Source: model.SourceEmail, SourceID: "e1", Title: "Send meeting notes", EventAt: now},
			}

			tasks := byTitle(board.BuildTaskBoard(user, settings, signals, now))

			Expect(tasks["Prepare board update"].Confidence).To(Equal(0.99))
			Expect(tasks["Send meeting notes"].Confidence).To(Equal(0.45))
		})

		It("increases with urgency flags", func() {
			base := model.ActivitySignal{
				Source:    model.SourceChat,
				SourceID:  "c1",
				Title:     "Review the deck",
				Author:    strPtr("Nina"),
				IsMention: true,
				EventAt:   now,
			}
			flagged := base
			flagged.SourceID = "c2"
			flagged.Title = "Review the budget"
			flagged.IsFlagged = true

			tasks := byTitle(board.BuildTaskBoard(user, settings, []model.ActivitySignal{base, flagged}, now))
			Expect(tasks["Review the budget"].Confidence).To(BeNumerically(">", tasks["Review the deck"].Confidence))
		})
	})

	Describe("deduplication", func() {
		It("keeps the most recent of repeated chat content", func() {
			older := model.ActivitySignal{
				Source:          model.SourceChat,
				SourceID:        "chat-D1-1",
				Title:           "Send the report",
				Author:          strPtr("Miguel"),
				Channel:         strPtr("DM"),
				IsDirectMessage: true,
				EventAt:         now.Add(-2 * time.Hour),
			}
			newer := older
			newer.SourceID = "chat-D1-2"
			newer.IsFlagged = true
			newer.EventAt = now.Add(-time.Hour)

			tasks := board.BuildTaskBoard(user, settings, []model.ActivitySignal{older, newer}, now)
			Expect(tasks).To(HaveLen(1))
			// flagged urgency only present on the newer occurrence
			Expect(tasks[0].Confidence).To(BeNumerically("~", 0.62, 0.001))
		})

		It("dedupes tracker entries by external id", func() {
			signals := []model.ActivitySignal{
				{Source: model.SourceTracker, SourceID: "OPS-7", Title: "Review approval OPS-7: access", EventAt: now.Add(-time.Hour)},
				{Source: model.SourceTracker, SourceID: "ops-7", Title: "Review approval OPS-7: access request", EventAt: now},
			}

			tasks := board.BuildTaskBoard(user, settings, signals, now)
			Expect(tasks).To(HaveLen(1))
			Expect(tasks[0].Title).To(Equal("Review approval OPS-7: access request"))
		})

		It("falls back to the source id when the title is empty", func() {
			signals := []model.ActivitySignal{
				{Source: model.SourceChat, SourceID: "c1", IsMention: true, EventAt: now},
				{Source: model.SourceChat, SourceID: "c2", IsMention: true, EventAt: now},
			}
			Expect(board.BuildTaskBoard(user, settings, signals, now)).To(HaveLen(2))
		})
	})

	Describe("rationale", func() {
		It("collects every contributing factor", func() {
			signal := model.ActivitySignal{
				Source:    model.SourceChat,
				SourceID:  "c1",
				Title:     "Fix automation pipeline urgent asap",
				Author:    strPtr("Maria <ceo@company.com>"),
				DueAt:     timePtr(now.Add(time.Hour)),
				IsMention: true,
				IsFlagged: true,
				EventAt:   now,
			}

			tasks := board.BuildTaskBoard(user, settings, []model.ActivitySignal{signal}, now)
			Expect(tasks).To(HaveLen(1))
			Expect(tasks[0].Why).To(Equal(
				"from Maria <ceo@company.com>; has a near deadline; contains urgency language; from a key stakeholder; matches Automation Lead focus"))
			Expect(tasks[0].Column).To(Equal(model.ColumnNow))
		})

		It("marks quiet signals as active", func() {
			signal := model.ActivitySignal{
				Source:   model.SourceEmail,
				SourceID: "e1",
				Title:    "Send meeting notes",
				EventAt:  now,
			}

			tasks := board.BuildTaskBoard(user, settings, []model.ActivitySignal{signal}, now)
			Expect(tasks[0].Why).To(Equal("active signal"))
		})

		It("credits upcoming meetings for calendar entries", func() {
			signal := model.ActivitySignal{
				Source:   model.SourceCalendar,
				SourceID: "cal1",
				Title:    "Prep for the ops sync",
				DueAt:    timePtr(now.Add(2 * time.Hour)),
				EventAt:  now,
			}

			tasks := board.BuildTaskBoard(user, settings, []model.ActivitySignal{signal}, now)
			Expect(tasks[0].Why).To(ContainSubstring("is tied to an upcoming meeting"))
			Expect(tasks[0].Column).To(Equal(model.ColumnNext))
		})
	})

	Describe("effort", func() {
		It("starts from the source base", func() {
			signals := []model.ActivitySignal{
				{Source: model.SourceChat, SourceID: "c1", Title: "Review deck", IsMention: true, EventAt: now},
				{Source: model.SourceEmail, SourceID: "e1", Title: "Review deck notes", EventAt: now},
				{Source: model.SourceCalendar, SourceID: "cal1", Title: "Ops sync prep", EventAt: now},
				{Source: model.SourceTracker, SourceID: "OPS-7", Title: "Approve access", EventAt: now},
				{Source: model.SourceManual, SourceID: "m1", Title: "Plan the week", EventAt: now},
			}

			tasks := byTitle(board.BuildTaskBoard(user, settings, signals, now))
			Expect(tasks["Review deck"].EffortMinutes).To(Equal(12))
			Expect(tasks["Review deck notes"].EffortMinutes).To(Equal(18))
			Expect(tasks["Ops sync prep"].EffortMinutes).To(Equal(25))
			Expect(tasks["Approve access"].EffortMinutes).To(Equal(22))
			Expect(tasks["Plan the week"].EffortMinutes).To(Equal(20))
		})

		It("adds a bounded size adjustment for long bodies", func() {
			signal := model.ActivitySignal{
				Source:   model.SourceEmail,
				SourceID: "e1",
				Title:    "Send the cost report",
				Body:     strPtr(strings.Repeat("x", 69)),
				EventAt:  now,
			}

			tasks := board.BuildTaskBoard(user, settings, []model.ActivitySignal{signal}, now)
			Expect(tasks[0].EffortMinutes).To(Equal(20))

			signal.Body = strPtr(strings.Repeat("x", 5000))
			tasks = board.BuildTaskBoard(user, settings, []model.ActivitySignal{signal}, now)
			Expect(tasks[0].EffortMinutes).To(Equal(38))
		})
	})

	Describe("bounding and order", func() {
		It("sorts by score and applies the task window", func() {
			settings.TaskMin = 1
			settings.TaskMax = 2

			signals := []model.ActivitySignal{
				{Source: model.SourceChat, SourceID: "c1", Title: "Review the deck", IsMention: true, EventAt: now},
				{Source: model.SourceManual, SourceID: "m1", Title: "Prepare board update", EventAt: now},
				{Source: model.SourceEmail, SourceID: "e1", Title: "Send meeting notes", DueAt: timePtr(now.Add(time.Hour)), EventAt: now},
			}

			tasks := board.BuildTaskBoard(user, settings, signals, now)
			Expect(tasks).To(HaveLen(2))
			Expect(tasks[0].Title).To(Equal("Prepare board update"))
			Expect(tasks[1].Title).To(Equal("Send meeting notes"))
		})

		It("never exceeds the hard cap", func() {
			settings.TaskMin = 5
			settings.TaskMax = 50

			signals := make([]model.ActivitySignal, 0, 30)
			for i := 0; i < 30; i++ {
				signals = append(signals, model.ActivitySignal{
					Source:   model.SourceManual,
					SourceID: strings.Repeat("m", i+1),
					Title:    "Task " + strings.Repeat("x", i+1),
					EventAt:  now.Add(-time.Duration(i) * time.Minute),
				})
			}

			Expect(board.BuildTaskBoard(user, settings, signals, now)).To(HaveLen(20))
		})
	})
})
