package model

// User is the board owner a sync runs for. Account persistence is owned
// by the surrounding application; this core only reads identity fields.
type User struct {
	ID        string
	Email     string
	Name      string
	RoleTitle string
}

// PrioritizationSettings are the per-user tunables consumed read-only
// by the sync pipeline and the board engine. The three source weights
// are expected to sum to 1.0 but this core does not enforce it.
type PrioritizationSettings struct {
	KeyChannels []string
	KeyPeople   []string
	ExecSenders []string
	Keywords    []string

	WorkingHourStart int
	WorkingHourEnd   int

	TaskMin int
	TaskMax int

	ChannelWeight  float64
	EmailWeight    float64
	CalendarWeight float64
}

// DefaultSettings mirrors the seed profile shipped with the original
// product. Useful for tests and for callers without stored settings.
func DefaultSettings() PrioritizationSettings {
	return PrioritizationSettings{
		KeyChannels:      []string{"#ai-enablement", "#automation-requests", "#leadership-sync"},
		KeyPeople:        []string{"vp-product@company.com", "head-of-ops@company.com"},
		ExecSenders:      []string{"ceo@company.com", "cto@company.com", "cfo@company.com"},
		Keywords:         []string{"ASAP", "urgent", "EOD", "blocking", "today"},
		WorkingHourStart: 9,
		WorkingHourEnd:   18,
		TaskMin:          8,
		TaskMax:          20,
		ChannelWeight:    0.4,
		EmailWeight:      0.35,
		CalendarWeight:   0.25,
	}
}
