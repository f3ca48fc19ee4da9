package journal

import (
	"time"

	"echo-moon/internal/lunar"
)

// DateLayout is the key format of a DayEntry.
const DateLayout = "2006-01-02"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Sense string

const (
	Visual Sense = "visual"
	Audio  Sense = "audio"
	Touch  Sense = "touch"
	Smell  Sense = "smell"
	Taste  Sense = "taste"
)

type FlowStatus string

const (
	StatusPending FlowStatus = "pending"
	StatusDone    FlowStatus = "done"
)

// Message is one dialogue turn.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// PracticeSession is the record of one finished guided session.
type PracticeSession struct {
	ID              string    `json:"id"`
	ScenarioID      string    `json:"scenario_id"`
	ScenarioTitle   string    `json:"scenario_title"`
	DurationSeconds int       `json:"duration_seconds"`
	TotalDuration   int       `json:"total_duration"`
	EnergyScore     int       `json:"energy_score"`
	Completed       bool      `json:"completed"`
	Timestamp       time.Time `json:"timestamp"`
}

// SensoryLog is one saved sensory-calibration observation.
type SensoryLog struct {
	ID         string    `json:"id"`
	SenseID    Sense     `json:"sense_id"`
	SenseTitle string    `json:"sense_title"`
	Prompt     string    `json:"prompt"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// TodayAwareness is the outcome of the daily card reflection.
type TodayAwareness struct {
	CardID          string     `json:"card_id"`
	ChatHistory     []Message  `json:"chat_history"`
	ComplexityScore int        `json:"complexity_score"`
	Status          FlowStatus `json:"status"`
	SelectedTitle   string     `json:"selected_title,omitempty"`
}

// TomorrowSeed is the small intention set for the next day.
type TomorrowSeed struct {
	CardID            string     `json:"card_id"`
	BlessingCompleted bool       `json:"blessing_completed"`
	EnergySeed        string     `json:"energy_seed"`
	AISuggestion      string     `json:"ai_suggestion,omitempty"`
	Status            FlowStatus `json:"status"`
	// Reviewed is set once the seed has been looked back on the next day.
	Reviewed bool `json:"reviewed,omitempty"`
	Achieved bool `json:"achieved,omitempty"`
}

// DayEntry aggregates everything recorded on one calendar day.
type DayEntry struct {
	Date           string            `json:"date"`
	MoonPhase      lunar.Phase       `json:"moon_phase"`
	Practices      []PracticeSession `json:"practices,omitempty"`
	SensoryLogs    []SensoryLog      `json:"sensory_logs,omitempty"`
	TodayAwareness *TodayAwareness   `json:"today_awareness,omitempty"`
	TomorrowSeed   *TomorrowSeed     `json:"tomorrow_seed,omitempty"`
}

// UserProfile is the owner's birth data, used for the natal phase.
type UserProfile struct {
	BirthDate     string `json:"birthDate"`
	BirthTime     string `json:"birthTime"`
	BirthLocation string `json:"birthLocation"`
	IsSkipped     bool   `json:"isSkipped,omitempty"`
}

// DefaultProfile is stored when the owner skips onboarding.
func DefaultProfile() UserProfile {
	return UserProfile{
		BirthDate:     "2000-01-01",
		BirthTime:     "00:00",
		BirthLocation: "Unknown",
		IsSkipped:     true,
	}
}
