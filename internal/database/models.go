package database

// WeeklyAnalytics aggregates guided practice over one ISO week.
type WeeklyAnalytics struct {
	WeekNumber    int                     `json:"week_number"`
	StartDate     string                  `json:"start_date"`
	EndDate       string                  `json:"end_date"`
	TotalSessions int                     `json:"total_sessions"`
	TotalDone     int                     `json:"total_done"`
	TotalSeconds  int                     `json:"total_seconds"`
	AvgEnergy     float64                 `json:"avg_energy"`
	SensoryLogs   int                     `json:"sensory_logs"`
	ScenarioStats map[string]ScenarioStat `json:"scenario_stats"`
	Insights      string                  `json:"insights"`
}

type ScenarioStat struct {
	Title     string `json:"title"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// DailySummary is what the evening summary reports for one date.
type DailySummary struct {
	Date          string `json:"date"`
	Practices     int    `json:"practices"`
	Completed     int    `json:"completed"`
	TotalSeconds  int    `json:"total_seconds"`
	BestEnergy    int    `json:"best_energy"`
	SensoryLogs   int    `json:"sensory_logs"`
	HasAwareness  bool   `json:"has_awareness"`
	SelectedTitle string `json:"selected_title,omitempty"`
	HasSeed       bool   `json:"has_seed"`
}
