package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"echo-moon/internal/journal"
	"echo-moon/internal/lunar"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	Db *Database
}

func NewRepository(db *Database) *Repository {
	return &Repository{Db: db}
}

// ListDayEntries returns every entry with its practices and sensory logs,
// oldest date first.
func (r *Repository) ListDayEntries() ([]journal.DayEntry, error) {
	rows, err := r.Db.db.Query(`
		SELECT date, moon_phase, awareness, seed
		FROM day_entries
		ORDER BY date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []journal.DayEntry
	index := make(map[string]int)
	for rows.Next() {
		entry, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		index[entry.Date] = len(entries)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	practices, err := r.practices("")
	if err != nil {
		return nil, err
	}
	for date, list := range practices {
		if i, ok := index[date]; ok {
			entries[i].Practices = list
		}
	}

	logs, err := r.sensoryLogs("")
	if err != nil {
		return nil, err
	}
	for date, list := range logs {
		if i, ok := index[date]; ok {
			entries[i].SensoryLogs = list
		}
	}

	return entries, nil
}

func (r *Repository) GetDayEntry(date string) (journal.DayEntry, error) {
	row := r.Db.db.QueryRow(`
		SELECT date, moon_phase, awareness, seed
		FROM day_entries
		WHERE date = ?
	`, date)

	entry, err := scanDay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.DayEntry{}, ErrNotFound
	}
	if err != nil {
		return journal.DayEntry{}, err
	}

	practices, err := r.practices(date)
	if err != nil {
		return journal.DayEntry{}, err
	}
	entry.Practices = practices[date]

	logs, err := r.sensoryLogs(date)
	if err != nil {
		return journal.DayEntry{}, err
	}
	entry.SensoryLogs = logs[date]

	return entry, nil
}

// SaveDayEntry upserts the day row. Practices and sensory logs are
// append-only: rows already stored under the same id are left alone.
func (r *Repository) SaveDayEntry(entry journal.DayEntry) error {
	awareness, err := marshalOptional(entry.TodayAwareness)
	if err != nil {
		return err
	}
	seed, err := marshalOptional(entry.TomorrowSeed)
	if err != nil {
		return err
	}

	tx, err := r.Db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO day_entries (date, moon_phase, awareness, seed, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			moon_phase = excluded.moon_phase,
			awareness = excluded.awareness,
			seed = excluded.seed,
			updated_at = CURRENT_TIMESTAMP
	`, entry.Date, string(entry.MoonPhase), awareness, seed)
	if err != nil {
		return fmt.Errorf("ошибка сохранения дня %s: %w", entry.Date, err)
	}

	for _, p := range entry.Practices {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO practices
				(id, date, scenario_id, scenario_title, duration_seconds, total_duration, energy_score, completed, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, entry.Date, p.ScenarioID, p.ScenarioTitle, p.DurationSeconds, p.TotalDuration,
			p.EnergyScore, p.Completed, p.Timestamp.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("ошибка сохранения практики %s: %w", p.ID, err)
		}
	}

	for _, l := range entry.SensoryLogs {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO sensory_logs
				(id, date, sense_id, sense_title, prompt, content, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, l.ID, entry.Date, string(l.SenseID), l.SenseTitle, l.Prompt, l.Content,
			l.Timestamp.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("ошибка сохранения наблюдения %s: %w", l.ID, err)
		}
	}

	return tx.Commit()
}

func (r *Repository) GetValue(key string) (string, error) {
	var value string
	err := r.Db.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (r *Repository) SetValue(key, value string) error {
	_, err := r.Db.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (r *Repository) GetDailySummary(date string) (*DailySummary, error) {
	summary := &DailySummary{Date: date}

	err := r.Db.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN completed = 1 THEN 1 ELSE 0 END), 0) as completed,
			COALESCE(SUM(duration_seconds), 0) as seconds,
			COALESCE(MAX(energy_score), 0) as best
		FROM practices
		WHERE date = ?
	`, date).Scan(&summary.Practices, &summary.Completed, &summary.TotalSeconds, &summary.BestEnergy)
	if err != nil {
		return nil, err
	}

	err = r.Db.db.QueryRow("SELECT COUNT(*) FROM sensory_logs WHERE date = ?", date).Scan(&summary.SensoryLogs)
	if err != nil {
		return nil, err
	}

	var awareness, seed sql.NullString
	err = r.Db.db.QueryRow("SELECT awareness, seed FROM day_entries WHERE date = ?", date).Scan(&awareness, &seed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if awareness.Valid {
		var a journal.TodayAwareness
		if err := json.Unmarshal([]byte(awareness.String), &a); err != nil {
			return nil, err
		}
		summary.HasAwareness = true
		summary.SelectedTitle = a.SelectedTitle
	}
	summary.HasSeed = seed.Valid

	return summary, nil
}

func (r *Repository) GetWeeklyAnalytics(startDate, endDate string) (*WeeklyAnalytics, error) {
	analytics := &WeeklyAnalytics{
		StartDate:     startDate,
		EndDate:       endDate,
		ScenarioStats: make(map[string]ScenarioStat),
	}

	rows, err := r.Db.db.Query(`
		SELECT
			scenario_id,
			MAX(scenario_title) as title,
			COUNT(*) as total,
			SUM(CASE WHEN completed = 1 THEN 1 ELSE 0 END) as completed,
			SUM(duration_seconds) as seconds
		FROM practices
		WHERE date BETWEEN ? AND ?
		GROUP BY scenario_id
	`, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var stats ScenarioStat
		var seconds int
		if err := rows.Scan(&id, &stats.Title, &stats.Total, &stats.Completed, &seconds); err != nil {
			return nil, err
		}
		analytics.ScenarioStats[id] = stats
		analytics.TotalSessions += stats.Total
		analytics.TotalDone += stats.Completed
		analytics.TotalSeconds += seconds
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	err = r.Db.db.QueryRow(`
		SELECT AVG(energy_score) FROM practices WHERE date BETWEEN ? AND ?
	`, startDate, endDate).Scan(&avg)
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		analytics.AvgEnergy = avg.Float64
	}

	err = r.Db.db.QueryRow(`
		SELECT COUNT(*) FROM sensory_logs WHERE date BETWEEN ? AND ?
	`, startDate, endDate).Scan(&analytics.SensoryLogs)
	if err != nil {
		return nil, err
	}

	return analytics, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDay(s scanner) (journal.DayEntry, error) {
	var (
		entry     journal.DayEntry
		phase     string
		awareness sql.NullString
		seed      sql.NullString
	)
	if err := s.Scan(&entry.Date, &phase, &awareness, &seed); err != nil {
		return journal.DayEntry{}, err
	}
	entry.MoonPhase = lunar.Phase(phase)

	if awareness.Valid {
		entry.TodayAwareness = &journal.TodayAwareness{}
		if err := json.Unmarshal([]byte(awareness.String), entry.TodayAwareness); err != nil {
			return journal.DayEntry{}, fmt.Errorf("awareness %s: %w", entry.Date, err)
		}
	}
	if seed.Valid {
		entry.TomorrowSeed = &journal.TomorrowSeed{}
		if err := json.Unmarshal([]byte(seed.String), entry.TomorrowSeed); err != nil {
			return journal.DayEntry{}, fmt.Errorf("seed %s: %w", entry.Date, err)
		}
	}
	return entry, nil
}

// practices groups stored practices by date; an empty date loads all.
func (r *Repository) practices(date string) (map[string][]journal.PracticeSession, error) {
	rows, err := r.Db.db.Query(`
		SELECT date, id, scenario_id, scenario_title, duration_seconds, total_duration, energy_score, completed, timestamp
		FROM practices
		WHERE ? = '' OR date = ?
		ORDER BY seq
	`, date, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]journal.PracticeSession)
	for rows.Next() {
		var (
			day string
			p   journal.PracticeSession
			ts  string
		)
		err := rows.Scan(&day, &p.ID, &p.ScenarioID, &p.ScenarioTitle, &p.DurationSeconds,
			&p.TotalDuration, &p.EnergyScore, &p.Completed, &ts)
		if err != nil {
			return nil, err
		}
		if p.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, err
		}
		out[day] = append(out[day], p)
	}
	return out, rows.Err()
}

func (r *Repository) sensoryLogs(date string) (map[string][]journal.SensoryLog, error) {
	rows, err := r.Db.db.Query(`
		SELECT date, id, sense_id, sense_title, prompt, content, timestamp
		FROM sensory_logs
		WHERE ? = '' OR date = ?
		ORDER BY seq
	`, date, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]journal.SensoryLog)
	for rows.Next() {
		var (
			day   string
			l     journal.SensoryLog
			sense string
			ts    string
		)
		if err := rows.Scan(&day, &l.ID, &sense, &l.SenseTitle, &l.Prompt, &l.Content, &ts); err != nil {
			return nil, err
		}
		l.SenseID = journal.Sense(sense)
		if l.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, err
		}
		out[day] = append(out[day], l)
	}
	return out, rows.Err()
}

func marshalOptional[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
