package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type Database struct {
	db *sql.DB
}

func New(path string, logger *zap.Logger) (*Database, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	d := &Database{db: db}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("✅ База данных инициализирована", zap.String("path", path))
	return d, nil
}

func (d *Database) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS day_entries (
			date TEXT PRIMARY KEY,
			moon_phase TEXT NOT NULL,
			awareness TEXT,
			seed TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS practices (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			date TEXT NOT NULL REFERENCES day_entries(date),
			scenario_id TEXT NOT NULL,
			scenario_title TEXT NOT NULL,
			duration_seconds INTEGER NOT NULL,
			total_duration INTEGER NOT NULL,
			energy_score INTEGER CHECK(energy_score >= 10 AND energy_score <= 100),
			completed BOOLEAN DEFAULT 0,
			timestamp TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sensory_logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			date TEXT NOT NULL REFERENCES day_entries(date),
			sense_id TEXT NOT NULL,
			sense_title TEXT NOT NULL,
			prompt TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_practices_date ON practices(date)`,
		`CREATE INDEX IF NOT EXISTS idx_sensory_logs_date ON sensory_logs(date)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("ошибка создания таблицы: %w", err)
		}
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}
