package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"echo-moon/internal/database"
	"echo-moon/internal/journal"
	"echo-moon/internal/lunar"
)

const profileKey = "user_profile"

var ErrInvalidProfile = errors.New("invalid profile")

type ProfileService struct {
	repository *database.Repository
}

func NewProfileService(repo *database.Repository) *ProfileService {
	return &ProfileService{
		repository: repo,
	}
}

// Get возвращает сохранённый профиль; ok=false, если онбординг не пройден
func (ps *ProfileService) Get() (journal.UserProfile, bool, error) {
	raw, err := ps.repository.GetValue(profileKey)
	if errors.Is(err, database.ErrNotFound) {
		return journal.UserProfile{}, false, nil
	}
	if err != nil {
		return journal.UserProfile{}, false, err
	}

	var p journal.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return journal.UserProfile{}, false, fmt.Errorf("ошибка чтения профиля: %w", err)
	}
	return p, true, nil
}

// Save проверяет дату (YYYY-MM-DD) и время (HH:MM) рождения и сохраняет профиль
func (ps *ProfileService) Save(p journal.UserProfile) error {
	if _, err := time.Parse(journal.DateLayout, p.BirthDate); err != nil {
		return fmt.Errorf("%w: birth date %q", ErrInvalidProfile, p.BirthDate)
	}
	if p.BirthTime == "" {
		p.BirthTime = "00:00"
	}
	if _, err := time.Parse("15:04", p.BirthTime); err != nil {
		return fmt.Errorf("%w: birth time %q", ErrInvalidProfile, p.BirthTime)
	}
	p.BirthLocation = strings.TrimSpace(p.BirthLocation)
	if p.BirthLocation == "" {
		p.BirthLocation = "Unknown"
	}
	p.IsSkipped = false
	return ps.store(p)
}

func (ps *ProfileService) Skip() error {
	return ps.store(journal.DefaultProfile())
}

// NatalPhase считает лунную фазу даты рождения. Без профиля берётся
// профиль по умолчанию.
func (ps *ProfileService) NatalPhase() (lunar.Details, journal.UserProfile, error) {
	p, ok, err := ps.Get()
	if err != nil {
		return lunar.Details{}, journal.UserProfile{}, err
	}
	if !ok {
		p = journal.DefaultProfile()
	}

	day, err := time.Parse(journal.DateLayout, p.BirthDate)
	if err != nil {
		return lunar.Details{}, p, fmt.Errorf("%w: birth date %q", ErrInvalidProfile, p.BirthDate)
	}
	return lunar.Compute(day.Year(), day.Month(), day.Day()), p, nil
}

func (ps *ProfileService) store(p journal.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return ps.repository.SetValue(profileKey, string(data))
}
