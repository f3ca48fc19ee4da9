package utils

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Calendar отвечает на вопрос «какой сегодня день» в часовом поясе владельца
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func NewCalendar(timezone string) *Calendar {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		// Fallback: UTC+8
		loc = time.FixedZone("CST", 8*60*60)
	}
	return &Calendar{loc: loc, now: time.Now}
}

// NewFixedCalendar используется в тестах: «сейчас» всегда равно now
func NewFixedCalendar(loc *time.Location, now time.Time) *Calendar {
	return &Calendar{loc: loc, now: func() time.Time { return now }}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now возвращает текущее время в поясе владельца
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today возвращает ключ сегодняшнего дня (YYYY-MM-DD)
func (c *Calendar) Today() string {
	return c.Now().Format(dateLayout)
}

func (c *Calendar) Yesterday() string {
	return c.Now().AddDate(0, 0, -1).Format(dateLayout)
}

// ParseDate парсит YYYY-MM-DD как полночь в поясе владельца
func (c *Calendar) ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, date, c.loc)
}

// FormatClock форматирует секунды как m:ss
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatDuration форматирует длительность практики для сводок
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%d 秒", seconds)
	}
	return fmt.Sprintf("%d 分 %d 秒", seconds/60, seconds%60)
}

// GetTimezoneInfo возвращает информацию о временной зоне
func (c *Calendar) GetTimezoneInfo() string {
	nowUTC := c.now().UTC()
	local := nowUTC.In(c.loc)

	_, offset := local.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}

	return fmt.Sprintf("🕐 当前时间：%s (UTC%s%d)\n   服务器时间：%s UTC",
		local.Format("15:04"), sign, offset/3600, nowUTC.Format("15:04"))
}
