package jsontypes

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
	clockLayout    = "15:04"
)

// Date — календарная дата без времени суток, "2006-01-02" в JSON.
type Date struct {
	Date time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	parsed, err := time.ParseInLocation(dateLayout, str, time.Local)
	if err != nil {
		return fmt.Errorf("failed to parse date: %w", err)
	}

	*d = Date{Date: parsed}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Date.Format(dateLayout))
}

// DateTime — локальная дата со временем без таймзоны,
// "2006-01-02T15:04:05" в JSON. Зонные суффиксы (Z, +hh:mm) допускаются
// на входе и отбрасываются: ядро работает в одной неявной локальной зоне.
type DateTime struct {
	Date time.Time
}

func (t *DateTime) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	parsed, err := time.ParseInLocation(dateTimeLayout, str, time.Local)
	if err != nil {
		// Пробуем полный RFC3339 и оставляем только wall-clock.
		withZone, zerr := time.Parse(time.RFC3339, str)
		if zerr != nil {
			return fmt.Errorf("failed to parse datetime: %w", err)
		}
		parsed = time.Date(
			withZone.Year(), withZone.Month(), withZone.Day(),
			withZone.Hour(), withZone.Minute(), withZone.Second(),
			0, time.Local,
		)
	}

	*t = DateTime{Date: parsed}
	return nil
}

func (t DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Date.Format(dateTimeLayout))
}

// Clock — время суток "15:04" в JSON, дата не несёт смысла.
type Clock struct {
	Time time.Time
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	parsed, err := ParseClock(str)
	if err != nil {
		return err
	}

	*c = Clock{Time: parsed}
	return nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Time.Format(clockLayout))
}

// ParseClock разбирает строку "HH:MM".
func ParseClock(str string) (time.Time, error) {
	parsed, err := time.Parse(clockLayout, str)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse clock time: %w", err)
	}
	return parsed, nil
}

// At переносит время суток c на календарный день day.
func (c Clock) At(day time.Time) time.Time {
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		c.Time.Hour(), c.Time.Minute(), 0, 0,
		day.Location(),
	)
}
