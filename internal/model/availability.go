package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/Leganyst/consultation-calendar/internal/calendar"
	"github.com/Leganyst/consultation-calendar/internal/jsontypes"
)

// Вид правила доступности.
type AvailabilityKind string

const (
	AvailabilityKindCyclic  AvailabilityKind = "CYCLIC"
	AvailabilityKindOneTime AvailabilityKind = "ONE_TIME"
)

// ClockRange — интервал времени суток [From, To), From < To.
type ClockRange struct {
	From jsontypes.Clock `json:"from"`
	To   jsontypes.Clock `json:"to"`
}

// availabilities
type Availability struct {
	ID int64 `gorm:"primaryKey;autoIncrement:false"`

	Kind AvailabilityKind `gorm:"type:varchar(16);not null"`

	StartDate datatypes.Date `gorm:"type:date;not null;index"`
	// Для ONE_TIME совпадает со StartDate.
	EndDate datatypes.Date `gorm:"type:date;not null;index"`

	// Дни недели для CYCLIC (0=воскресенье..6=суббота), JSON-массив.
	// Пустой массив — фильтра нет, правило действует каждый день.
	DaysOfWeek datatypes.JSON `gorm:"type:jsonb"`

	// Интервалы времени суток: [{"from":"08:00","to":"12:00"}, ...].
	TimeRanges datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Weekdays декодирует DaysOfWeek.
func (a *Availability) Weekdays() ([]int, error) {
	if len(a.DaysOfWeek) == 0 {
		return nil, nil
	}
	var days []int
	if err := json.Unmarshal(a.DaysOfWeek, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// SetWeekdays кодирует дни недели в DaysOfWeek.
func (a *Availability) SetWeekdays(days []int) error {
	raw, err := json.Marshal(days)
	if err != nil {
		return err
	}
	a.DaysOfWeek = datatypes.JSON(raw)
	return nil
}

// Ranges декодирует TimeRanges.
func (a *Availability) Ranges() ([]ClockRange, error) {
	if len(a.TimeRanges) == 0 {
		return nil, nil
	}
	var ranges []ClockRange
	if err := json.Unmarshal(a.TimeRanges, &ranges); err != nil {
		return nil, err
	}
	return ranges, nil
}

// SetRanges кодирует интервалы в TimeRanges.
func (a *Availability) SetRanges(ranges []ClockRange) error {
	raw, err := json.Marshal(ranges)
	if err != nil {
		return err
	}
	a.TimeRanges = datatypes.JSON(raw)
	return nil
}

// CoversDay — накрывает ли правило календарный день day:
// день лежит в [StartDate, EndDate] включительно, для ONE_TIME совпадает
// со StartDate, для CYCLIC день недели входит в DaysOfWeek (если тот задан).
func (a *Availability) CoversDay(day time.Time) (bool, error) {
	d := calendar.DateUTC(day)
	start := calendar.DateUTC(time.Time(a.StartDate))
	end := calendar.DateUTC(time.Time(a.EndDate))

	if !calendar.WithinClosed(d, start, end) {
		return false, nil
	}

	switch a.Kind {
	case AvailabilityKindOneTime:
		return calendar.SameDay(d, start), nil
	case AvailabilityKindCyclic:
		days, err := a.Weekdays()
		if err != nil {
			return false, err
		}
		if len(days) == 0 {
			return true, nil
		}
		for _, wd := range days {
			if int(d.Weekday()) == wd {
				return true, nil
			}
		}
		return false, nil
	}

	return false, nil
}

// CoversSlot — входит ли момент slot (время суток внутри day) хотя бы в один
// интервал правила, полуоткрыто: from <= slot < to.
func (a *Availability) CoversSlot(day, slot time.Time) (bool, error) {
	ranges, err := a.Ranges()
	if err != nil {
		return false, err
	}
	for _, r := range ranges {
		if calendar.WithinHalfOpen(slot, r.From.At(day), r.To.At(day)) {
			return true, nil
		}
	}
	return false, nil
}
