package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/Leganyst/consultation-calendar/internal/calendar"
)

// absences — периоды отсутствия врача. Однодневное отсутствие записывается
// как StartDate == EndDate.
type Absence struct {
	ID int64 `gorm:"primaryKey;autoIncrement:false"`

	StartDate datatypes.Date `gorm:"type:date;not null;index"`
	EndDate   datatypes.Date `gorm:"type:date;not null;index"`

	Reason string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Covers — входит ли день в период отсутствия, обе границы включительно.
func (a *Absence) Covers(day time.Time) bool {
	return calendar.WithinClosed(
		calendar.DateUTC(day),
		calendar.DateUTC(time.Time(a.StartDate)),
		calendar.DateUTC(time.Time(a.EndDate)),
	)
}
