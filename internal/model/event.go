package model

import (
	"time"

	"github.com/google/uuid"
)

// Тип события аудита.
type EventType string

const (
	EventTypeAppointmentCreated   EventType = "appointment_created"
	EventTypeAppointmentCancelled EventType = "appointment_cancelled"
	EventTypeAvailabilityAdded    EventType = "availability_added"
	EventTypeAbsenceAdded         EventType = "absence_added"
	EventTypeCartSettled          EventType = "cart_settled"
)

// events — события аудита
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	AppointmentID *int64 `gorm:"index"`

	Details string `gorm:"type:text"`
}
