package model

import (
	"time"

	"gorm.io/datatypes"
)

// Статус записи на консультацию.
type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusDone      AppointmentStatus = "DONE"
	AppointmentStatusPast      AppointmentStatus = "PAST"
	AppointmentStatusInCart    AppointmentStatus = "IN_CART"
)

// Valid проверяет, что статус принадлежит закрытому множеству.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusConfirmed,
		AppointmentStatusCancelled,
		AppointmentStatusDone,
		AppointmentStatusPast,
		AppointmentStatusInCart:
		return true
	}
	return false
}

// Terminal — статусы, из которых запись уже не переходит дальше.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusDone || s == AppointmentStatusPast
}

// appointments
type Appointment struct {
	// Идентификаторы назначаются ядром монотонно (1 + максимум по всем дням),
	// поэтому autoIncrement отключён.
	ID int64 `gorm:"primaryKey;autoIncrement:false"`

	// День, к которому относится запись (дата начала без времени).
	Day datatypes.Date `gorm:"type:date;not null;index"`

	StartsAt time.Time `gorm:"type:timestamp;not null;index"`
	EndsAt   time.Time `gorm:"type:timestamp;not null"`

	// Тип консультации — свободная категория ("первичный приём" и т.п.).
	Type        string `gorm:"type:varchar(128);not null"`
	PatientName string `gorm:"type:varchar(255);not null"`

	Status AppointmentStatus `gorm:"type:varchar(32);not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// DayAppointments — день календаря и упорядоченный список записей в нём.
// Отдельно не хранится: группа строится по полю Day при чтении.
type DayAppointments struct {
	Date         time.Time
	Appointments []Appointment
}
