package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/consultation-calendar/internal/calendar"
	"github.com/Leganyst/consultation-calendar/internal/model"
)

type AppointmentRepository interface {
	// Создать запись (ID уже назначен ядром).
	Create(ctx context.Context, appt *model.Appointment) error
	// Найти запись по ID. Отсутствие записи — не ошибка: (nil, nil).
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	// Записи дня в порядке добавления.
	ListByDay(ctx context.Context, day time.Time) ([]model.Appointment, error)
	// Все записи, сгруппированные по дням, дни по возрастанию.
	ListDays(ctx context.Context) ([]model.DayAppointments, error)
	// Максимальный назначенный ID по всем дням (0 — хранилище пусто).
	MaxID(ctx context.Context) (int64, error)
	// Количество записей дня (0, если дня нет).
	CountForDay(ctx context.Context, day time.Time) (int64, error)
	// Перевести все CONFIRMED записи в CANCELLED в диапазоне дат
	// (обе границы включительно). Возвращает число изменённых строк;
	// повторный вызов по тому же диапазону — no-op.
	CancelConfirmedInRange(ctx context.Context, from, to time.Time) (int64, error)
	// Обновить статус записи.
	UpdateStatus(ctx context.Context, id int64, status model.AppointmentStatus) error
}

// Реализация на GORM.
type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

// Ключ дня нормализуется к полуночи UTC: сравнение по колонке day не
// должно зависеть от зоны входного значения.
func dayKey(day time.Time) datatypes.Date {
	return datatypes.Date(calendar.DateUTC(day))
}

func (r *GormAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	return r.db.WithContext(ctx).Create(appt).Error
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.WithContext(ctx).First(&appt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *GormAppointmentRepository) ListByDay(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Where("day = ?", dayKey(day)).
		Order("id ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *GormAppointmentRepository) ListDays(ctx context.Context) ([]model.DayAppointments, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Order("day ASC, id ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}

	var days []model.DayAppointments
	for _, appt := range appts {
		date := calendar.DateUTC(time.Time(appt.Day))
		if n := len(days); n > 0 && calendar.SameDay(days[n-1].Date, date) {
			days[n-1].Appointments = append(days[n-1].Appointments, appt)
			continue
		}
		days = append(days, model.DayAppointments{
			Date:         date,
			Appointments: []model.Appointment{appt},
		})
	}
	return days, nil
}

func (r *GormAppointmentRepository) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, err
	}
	return maxID, nil
}

func (r *GormAppointmentRepository) CountForDay(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("day = ?", dayKey(day)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAppointmentRepository) CancelConfirmedInRange(ctx context.Context, from, to time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("day >= ? AND day <= ?", dayKey(from), dayKey(to)).
		Where("status = ?", model.AppointmentStatusConfirmed).
		Update("status", model.AppointmentStatusCancelled)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *GormAppointmentRepository) UpdateStatus(ctx context.Context, id int64, status model.AppointmentStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}
