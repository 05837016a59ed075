package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Leganyst/consultation-calendar/internal/calendar"
	"github.com/Leganyst/consultation-calendar/internal/jsontypes"
	"github.com/Leganyst/consultation-calendar/internal/model"
	"github.com/Leganyst/consultation-calendar/internal/repository"
)

// Формат начальной загрузки: дневной список записей из статического JSON.
type seedAppointment struct {
	ID          int64                   `json:"id"`
	StartTime   jsontypes.DateTime      `json:"startTime"`
	EndTime     jsontypes.DateTime      `json:"endTime"`
	Type        string                  `json:"type"`
	PatientName string                  `json:"patientName"`
	Status      model.AppointmentStatus `json:"status"`
}

type seedDay struct {
	Date         jsontypes.Date    `json:"date"`
	Appointments []seedAppointment `json:"appointments"`
}

// LoadSeed однократно заполняет хранилище записями из файла path.
// Вызывается на старте до начала обслуживания; пустой path — старт
// с пустым календарём. Возвращает число загруженных записей.
func LoadSeed(ctx context.Context, path string, apptRepo repository.AppointmentRepository, log *zap.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var days []seedDay
	if err := json.Unmarshal(raw, &days); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	count := 0
	for _, day := range days {
		for _, sa := range day.Appointments {
			if sa.ID <= 0 {
				return count, fmt.Errorf("seed: invalid appointment id %d", sa.ID)
			}
			if !sa.Status.Valid() {
				return count, fmt.Errorf("seed: unknown status %q for appointment %d", sa.Status, sa.ID)
			}
			if !sa.EndTime.Date.After(sa.StartTime.Date) {
				return count, fmt.Errorf("seed: invalid time range for appointment %d", sa.ID)
			}

			appt := model.Appointment{
				ID:          sa.ID,
				Day:         datatypes.Date(calendar.DateUTC(day.Date.Date)),
				StartsAt:    sa.StartTime.Date,
				EndsAt:      sa.EndTime.Date,
				Type:        sa.Type,
				PatientName: sa.PatientName,
				Status:      sa.Status,
			}
			if err := apptRepo.Create(ctx, &appt); err != nil {
				return count, fmt.Errorf("seed appointment %d: %w", sa.ID, err)
			}
			count++
		}
	}

	log.Info("seed appointments loaded",
		zap.String("path", path),
		zap.Int("count", count),
	)
	return count, nil
}
