package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/consultation-calendar/internal/model"
)

type AbsenceRepository interface {
	// Создать период отсутствия (ID уже назначен ядром).
	Create(ctx context.Context, rec *model.Absence) error
	// Все периоды в порядке добавления.
	List(ctx context.Context) ([]model.Absence, error)
	// Максимальный назначенный ID (0 — периодов нет).
	MaxID(ctx context.Context) (int64, error)
}

type GormAbsenceRepository struct {
	db *gorm.DB
}

func NewGormAbsenceRepository(db *gorm.DB) *GormAbsenceRepository {
	return &GormAbsenceRepository{db: db}
}

func (r *GormAbsenceRepository) Create(ctx context.Context, rec *model.Absence) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormAbsenceRepository) List(ctx context.Context) ([]model.Absence, error) {
	var recs []model.Absence
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *GormAbsenceRepository) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	err := r.db.WithContext(ctx).
		Model(&model.Absence{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, err
	}
	return maxID, nil
}
