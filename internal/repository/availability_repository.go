package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/consultation-calendar/internal/model"
)

type AvailabilityRepository interface {
	// Создать правило (ID уже назначен ядром).
	Create(ctx context.Context, rule *model.Availability) error
	// Все правила в порядке добавления.
	List(ctx context.Context) ([]model.Availability, error)
	// Максимальный назначенный ID (0 — правил нет).
	MaxID(ctx context.Context) (int64, error)
}

type GormAvailabilityRepository struct {
	db *gorm.DB
}

func NewGormAvailabilityRepository(db *gorm.DB) *GormAvailabilityRepository {
	return &GormAvailabilityRepository{db: db}
}

func (r *GormAvailabilityRepository) Create(ctx context.Context, rule *model.Availability) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *GormAvailabilityRepository) List(ctx context.Context) ([]model.Availability, error) {
	var rules []model.Availability
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *GormAvailabilityRepository) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	err := r.db.WithContext(ctx).
		Model(&model.Availability{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, err
	}
	return maxID, nil
}
