package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Leganyst/consultation-calendar/internal/model"
	"github.com/Leganyst/consultation-calendar/internal/repository"
)

// CartService — отложенные брони до подтверждения. Позиции держатся
// в памяти в порядке добавления; сами записи уже лежат в хранилище
// со статусом IN_CART.
type CartService struct {
	mu sync.Mutex

	apptRepo  repository.AppointmentRepository
	eventRepo repository.EventRepository
	log       *zap.Logger

	items []model.Appointment
}

func NewCartService(
	apptRepo repository.AppointmentRepository,
	eventRepo repository.EventRepository,
	log *zap.Logger,
) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{
		apptRepo:  apptRepo,
		eventRepo: eventRepo,
		log:       log,
	}
}

// AddToCart ставит запись в очередь ожидания. Запись обязана быть
// уже созданной со статусом IN_CART.
func (c *CartService) AddToCart(appt *model.Appointment) error {
	if appt == nil {
		return fmt.Errorf("%w: nil appointment", ErrValidation)
	}
	if appt.Status != model.AppointmentStatusInCart {
		return fmt.Errorf("%w: appointment %d is not IN_CART", ErrValidation, appt.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, *appt)
	return nil
}

// RemoveFromCart убирает позицию по ID записи; отсутствующий ID — no-op.
func (c *CartService) RemoveFromCart(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := c.items[:0]
	for _, item := range c.items {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}
	c.items = filtered
}

// Items возвращает копию содержимого корзины в порядке добавления.
func (c *CartService) Items() []model.Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Appointment, len(c.items))
	copy(out, c.items)
	return out
}

// Settle подтверждает все позиции: каждая запись IN_CART переводится
// в CONFIRMED в хранилище, корзина очищается. Имитация оплаты.
func (c *CartService) Settle(ctx context.Context) ([]model.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	settled := make([]model.Appointment, 0, len(c.items))
	for _, item := range c.items {
		err := c.apptRepo.UpdateStatus(ctx, item.ID, model.AppointmentStatusConfirmed)
		if err != nil {
			// Корзину не трогаем: повторный Settle допустим.
			return nil, fmt.Errorf("settle appointment %d: %w", item.ID, err)
		}
		item.Status = model.AppointmentStatusConfirmed
		settled = append(settled, item)
	}

	c.items = nil

	if c.eventRepo != nil && len(settled) > 0 {
		err := c.eventRepo.Record(ctx, &model.Event{
			EventType: model.EventTypeCartSettled,
			Details:   fmt.Sprintf("settled %d appointments", len(settled)),
		})
		if err != nil {
			c.log.Warn("record audit event", zap.Error(err))
		}
	}

	c.log.Info("cart settled", zap.Int("count", len(settled)))
	return settled, nil
}

// Clear выбрасывает позиции без смены статусов — явная отмена корзины,
// в отличие от Settle.
func (c *CartService) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
