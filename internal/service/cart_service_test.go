package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Leganyst/consultation-calendar/internal/model"
	"github.com/Leganyst/consultation-calendar/internal/repository"
)

// newCartFixture — планировщик и корзина поверх общего хранилища.
func newCartFixture(t *testing.T) (*SchedulingService, *CartService, repository.AppointmentRepository) {
	t.Helper()

	db := newTestDB(t)
	apptRepo := repository.NewGormAppointmentRepository(db)
	eventRepo := repository.NewGormEventRepository(db)

	svc, err := NewSchedulingService(
		apptRepo,
		repository.NewGormAvailabilityRepository(db),
		repository.NewGormAbsenceRepository(db),
		eventRepo,
		SchedulingOptions{},
		nil,
	)
	if err != nil {
		t.Fatalf("new scheduling service: %v", err)
	}
	return svc, NewCartService(apptRepo, eventRepo, nil), apptRepo
}

func reserveToCart(t *testing.T, svc *SchedulingService, cart *CartService, d time.Time, hour int) *model.Appointment {
	t.Helper()

	appt, err := svc.Reserve(context.Background(), d, at(t, d, hour, 0), 1, "recepta", "Jan Kowalski", true)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if appt.Status != model.AppointmentStatusInCart {
		t.Fatalf("expected IN_CART, got %s", appt.Status)
	}
	if err := cart.AddToCart(appt); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	return appt
}

func TestCart_SettleConfirmsAllItems(t *testing.T) {
	svc, cart, apptRepo := newCartFixture(t)
	ctx := context.Background()
	monday := day(t, 2025, 1, 6)

	first := reserveToCart(t, svc, cart, monday, 8)
	second := reserveToCart(t, svc, cart, monday, 9)

	settled, err := cart.Settle(ctx)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if len(settled) != 2 {
		t.Fatalf("expected 2 settled, got %d", len(settled))
	}

	for _, id := range []int64{first.ID, second.ID} {
		got, err := apptRepo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID %d: %v", id, err)
		}
		if got.Status != model.AppointmentStatusConfirmed {
			t.Fatalf("appointment %d: expected CONFIRMED, got %s", id, got.Status)
		}
	}

	if items := cart.Items(); len(items) != 0 {
		t.Fatalf("cart must be empty after settle, got %d items", len(items))
	}
}

func TestCart_SettleEmptyCart(t *testing.T) {
	_, cart, _ := newCartFixture(t)

	settled, err := cart.Settle(context.Background())
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if len(settled) != 0 {
		t.Fatalf("expected no settled items, got %d", len(settled))
	}
}

func TestCart_AddRequiresInCartStatus(t *testing.T) {
	svc, cart, _ := newCartFixture(t)
	monday := day(t, 2025, 1, 6)

	appt, err := svc.Reserve(context.Background(), monday, at(t, monday, 8, 0), 1, "recepta", "Jan Kowalski", false)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	err = cart.AddToCart(appt)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for CONFIRMED appointment, got %v", err)
	}
}

func TestCart_RemoveFromCart(t *testing.T) {
	svc, cart, _ := newCartFixture(t)
	monday := day(t, 2025, 1, 6)

	first := reserveToCart(t, svc, cart, monday, 8)
	second := reserveToCart(t, svc, cart, monday, 9)

	cart.RemoveFromCart(first.ID)
	items := cart.Items()
	if len(items) != 1 || items[0].ID != second.ID {
		t.Fatalf("expected only appointment %d in cart, got %+v", second.ID, items)
	}

	// Отсутствующий ID — no-op.
	cart.RemoveFromCart(999)
	if items := cart.Items(); len(items) != 1 {
		t.Fatalf("remove of unknown id must not change cart, got %d items", len(items))
	}
}

func TestCart_ClearKeepsStatuses(t *testing.T) {
	svc, cart, apptRepo := newCartFixture(t)
	ctx := context.Background()
	monday := day(t, 2025, 1, 6)

	appt := reserveToCart(t, svc, cart, monday, 8)

	cart.Clear()
	if items := cart.Items(); len(items) != 0 {
		t.Fatalf("cart must be empty after clear, got %d items", len(items))
	}

	got, err := apptRepo.GetByID(ctx, appt.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.AppointmentStatusInCart {
		t.Fatalf("clear must not touch statuses, got %s", got.Status)
	}
}

func TestCart_InCartBlocksSlot(t *testing.T) {
	svc, cart, _ := newCartFixture(t)
	monday := day(t, 2025, 1, 6)

	reserveToCart(t, svc, cart, monday, 8)

	// Отложенная бронь держит слот так же, как подтверждённая.
	_, err := svc.Reserve(context.Background(), monday, at(t, monday, 8, 0), 1, "recepta", "Anna Nowak", false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
