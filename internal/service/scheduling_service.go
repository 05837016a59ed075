package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Leganyst/consultation-calendar/internal/calendar"
	"github.com/Leganyst/consultation-calendar/internal/model"
	"github.com/Leganyst/consultation-calendar/internal/repository"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("booking conflict")
)

// Состояние слота для пары (день, время).
type SlotState string

const (
	SlotStateUnavailable SlotState = "UNAVAILABLE" // ни одно правило не накрывает слот
	SlotStateBlocked     SlotState = "BLOCKED"     // день попадает в период отсутствия
	SlotStateConflict    SlotState = "CONFLICT"    // пересечение с существующей записью
	SlotStateBookable    SlotState = "BOOKABLE"
)

type SchedulingOptions struct {
	// Проверять покрытие доступностью в CheckConflict. Историческая форма
	// записи такой проверки не делала, поэтому по умолчанию выключено.
	RequireAvailabilityCoverage bool

	// Шаг слота; нулевое значение — calendar.SlotStep.
	SlotStep time.Duration

	// Размер LRU-кэша покрытия дней; 0 — кэш выключен.
	CacheSize int
}

// SchedulingService — фасад календарного ядра: правила доступности,
// отсутствия, записи и ответы на вопросы "можно ли бронировать".
type SchedulingService struct {
	// Единственный писатель: назначение ID и проверка конфликтов обязаны
	// наблюдать согласованный снимок состояния.
	mu sync.Mutex

	apptRepo  repository.AppointmentRepository
	availRepo repository.AvailabilityRepository
	absRepo   repository.AbsenceRepository
	eventRepo repository.EventRepository

	opts SchedulingOptions
	log  *zap.Logger

	// Кэш покрытия дня: ключ — дата "2006-01-02", значение — объединение
	// интервалов времени суток всех правил, накрывающих день.
	// Сбрасывается целиком при добавлении правила.
	dayCache *lru.Cache[string, []model.ClockRange]
}

func NewSchedulingService(
	apptRepo repository.AppointmentRepository,
	availRepo repository.AvailabilityRepository,
	absRepo repository.AbsenceRepository,
	eventRepo repository.EventRepository,
	opts SchedulingOptions,
	log *zap.Logger,
) (*SchedulingService, error) {
	if opts.SlotStep <= 0 {
		opts.SlotStep = calendar.SlotStep
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &SchedulingService{
		apptRepo:  apptRepo,
		availRepo: availRepo,
		absRepo:   absRepo,
		eventRepo: eventRepo,
		opts:      opts,
		log:       log,
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []model.ClockRange](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("day cache: %w", err)
		}
		s.dayCache = cache
	}

	return s, nil
}

// SlotStep возвращает настроенный шаг слота.
func (s *SchedulingService) SlotStep() time.Duration {
	return s.opts.SlotStep
}

// AddAvailability валидирует и сохраняет правило доступности.
// ID назначается как максимум существующих + 1 (1 для пустого реестра).
func (s *SchedulingService) AddAvailability(ctx context.Context, rule *model.Availability) (*model.Availability, error) {
	switch rule.Kind {
	case model.AvailabilityKindOneTime:
		// Для разового правила конец всегда совпадает с началом.
		rule.EndDate = rule.StartDate
	case model.AvailabilityKindCyclic:
	default:
		return nil, fmt.Errorf("%w: unknown availability kind %q", ErrValidation, rule.Kind)
	}

	start := calendar.DateUTC(time.Time(rule.StartDate))
	end := calendar.DateUTC(time.Time(rule.EndDate))
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrValidation)
	}

	ranges, err := rule.Ranges()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed time ranges", ErrValidation)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: at least one time range is required", ErrValidation)
	}
	for _, r := range ranges {
		if !r.From.Time.Before(r.To.Time) {
			return nil, fmt.Errorf("%w: time range from >= to", ErrValidation)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maxID, err := s.availRepo.MaxID(ctx)
	if err != nil {
		return nil, fmt.Errorf("availability max id: %w", err)
	}
	rule.ID = maxID + 1

	if err := s.availRepo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("create availability: %w", err)
	}

	if s.dayCache != nil {
		s.dayCache.Purge()
	}

	s.recordEvent(ctx, model.EventTypeAvailabilityAdded, nil,
		fmt.Sprintf("availability %d (%s)", rule.ID, rule.Kind))
	s.log.Info("availability added",
		zap.Int64("id", rule.ID),
		zap.String("kind", string(rule.Kind)),
	)

	return rule, nil
}

// AddAbsence сохраняет период отсутствия и каскадно отменяет все
// подтверждённые записи, попавшие в него. Возвращает сохранённый период
// и число отменённых записей.
func (s *SchedulingService) AddAbsence(ctx context.Context, rec *model.Absence) (*model.Absence, int64, error) {
	start := calendar.DateUTC(time.Time(rec.StartDate))
	end := calendar.DateUTC(time.Time(rec.EndDate))
	if start.IsZero() {
		return nil, 0, fmt.Errorf("%w: start date is required", ErrValidation)
	}
	if end.IsZero() {
		// Однодневная форма.
		rec.EndDate = rec.StartDate
		end = start
	}
	if end.Before(start) {
		return nil, 0, fmt.Errorf("%w: end date before start date", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maxID, err := s.absRepo.MaxID(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("absence max id: %w", err)
	}
	rec.ID = maxID + 1

	if err := s.absRepo.Create(ctx, rec); err != nil {
		return nil, 0, fmt.Errorf("create absence: %w", err)
	}

	cancelled, err := s.apptRepo.CancelConfirmedInRange(ctx, start, end)
	if err != nil {
		return nil, 0, fmt.Errorf("cancel appointments in absence: %w", err)
	}

	s.recordEvent(ctx, model.EventTypeAbsenceAdded, nil,
		fmt.Sprintf("absence %d, cancelled %d appointments", rec.ID, cancelled))
	if cancelled > 0 {
		s.recordEvent(ctx, model.EventTypeAppointmentCancelled, nil,
			fmt.Sprintf("%d appointments cancelled by absence %d", cancelled, rec.ID))
	}
	s.log.Info("absence added",
		zap.Int64("id", rec.ID),
		zap.Int64("cancelled", cancelled),
	)

	return rec, cancelled, nil
}

// IsSlotAvailable — накрыт ли момент slot в день day хотя бы одним правилом.
// Правила просматриваются в порядке добавления с выходом на первом
// совпадении; при включённом кэше используется объединение интервалов дня.
func (s *SchedulingService) IsSlotAvailable(ctx context.Context, day, slot time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSlotAvailableLocked(ctx, day, slot)
}

func (s *SchedulingService) isSlotAvailableLocked(ctx context.Context, day, slot time.Time) (bool, error) {
	if s.dayCache != nil {
		ranges, err := s.dayRangesLocked(ctx, day)
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

	rules, err := s.availRepo.List(ctx)
	if err != nil {
		return false, err
	}
	for i := range rules {
		covers, err := rules[i].CoversDay(day)
		if err != nil {
			return false, err
		}
		if !covers {
			continue
		}
		ok, err := rules[i].CoversSlot(day, slot)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// dayRangesLocked возвращает интервалы времени суток, накрытые правилами
// в день day, из кэша либо пересчитывает.
func (s *SchedulingService) dayRangesLocked(ctx context.Context, day time.Time) ([]model.ClockRange, error) {
	key := calendar.DateOnly(day).Format("2006-01-02")
	if ranges, ok := s.dayCache.Get(key); ok {
		return ranges, nil
	}

	rules, err := s.availRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	// Пустой срез тоже кэшируем: "день без приёма" — частый запрос сетки.
	ranges := []model.ClockRange{}
	for i := range rules {
		covers, err := rules[i].CoversDay(day)
		if err != nil {
			return nil, err
		}
		if !covers {
			continue
		}
		rr, err := rules[i].Ranges()
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, rr...)
	}

	s.dayCache.Add(key, ranges)
	return ranges, nil
}

// IsDayBlocked — попадает ли день хотя бы в один период отсутствия.
func (s *SchedulingService) IsDayBlocked(ctx context.Context, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDayBlockedLocked(ctx, day)
}

func (s *SchedulingService) isDayBlockedLocked(ctx context.Context, day time.Time) (bool, error) {
	recs, err := s.absRepo.List(ctx)
	if err != nil {
		return false, err
	}
	for i := range recs {
		if recs[i].Covers(day) {
			return true, nil
		}
	}
	return false, nil
}

// CheckConflict — конфликтует ли интервал [start, end) в день day
// с отсутствием либо с существующей неотменённой записью. Покрытие
// доступностью проверяется только при RequireAvailabilityCoverage.
func (s *SchedulingService) CheckConflict(ctx context.Context, day, start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkConflictLocked(ctx, day, start, end)
}

func (s *SchedulingService) checkConflictLocked(ctx context.Context, day, start, end time.Time) (bool, error) {
	if s.opts.RequireAvailabilityCoverage {
		// Строгий режим: каждый слот интервала должен быть накрыт правилом.
		tr, err := calendar.NewTimeRange(start, end)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		slots, err := calendar.SplitToTimeSlots(tr, s.opts.SlotStep)
		if err != nil {
			return false, err
		}
		for _, slot := range slots {
			ok, err := s.isSlotAvailableLocked(ctx, day, slot.Start)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
	}

	// Сначала отсутствие: заблокированный день конфликтен независимо
	// от пересечений с записями.
	blocked, err := s.isDayBlockedLocked(ctx, day)
	if err != nil {
		return false, err
	}
	if blocked {
		return true, nil
	}

	return s.hasOverlapLocked(ctx, day, start, end)
}

// hasOverlapLocked — пересекается ли [start, end) хотя бы с одной
// неотменённой записью дня. Касание концами пересечением не считается.
func (s *SchedulingService) hasOverlapLocked(ctx context.Context, day, start, end time.Time) (bool, error) {
	appts, err := s.apptRepo.ListByDay(ctx, day)
	if err != nil {
		return false, err
	}
	target := calendar.TimeRange{Start: start, End: end}
	for i := range appts {
		if appts[i].Status == model.AppointmentStatusCancelled {
			continue
		}
		other := calendar.TimeRange{Start: appts[i].StartsAt, End: appts[i].EndsAt}
		if calendar.RangesOverlap(target, other, false) {
			return true, nil
		}
	}
	return false, nil
}

// SlotState — состояние слота для сетки: доступность, затем отсутствие,
// затем пересечения.
func (s *SchedulingService) SlotState(ctx context.Context, day, slot time.Time) (SlotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	available, err := s.isSlotAvailableLocked(ctx, day, slot)
	if err != nil {
		return "", err
	}
	if !available {
		return SlotStateUnavailable, nil
	}

	blocked, err := s.isDayBlockedLocked(ctx, day)
	if err != nil {
		return "", err
	}
	if blocked {
		return SlotStateBlocked, nil
	}

	overlap, err := s.hasOverlapLocked(ctx, day, slot, slot.Add(s.opts.SlotStep))
	if err != nil {
		return "", err
	}
	if overlap {
		return SlotStateConflict, nil
	}

	return SlotStateBookable, nil
}

// AddAppointment сохраняет запись в день day. ID назначается как
// 1 + максимум по всем дням (0 для пустого хранилища); "ведро" дня
// возникает само при первой записи.
func (s *SchedulingService) AddAppointment(ctx context.Context, day time.Time, appt *model.Appointment) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAppointmentLocked(ctx, day, appt)
}

func (s *SchedulingService) addAppointmentLocked(ctx context.Context, day time.Time, appt *model.Appointment) (*model.Appointment, error) {
	if appt.StartsAt.IsZero() || appt.EndsAt.IsZero() || !appt.EndsAt.After(appt.StartsAt) {
		return nil, fmt.Errorf("%w: invalid appointment time range", ErrValidation)
	}
	if appt.EndsAt.Sub(appt.StartsAt)%s.opts.SlotStep != 0 {
		return nil, fmt.Errorf("%w: duration must be a multiple of the slot step", ErrValidation)
	}
	if appt.Status == "" {
		appt.Status = model.AppointmentStatusConfirmed
	}
	if !appt.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, appt.Status)
	}

	maxID, err := s.apptRepo.MaxID(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointment max id: %w", err)
	}
	appt.ID = maxID + 1
	appt.Day = datatypes.Date(calendar.DateUTC(day))

	if err := s.apptRepo.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.recordEvent(ctx, model.EventTypeAppointmentCreated, &appt.ID,
		fmt.Sprintf("appointment %d (%s)", appt.ID, appt.Status))
	s.log.Info("appointment added",
		zap.Int64("id", appt.ID),
		zap.Time("starts_at", appt.StartsAt),
		zap.String("status", string(appt.Status)),
	)

	return appt, nil
}

// Reserve — бронирование из формы: slots слотов подряд, начиная со start.
// При конфликте возвращает ErrConflict, состояние не меняется.
func (s *SchedulingService) Reserve(
	ctx context.Context,
	day, start time.Time,
	slots int,
	consultationType, patientName string,
	toCart bool,
) (*model.Appointment, error) {
	if slots < 1 {
		return nil, fmt.Errorf("%w: slot count must be positive", ErrValidation)
	}
	if patientName == "" {
		return nil, fmt.Errorf("%w: patient name is required", ErrValidation)
	}
	end := start.Add(time.Duration(slots) * s.opts.SlotStep)

	s.mu.Lock()
	defer s.mu.Unlock()

	conflict, err := s.checkConflictLocked(ctx, day, start, end)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrConflict
	}

	status := model.AppointmentStatusConfirmed
	if toCart {
		status = model.AppointmentStatusInCart
	}

	return s.addAppointmentLocked(ctx, day, &model.Appointment{
		StartsAt:    start,
		EndsAt:      end,
		Type:        consultationType,
		PatientName: patientName,
		Status:      status,
	})
}

// MarkStatus переводит запись в DONE или PAST (терминальные статусы,
// проставляемые извне — явной отметкой либо ходом времени).
func (s *SchedulingService) MarkStatus(ctx context.Context, id int64, status model.AppointmentStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: only DONE and PAST can be set externally", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appt == nil {
		// Отсутствие записи — допустимое состояние, не ошибка.
		return nil
	}
	return s.apptRepo.UpdateStatus(ctx, id, status)
}

// AppointmentsForSlot — записи дня, чей интервал [StartsAt, EndsAt)
// содержит момент slot. Неизвестный день — пустой срез.
func (s *SchedulingService) AppointmentsForSlot(ctx context.Context, day, slot time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appts, err := s.apptRepo.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	matched := make([]model.Appointment, 0, len(appts))
	for _, appt := range appts {
		if calendar.WithinHalfOpen(slot, appt.StartsAt, appt.EndsAt) {
			matched = append(matched, appt)
		}
	}
	return matched, nil
}

// CountForDay — размер "ведра" дня (0, если записей нет).
func (s *SchedulingService) CountForDay(ctx context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apptRepo.CountForDay(ctx, day)
}

// DayAppointmentsFor — записи одного дня в порядке добавления.
func (s *SchedulingService) DayAppointmentsFor(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apptRepo.ListByDay(ctx, day)
}

// DayAppointmentsList — все записи по дням, для отрисовки сетки.
func (s *SchedulingService) DayAppointmentsList(ctx context.Context) ([]model.DayAppointments, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apptRepo.ListDays(ctx)
}

// Availabilities — все правила в порядке добавления.
func (s *SchedulingService) Availabilities(ctx context.Context) ([]model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availRepo.List(ctx)
}

// RecentEvents — последние события аудита, новые первыми.
func (s *SchedulingService) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if s.eventRepo == nil {
		return nil, nil
	}
	return s.eventRepo.ListRecent(ctx, limit)
}

// Absences — все периоды отсутствия в порядке добавления.
func (s *SchedulingService) Absences(ctx context.Context) ([]model.Absence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.absRepo.List(ctx)
}

// recordEvent пишет событие аудита; сбой аудита не ломает операцию.
func (s *SchedulingService) recordEvent(ctx context.Context, typ model.EventType, apptID *int64, details string) {
	if s.eventRepo == nil {
		return
	}
	err := s.eventRepo.Record(ctx, &model.Event{
		EventType:     typ,
		AppointmentID: apptID,
		Details:       details,
	})
	if err != nil {
		s.log.Warn("record audit event", zap.Error(err))
	}
}
