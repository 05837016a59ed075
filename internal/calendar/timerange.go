package calendar

import (
	"errors"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrSlotDuration     = errors.New("slot duration must be positive")
)

// SlotStep — длительность одного слота записи.
const SlotStep = 30 * time.Minute

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал и делает простую валидацию.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, ErrInvalidTimeRange
	}
	if !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// SlotsBetween возвращает отметки начала слотов внутри [startHour, endHour)
// в пределах суток day, с шагом step. step <= 0 — используется SlotStep.
func SlotsBetween(day time.Time, startHour, endHour int, step time.Duration) []time.Time {
	if step <= 0 {
		step = SlotStep
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, day.Location())

	var slots []time.Time
	for cur := start; cur.Before(end); cur = cur.Add(step) {
		slots = append(slots, cur)
	}
	return slots
}

// WithinHalfOpen: start <= p < end.
func WithinHalfOpen(p, start, end time.Time) bool {
	return !p.Before(start) && p.Before(end)
}

// WithinClosed: start <= p <= end.
func WithinClosed(p, start, end time.Time) bool {
	return !p.Before(start) && !p.After(end)
}

// SameDay — совпадение календарной даты без учёта времени суток.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly обнуляет время, оставляя только дату.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DateUTC нормализует дату в полночь UTC. Используется для сравнения чистых
// дат, прочитанных из разных источников: сравнение инстантов в разных зонах
// на границе суток даёт ложный сдвиг на день.
func DateUTC(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SplitToTimeSlots разбивает интервал на слоты фиксированной длительности.
// "Хвост" меньшей длительности, чем slotDuration, отбрасывается.
func SplitToTimeSlots(tr TimeRange, slotDuration time.Duration) ([]TimeRange, error) {
	if slotDuration <= 0 {
		return nil, ErrSlotDuration
	}
	if !tr.End.After(tr.Start) {
		return []TimeRange{}, nil
	}

	var slots []TimeRange
	for cur := tr.Start; !cur.Add(slotDuration).After(tr.End); cur = cur.Add(slotDuration) {
		slots = append(slots, TimeRange{Start: cur, End: cur.Add(slotDuration)})
	}
	return slots, nil
}

// RangesOverlap проверяет пересечение двух интервалов.
// inclusive = true — касание концами считается пересечением.
func RangesOverlap(a, b TimeRange, inclusive bool) bool {
	if inclusive {
		// [a.Start, a.End] и [b.Start, b.End] пересекаются,
		// если a.Start <= b.End && b.Start <= a.End
		return !a.Start.After(b.End) && !b.Start.After(a.End)
	}

	// Полуоткрытые интервалы [Start, End)
	// пересекаются, если a.Start < b.End && b.Start < a.End
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
