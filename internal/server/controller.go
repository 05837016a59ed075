package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/Leganyst/consultation-calendar/internal/calendar"
	"github.com/Leganyst/consultation-calendar/internal/jsontypes"
	"github.com/Leganyst/consultation-calendar/internal/model"
	"github.com/Leganyst/consultation-calendar/internal/service"
)

// Окно сетки по умолчанию, как в недельном календаре: 08:00–14:00.
const (
	defaultGridFromHour = 8
	defaultGridToHour   = 14
)

// CalendarController — тонкий HTTP-слой над фасадом планирования.
// Правил бронирования здесь нет: только разбор входа и коды ответов.
type CalendarController struct {
	scheduling *service.SchedulingService
	cart       *service.CartService
}

func NewCalendarController(scheduling *service.SchedulingService, cart *service.CartService) *CalendarController {
	return &CalendarController{
		scheduling: scheduling,
		cart:       cart,
	}
}

func (c *CalendarController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/availabilities", c.addAvailability)
		api.GET("/availabilities", c.listAvailabilities)

		api.POST("/absences", c.addAbsence)
		api.GET("/absences", c.listAbsences)

		api.POST("/appointments", c.reserve)
		api.GET("/appointments", c.listAppointments)
		api.PATCH("/appointments/:id/status", c.markStatus)

		api.GET("/slots", c.daySlots)
		api.GET("/slots/state", c.slotState)

		api.GET("/events", c.listEvents)

		api.GET("/cart", c.cartItems)
		api.POST("/cart/items", c.reserveToCart)
		api.DELETE("/cart/items/:id", c.removeFromCart)
		api.POST("/cart/settle", c.settleCart)
		api.POST("/cart/clear", c.clearCart)
	}
}

// respondError переводит ошибки ядра в коды HTTP: валидация — 400,
// конфликт брони — 409, остальное — 500.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": "requested time collides with an absence or another appointment"})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseDateParam(ctx *gin.Context, name string) (time.Time, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": name + " query parameter is required"})
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " format, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}

func (c *CalendarController) addAvailability(ctx *gin.Context) {
	var req availabilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := &model.Availability{
		Kind:      model.AvailabilityKind(req.Kind),
		StartDate: datatypes.Date(calendar.DateOnly(req.StartDate.Date)),
	}
	if req.EndDate != nil {
		rule.EndDate = datatypes.Date(calendar.DateOnly(req.EndDate.Date))
	} else if rule.Kind == model.AvailabilityKindCyclic {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "endDate is required for CYCLIC rules"})
		return
	}
	if err := rule.SetWeekdays(req.DaysOfWeek); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := rule.SetRanges(req.TimeRanges); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := c.scheduling.AddAvailability(ctx.Request.Context(), rule)
	if err != nil {
		respondError(ctx, err)
		return
	}

	resp, err := toAvailabilityResponse(stored)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

func (c *CalendarController) listAvailabilities(ctx *gin.Context) {
	rules, err := c.scheduling.Availabilities(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}

	out := make([]availabilityResponse, 0, len(rules))
	for i := range rules {
		resp, err := toAvailabilityResponse(&rules[i])
		if err != nil {
			respondError(ctx, err)
			return
		}
		out = append(out, resp)
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *CalendarController) addAbsence(ctx *gin.Context) {
	var req absenceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := &model.Absence{
		StartDate: datatypes.Date(calendar.DateOnly(req.StartDate.Date)),
		Reason:    req.Reason,
	}
	if req.EndDate != nil {
		rec.EndDate = datatypes.Date(calendar.DateOnly(req.EndDate.Date))
	}

	stored, cancelled, err := c.scheduling.AddAbsence(ctx.Request.Context(), rec)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, toAbsenceResponse(stored, cancelled))
}

func (c *CalendarController) listAbsences(ctx *gin.Context) {
	recs, err := c.scheduling.Absences(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}

	out := make([]absenceResponse, 0, len(recs))
	for i := range recs {
		out = append(out, toAbsenceResponse(&recs[i], 0))
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *CalendarController) reserveCommon(ctx *gin.Context, toCart bool) (*model.Appointment, bool) {
	var req reserveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	clock, err := jsontypes.ParseClock(req.Time)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid time format, expected HH:MM"})
		return nil, false
	}
	day := calendar.DateOnly(req.Day.Date)
	start := jsontypes.Clock{Time: clock}.At(day)

	appt, err := c.scheduling.Reserve(
		ctx.Request.Context(),
		day, start,
		req.SlotsCount,
		req.Type,
		req.PatientName,
		toCart,
	)
	if err != nil {
		respondError(ctx, err)
		return nil, false
	}
	return appt, true
}

func (c *CalendarController) reserve(ctx *gin.Context) {
	appt, ok := c.reserveCommon(ctx, false)
	if !ok {
		return
	}
	ctx.JSON(http.StatusCreated, toAppointmentResponse(*appt))
}

func (c *CalendarController) listAppointments(ctx *gin.Context) {
	if raw := ctx.Query("date"); raw != "" {
		day, ok := parseDateParam(ctx, "date")
		if !ok {
			return
		}

		appts, err := c.scheduling.DayAppointmentsFor(ctx.Request.Context(), day)
		if err != nil {
			respondError(ctx, err)
			return
		}

		page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(ctx.DefaultQuery("pageSize", "10"))
		paged := calendar.Paginate(toAppointmentResponses(appts), page, pageSize)

		ctx.JSON(http.StatusOK, gin.H{
			"items":    paged.Items,
			"page":     paged.Page,
			"pageSize": paged.PageSize,
			"total":    paged.Total,
			"hasNext":  paged.HasNext,
			"hasPrev":  paged.HasPrev,
		})
		return
	}

	days, err := c.scheduling.DayAppointmentsList(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}

	out := make([]dayAppointmentsResponse, 0, len(days))
	for _, day := range days {
		out = append(out, dayAppointmentsResponse{
			Date:         jsontypes.Date{Date: day.Date},
			Appointments: toAppointmentResponses(day.Appointments),
		})
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *CalendarController) markStatus(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment id"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=DONE PAST"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = c.scheduling.MarkStatus(ctx.Request.Context(), id, model.AppointmentStatus(req.Status))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *CalendarController) daySlots(ctx *gin.Context) {
	day, ok := parseDateParam(ctx, "date")
	if !ok {
		return
	}

	fromHour, _ := strconv.Atoi(ctx.DefaultQuery("fromHour", strconv.Itoa(defaultGridFromHour)))
	toHour, _ := strconv.Atoi(ctx.DefaultQuery("toHour", strconv.Itoa(defaultGridToHour)))
	if fromHour < 0 || toHour > 24 || fromHour >= toHour {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid hour window"})
		return
	}

	markers := calendar.SlotsBetween(day, fromHour, toHour, c.scheduling.SlotStep())
	out := make([]slotStateResponse, 0, len(markers))
	for _, marker := range markers {
		state, err := c.scheduling.SlotState(ctx.Request.Context(), day, marker)
		if err != nil {
			respondError(ctx, err)
			return
		}
		out = append(out, slotStateResponse{
			Time:  marker.Format("15:04"),
			State: string(state),
		})
	}

	count, err := c.scheduling.CountForDay(ctx.Request.Context(), day)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"date":             ctx.Query("date"),
		"appointmentCount": count,
		"slots":            out,
	})
}

func (c *CalendarController) slotState(ctx *gin.Context) {
	day, ok := parseDateParam(ctx, "date")
	if !ok {
		return
	}
	clockRaw := ctx.Query("time")
	clock, err := jsontypes.ParseClock(clockRaw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid time format, expected HH:MM"})
		return
	}
	slot := jsontypes.Clock{Time: clock}.At(day)

	state, err := c.scheduling.SlotState(ctx.Request.Context(), day, slot)
	if err != nil {
		respondError(ctx, err)
		return
	}

	appts, err := c.scheduling.AppointmentsForSlot(ctx.Request.Context(), day, slot)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"state":        string(state),
		"appointments": toAppointmentResponses(appts),
	})
}

func (c *CalendarController) listEvents(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	events, err := c.scheduling.RecentEvents(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, eventResponse{
			ID:            ev.ID.String(),
			Type:          string(ev.EventType),
			CreatedAt:     ev.CreatedAt,
			AppointmentID: ev.AppointmentID,
			Details:       ev.Details,
		})
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *CalendarController) cartItems(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, toAppointmentResponses(c.cart.Items()))
}

func (c *CalendarController) reserveToCart(ctx *gin.Context) {
	appt, ok := c.reserveCommon(ctx, true)
	if !ok {
		return
	}
	if err := c.cart.AddToCart(appt); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, toAppointmentResponse(*appt))
}

func (c *CalendarController) removeFromCart(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment id"})
		return
	}
	c.cart.RemoveFromCart(id)
	ctx.Status(http.StatusNoContent)
}

func (c *CalendarController) settleCart(ctx *gin.Context) {
	settled, err := c.cart.Settle(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"settled": toAppointmentResponses(settled)})
}

func (c *CalendarController) clearCart(ctx *gin.Context) {
	c.cart.Clear()
	ctx.Status(http.StatusNoContent)
}
