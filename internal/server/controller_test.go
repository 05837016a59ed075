package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Leganyst/consultation-calendar/internal/model"
	"github.com/Leganyst/consultation-calendar/internal/repository"
	"github.com/Leganyst/consultation-calendar/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql DB: %v", err)
	}
	// Одно соединение: иначе пул откроет вторую пустую :memory: базу.
	sqlDB.SetMaxOpenConns(1)
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	apptRepo := repository.NewGormAppointmentRepository(db)
	eventRepo := repository.NewGormEventRepository(db)
	scheduling, err := service.NewSchedulingService(
		apptRepo,
		repository.NewGormAvailabilityRepository(db),
		repository.NewGormAbsenceRepository(db),
		eventRepo,
		service.SchedulingOptions{},
		nil,
	)
	if err != nil {
		t.Fatalf("new scheduling service: %v", err)
	}
	cart := service.NewCartService(apptRepo, eventRepo, nil)

	router := gin.New()
	NewCalendarController(scheduling, cart).RegisterRoutes(router)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

const reserveBody = `{
	"day": "2025-01-06",
	"time": "08:00",
	"slotsCount": 1,
	"type": "pierwsza wizyta",
	"patientName": "Jan Kowalski"
}`

func TestReserveEndpoint_CreateThenConflict(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/appointments", reserveBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &created)
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}
	if created.Status != string(model.AppointmentStatusConfirmed) {
		t.Fatalf("expected CONFIRMED, got %s", created.Status)
	}

	rec = do(t, router, http.MethodPost, "/api/v1/appointments", reserveBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double booking, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReserveEndpoint_ValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing patient", `{"day":"2025-01-06","time":"08:00","slotsCount":1,"type":"recepta"}`},
		{"bad time", `{"day":"2025-01-06","time":"8am","slotsCount":1,"type":"recepta","patientName":"Jan"}`},
		{"zero slots", `{"day":"2025-01-06","time":"08:00","slotsCount":0,"type":"recepta","patientName":"Jan"}`},
	}
	for _, tc := range cases {
		rec := do(t, router, http.MethodPost, "/api/v1/appointments", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tc.name, rec.Code, rec.Body.String())
		}
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"kind": "CYCLIC",
		"startDate": "2025-01-06",
		"endDate": "2025-01-12",
		"daysOfWeek": [1,2,3,4,5],
		"timeRanges": [{"from":"08:00","to":"12:00"}]
	}`
	rec := do(t, router, http.MethodPost, "/api/v1/availabilities", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// CYCLIC без endDate — отказ на границе HTTP.
	noEnd := `{
		"kind": "CYCLIC",
		"startDate": "2025-01-06",
		"timeRanges": [{"from":"08:00","to":"12:00"}]
	}`
	rec = do(t, router, http.MethodPost, "/api/v1/availabilities", noEnd)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without endDate, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/api/v1/availabilities", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rules []struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &rules)
	if len(rules) != 1 || rules[0].ID != 1 {
		t.Fatalf("expected single rule with id 1, got %+v", rules)
	}
}

func TestAbsenceEndpoint_CascadeReported(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/appointments", reserveBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/api/v1/absences",
		`{"startDate":"2025-01-06","endDate":"2025-01-07","reason":"urlop"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var absence struct {
		ID        int64 `json:"id"`
		Cancelled int64 `json:"cancelledAppointments"`
	}
	decode(t, rec, &absence)
	if absence.Cancelled != 1 {
		t.Fatalf("expected 1 cancelled appointment, got %d", absence.Cancelled)
	}
}

func TestSlotStateEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"kind": "ONE_TIME",
		"startDate": "2025-01-06",
		"timeRanges": [{"from":"08:00","to":"12:00"}]
	}`
	if rec := do(t, router, http.MethodPost, "/api/v1/availabilities", body); rec.Code != http.StatusCreated {
		t.Fatalf("add availability: %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, router, http.MethodGet, "/api/v1/slots/state?date=2025-01-06&time=09:00", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		State string `json:"state"`
	}
	decode(t, rec, &state)
	if state.State != string(service.SlotStateBookable) {
		t.Fatalf("expected BOOKABLE, got %s", state.State)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/slots/state?date=2025-01-06&time=13:00", "")
	decode(t, rec, &state)
	if state.State != string(service.SlotStateUnavailable) {
		t.Fatalf("expected UNAVAILABLE, got %s", state.State)
	}
}

func TestDaySlotsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/v1/slots?date=2025-01-06", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var grid struct {
		AppointmentCount int64 `json:"appointmentCount"`
		Slots            []struct {
			Time  string `json:"time"`
			State string `json:"state"`
		} `json:"slots"`
	}
	decode(t, rec, &grid)
	// Окно по умолчанию 08:00-14:00 с шагом 30 минут.
	if len(grid.Slots) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(grid.Slots))
	}
	if grid.Slots[0].Time != "08:00" || grid.Slots[11].Time != "13:30" {
		t.Fatalf("unexpected grid boundaries: %s .. %s", grid.Slots[0].Time, grid.Slots[11].Time)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/slots?date=2025-01-06&fromHour=14&toHour=8", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted window, got %d", rec.Code)
	}
}

func TestMarkStatusEndpoint(t *testing.T) {
	router := newTestRouter(t)

	if rec := do(t, router, http.MethodPost, "/api/v1/appointments", reserveBody); rec.Code != http.StatusCreated {
		t.Fatalf("reserve: %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, router, http.MethodPatch, "/api/v1/appointments/1/status", `{"status":"DONE"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	// CANCELLED извне не принимается.
	rec = do(t, router, http.MethodPatch, "/api/v1/appointments/1/status", `{"status":"CANCELLED"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCartEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/cart/items", reserveBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var item struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &item)
	if item.Status != string(model.AppointmentStatusInCart) {
		t.Fatalf("expected IN_CART, got %s", item.Status)
	}

	// Слот удерживается и отложенной бронью.
	rec = do(t, router, http.MethodPost, "/api/v1/appointments", reserveBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while item in cart, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/cart", "")
	var items []struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &items)
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("expected cart with appointment %d, got %+v", item.ID, items)
	}

	rec = do(t, router, http.MethodPost, "/api/v1/cart/settle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var settled struct {
		Settled []struct {
			Status string `json:"status"`
		} `json:"settled"`
	}
	decode(t, rec, &settled)
	if len(settled.Settled) != 1 || settled.Settled[0].Status != string(model.AppointmentStatusConfirmed) {
		t.Fatalf("expected one CONFIRMED settled item, got %+v", settled.Settled)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/cart", "")
	decode(t, rec, &items)
	if len(items) != 0 {
		t.Fatalf("expected empty cart after settle, got %+v", items)
	}
}

func TestEventsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	if rec := do(t, router, http.MethodPost, "/api/v1/appointments", reserveBody); rec.Code != http.StatusCreated {
		t.Fatalf("reserve: %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, router, http.MethodGet, "/api/v1/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var events []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	decode(t, rec, &events)
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	if events[0].Type != string(model.EventTypeAppointmentCreated) {
		t.Fatalf("expected appointment_created, got %s", events[0].Type)
	}
	if events[0].ID == "" {
		t.Fatalf("event id must be set")
	}
}

func TestListAppointmentsEndpoint_Paginated(t *testing.T) {
	router := newTestRouter(t)

	times := []string{"08:00", "08:30", "09:00"}
	for _, tm := range times {
		body := `{"day":"2025-01-06","time":"` + tm + `","slotsCount":1,"type":"recepta","patientName":"Jan Kowalski"}`
		if rec := do(t, router, http.MethodPost, "/api/v1/appointments", body); rec.Code != http.StatusCreated {
			t.Fatalf("reserve %s: %d: %s", tm, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, router, http.MethodGet, "/api/v1/appointments?date=2025-01-06&page=1&pageSize=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Items   []struct {
			ID int64 `json:"id"`
		} `json:"items"`
		Total   int  `json:"total"`
		HasNext bool `json:"hasNext"`
	}
	decode(t, rec, &page)
	if page.Total != 3 || len(page.Items) != 2 || !page.HasNext {
		t.Fatalf("unexpected page: %+v", page)
	}

	// Без параметра date — группировка по дням.
	rec = do(t, router, http.MethodGet, "/api/v1/appointments", "")
	var days []struct {
		Date         string `json:"date"`
		Appointments []struct {
			ID int64 `json:"id"`
		} `json:"appointments"`
	}
	decode(t, rec, &days)
	if len(days) != 1 || len(days[0].Appointments) != 3 {
		t.Fatalf("unexpected day grouping: %+v", days)
	}
}
