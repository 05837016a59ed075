package server

import (
	"time"

	"github.com/Leganyst/consultation-calendar/internal/jsontypes"
	"github.com/Leganyst/consultation-calendar/internal/model"
)

type availabilityRequest struct {
	Kind       string            `json:"kind" binding:"required,oneof=CYCLIC ONE_TIME"`
	StartDate  jsontypes.Date    `json:"startDate" binding:"required"`
	EndDate    *jsontypes.Date   `json:"endDate"`
	DaysOfWeek []int             `json:"daysOfWeek" binding:"omitempty,dive,min=0,max=6"`
	TimeRanges []model.ClockRange `json:"timeRanges" binding:"required,min=1"`
}

type availabilityResponse struct {
	ID         int64              `json:"id"`
	Kind       string             `json:"kind"`
	StartDate  jsontypes.Date     `json:"startDate"`
	EndDate    jsontypes.Date     `json:"endDate"`
	DaysOfWeek []int              `json:"daysOfWeek"`
	TimeRanges []model.ClockRange `json:"timeRanges"`
}

type absenceRequest struct {
	StartDate jsontypes.Date  `json:"startDate" binding:"required"`
	EndDate   *jsontypes.Date `json:"endDate"`
	Reason    string          `json:"reason"`
}

type absenceResponse struct {
	ID        int64          `json:"id"`
	StartDate jsontypes.Date `json:"startDate"`
	EndDate   jsontypes.Date `json:"endDate"`
	Reason    string         `json:"reason"`
	Cancelled int64          `json:"cancelledAppointments,omitempty"`
}

type reserveRequest struct {
	Day         jsontypes.Date `json:"day" binding:"required"`
	Time        string         `json:"time" binding:"required"`
	SlotsCount  int            `json:"slotsCount" binding:"required,min=1"`
	Type        string         `json:"type" binding:"required"`
	PatientName string         `json:"patientName" binding:"required"`
}

type appointmentResponse struct {
	ID          int64              `json:"id"`
	Day         jsontypes.Date     `json:"day"`
	StartTime   jsontypes.DateTime `json:"startTime"`
	EndTime     jsontypes.DateTime `json:"endTime"`
	Type        string             `json:"type"`
	PatientName string             `json:"patientName"`
	Status      string             `json:"status"`
}

type dayAppointmentsResponse struct {
	Date         jsontypes.Date        `json:"date"`
	Appointments []appointmentResponse `json:"appointments"`
}

type eventResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
	AppointmentID *int64    `json:"appointmentId,omitempty"`
	Details       string    `json:"details"`
}

type slotStateResponse struct {
	Time  string `json:"time"`
	State string `json:"state"`
}

func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:          appt.ID,
		Day:         jsontypes.Date{Date: time.Time(appt.Day)},
		StartTime:   jsontypes.DateTime{Date: appt.StartsAt},
		EndTime:     jsontypes.DateTime{Date: appt.EndsAt},
		Type:        appt.Type,
		PatientName: appt.PatientName,
		Status:      string(appt.Status),
	}
}

func toAppointmentResponses(appts []model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		out = append(out, toAppointmentResponse(appt))
	}
	return out
}

func toAvailabilityResponse(rule *model.Availability) (availabilityResponse, error) {
	days, err := rule.Weekdays()
	if err != nil {
		return availabilityResponse{}, err
	}
	ranges, err := rule.Ranges()
	if err != nil {
		return availabilityResponse{}, err
	}
	return availabilityResponse{
		ID:         rule.ID,
		Kind:       string(rule.Kind),
		StartDate:  jsontypes.Date{Date: time.Time(rule.StartDate)},
		EndDate:    jsontypes.Date{Date: time.Time(rule.EndDate)},
		DaysOfWeek: days,
		TimeRanges: ranges,
	}, nil
}

func toAbsenceResponse(rec *model.Absence, cancelled int64) absenceResponse {
	return absenceResponse{
		ID:        rec.ID,
		StartDate: jsontypes.Date{Date: time.Time(rec.StartDate)},
		EndDate:   jsontypes.Date{Date: time.Time(rec.EndDate)},
		Reason:    rec.Reason,
		Cancelled: cancelled,
	}
}
