package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID    uuid.UUID `json:"doctor_id" validate:"required"`
	ScheduledAt string    `json:"scheduled_at" validate:"required"` // RFC3339; zone-less values are taken as UTC
	Reason      string    `json:"reason" validate:"omitempty,max=500"`
	Notes       string    `json:"notes" validate:"omitempty,max=500"`
}

type UpdateAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID    uuid.UUID `json:"doctor_id" validate:"required"`
	ScheduledAt string    `json:"scheduled_at" validate:"required"` // RFC3339; zone-less values are taken as UTC
	Status      string    `json:"status" validate:"required"`
	Reason      string    `json:"reason" validate:"omitempty,max=500"`
	Notes       string    `json:"notes" validate:"omitempty,max=500"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Response DTOs

type AppointmentResponse struct {
	ID          uuid.UUID        `json:"id"`
	PatientID   uuid.UUID        `json:"patient_id"`
	DoctorID    uuid.UUID        `json:"doctor_id"`
	Patient     *PatientResponse `json:"patient,omitempty"`
	Doctor      *DoctorResponse  `json:"doctor,omitempty"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	Reason      string           `json:"reason,omitempty"`
	Status      string           `json:"status"`
	Notes       string           `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type AvailableSlotsResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []string  `json:"slots"`
}
