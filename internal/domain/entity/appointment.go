package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
)

// Valid reports whether s belongs to the closed status set.
// Any other value is rejected at the service boundary.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Appointment represents a booked 30-minute slot for a doctor and a patient.
// ScheduledAt is always stored in UTC at minute precision; the partial unique
// index on (doctor_id, scheduled_at) backs the availability check at the
// storage level.
type Appointment struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"doctor_id"`
	ScheduledAt time.Time         `gorm:"not null;index" json:"scheduled_at"`
	Reason      string            `gorm:"type:varchar(500)" json:"reason,omitempty"`
	Status      AppointmentStatus `gorm:"type:varchar(50);not null;default:'Pending';index" json:"status"`
	Notes       string            `gorm:"type:varchar(500)" json:"notes,omitempty"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Patient Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  Doctor  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate assigns an ID so inserts work on databases without a uuid default
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsPending checks if the appointment is still pending confirmation
func (a *Appointment) IsPending() bool {
	return a.Status == AppointmentStatusPending
}

// IsCancelled checks if the appointment has been cancelled.
// Cancelled appointments no longer block their slot.
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// IsCompleted checks if the appointment has been completed
func (a *Appointment) IsCompleted() bool {
	return a.Status == AppointmentStatusCompleted
}
