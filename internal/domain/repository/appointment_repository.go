package repository

import (
	"time"

	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindAll(db *gorm.DB) ([]entity.Appointment, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByDate(db *gorm.DB, date time.Time) ([]entity.Appointment, error)
	FindByStatus(db *gorm.DB, status entity.AppointmentStatus) ([]entity.Appointment, error)
	// FindByDoctorInRange returns a doctor's appointments with a start in
	// [from, to), without hydrating relations; it feeds the scheduling core.
	FindByDoctorInRange(db *gorm.DB, doctorID uuid.UUID, from, to time.Time) ([]entity.Appointment, error)
	CountByDoctorID(db *gorm.DB, doctorID uuid.UUID) (int64, error)
	CountByPatientID(db *gorm.DB, patientID uuid.UUID) (int64, error)
	Update(db *gorm.DB, appointment *entity.Appointment) error
	UpdateStatus(db *gorm.DB, id uuid.UUID, status entity.AppointmentStatus) error
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
}
