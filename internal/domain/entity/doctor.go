package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Doctor represents a practitioner that can be booked for appointments
type Doctor struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName     string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName      string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Specialty     string    `gorm:"type:varchar(100);not null" json:"specialty"`
	LicenseNumber string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"license_number"`
	Email         string    `gorm:"type:varchar(100)" json:"email,omitempty"`
	Phone         string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	RegisteredAt  time.Time `gorm:"autoCreateTime" json:"registered_at"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"appointments,omitempty"`
}

func (Doctor) TableName() string {
	return "doctors"
}

// BeforeCreate assigns an ID so inserts work on databases without a uuid default
func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
