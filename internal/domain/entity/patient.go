package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient represents a person that books appointments
type Patient struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName    string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100);not null" json:"last_name"`
	NationalID   string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"national_id"`
	Email        string    `gorm:"type:varchar(100)" json:"email,omitempty"`
	Phone        string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	DateOfBirth  time.Time `gorm:"type:date;not null" json:"date_of_birth"`
	Address      string    `gorm:"type:varchar(200)" json:"address,omitempty"`
	RegisteredAt time.Time `gorm:"autoCreateTime" json:"registered_at"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:PatientID" json:"appointments,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}

// BeforeCreate assigns an ID so inserts work on databases without a uuid default
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
