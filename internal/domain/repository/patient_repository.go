package repository

import (
	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository interface {
	Create(db *gorm.DB, patient *entity.Patient) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Patient, error)
	FindAll(db *gorm.DB) ([]entity.Patient, error)
	FindByNationalID(db *gorm.DB, nationalID string) (*entity.Patient, error)
	ExistsByID(db *gorm.DB, id uuid.UUID) (bool, error)
	Update(db *gorm.DB, patient *entity.Patient) error
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
}
