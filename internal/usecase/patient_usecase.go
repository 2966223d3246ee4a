package usecase

import (
	"context"
	"errors"
	"time"

	"medical-office-api/internal/converter"
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/domain/repository"
	"medical-office-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound        = errors.New("patient not found")
	ErrNationalIDExists       = errors.New("national ID already registered")
	ErrInvalidDateOfBirth     = errors.New("invalid date of birth, use YYYY-MM-DD")
	ErrPatientHasAppointments = errors.New("patient has appointments and cannot be deleted")
)

type PatientUsecase interface {
	CreatePatient(ctx context.Context, req *dto.CreatePatientRequest) (*dto.PatientResponse, error)
	GetPatient(ctx context.Context, patientID uuid.UUID) (*dto.PatientResponse, error)
	GetAllPatients(ctx context.Context) (*dto.PatientListResponse, error)
	UpdatePatient(ctx context.Context, patientID uuid.UUID, req *dto.UpdatePatientRequest) (*dto.PatientResponse, error)
	DeletePatient(ctx context.Context, patientID uuid.UUID) error
}

type patientUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	patientRepo     repository.PatientRepository
	appointmentRepo repository.AppointmentRepository
	auditService    service.AuditService
}

func NewPatientUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	patientRepo repository.PatientRepository,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
) PatientUsecase {
	return &patientUsecase{
		db:              db,
		log:             log,
		patientRepo:     patientRepo,
		appointmentRepo: appointmentRepo,
		auditService:    auditService,
	}
}

func (u *patientUsecase) CreatePatient(ctx context.Context, req *dto.CreatePatientRequest) (*dto.PatientResponse, error) {
	dateOfBirth, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, ErrInvalidDateOfBirth
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	existing, err := u.patientRepo.FindByNationalID(tx, req.NationalID)
	if err != nil {
		u.log.Warnf("Failed to check national ID %s: %+v", req.NationalID, err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrNationalIDExists
	}

	patient := &entity.Patient{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		NationalID:  req.NationalID,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: dateOfBirth,
		Address:     req.Address,
	}
	if err := u.patientRepo.Create(tx, patient); err != nil {
		u.log.Warnf("Failed to create patient: %+v", err)
		if isDuplicateKeyError(err, "national_id") {
			return nil, ErrNationalIDExists
		}
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, entity.AuditActionPatientCreate, "patient", patient.ID.String(), converter.PatientToResponse(patient)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.PatientToResponse(patient), nil
}

func (u *patientUsecase) GetPatient(ctx context.Context, patientID uuid.UUID) (*dto.PatientResponse, error) {
	patient, err := u.patientRepo.FindByID(u.db.WithContext(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", patientID, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	return converter.PatientToResponse(patient), nil
}

func (u *patientUsecase) GetAllPatients(ctx context.Context) (*dto.PatientListResponse, error) {
	patients, err := u.patientRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find all patients: %+v", err)
		return nil, err
	}

	return &dto.PatientListResponse{
		Patients: converter.PatientsToResponses(patients),
		Total:    len(patients),
	}, nil
}

func (u *patientUsecase) UpdatePatient(ctx context.Context, patientID uuid.UUID, req *dto.UpdatePatientRequest) (*dto.PatientResponse, error) {
	dateOfBirth, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, ErrInvalidDateOfBirth
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	patient, err := u.patientRepo.FindByID(tx, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", patientID, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	// Uniqueness check excludes the patient being updated
	withNationalID, err := u.patientRepo.FindByNationalID(tx, req.NationalID)
	if err != nil {
		u.log.Warnf("Failed to check national ID %s: %+v", req.NationalID, err)
		return nil, err
	}
	if withNationalID != nil && withNationalID.ID != patientID {
		return nil, ErrNationalIDExists
	}

	oldValue := converter.PatientToResponse(patient)

	patient.FirstName = req.FirstName
	patient.LastName = req.LastName
	patient.NationalID = req.NationalID
	patient.Email = req.Email
	patient.Phone = req.Phone
	patient.DateOfBirth = dateOfBirth
	patient.Address = req.Address

	if err := u.patientRepo.Update(tx, patient); err != nil {
		u.log.Warnf("Failed to update patient %s: %+v", patientID, err)
		if isDuplicateKeyError(err, "national_id") {
			return nil, ErrNationalIDExists
		}
		return nil, err
	}

	if err := u.auditService.LogUpdate(ctx, tx, entity.AuditActionPatientUpdate, "patient", patient.ID.String(), oldValue, converter.PatientToResponse(patient)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.PatientToResponse(patient), nil
}

func (u *patientUsecase) DeletePatient(ctx context.Context, patientID uuid.UUID) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	patient, err := u.patientRepo.FindByID(tx, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", patientID, err)
		return err
	}
	if patient == nil {
		return ErrPatientNotFound
	}

	// Referential restrict: deletion is rejected, never cascaded
	count, err := u.appointmentRepo.CountByPatientID(tx, patientID)
	if err != nil {
		u.log.Warnf("Failed to count appointments for patient %s: %+v", patientID, err)
		return err
	}
	if count > 0 {
		return ErrPatientHasAppointments
	}

	if _, err := u.patientRepo.Delete(tx, patientID); err != nil {
		u.log.Warnf("Failed to delete patient %s: %+v", patientID, err)
		return err
	}

	if err := u.auditService.LogDelete(ctx, tx, entity.AuditActionPatientDelete, "patient", patientID.String(), converter.PatientToResponse(patient)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	return nil
}
