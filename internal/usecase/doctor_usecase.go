package usecase

import (
	"context"
	"errors"

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
	ErrDoctorNotFound        = errors.New("doctor not found")
	ErrLicenseExists         = errors.New("license number already registered")
	ErrDoctorHasAppointments = errors.New("doctor has appointments and cannot be deleted")
)

type DoctorUsecase interface {
	CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error)
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error)
	GetAllDoctors(ctx context.Context) (*dto.DoctorListResponse, error)
	UpdateDoctor(ctx context.Context, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error)
	DeleteDoctor(ctx context.Context, doctorID uuid.UUID) error
}

type doctorUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	doctorRepo      repository.DoctorRepository
	appointmentRepo repository.AppointmentRepository
	auditService    service.AuditService
}

func NewDoctorUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
) DoctorUsecase {
	return &doctorUsecase{
		db:              db,
		log:             log,
		doctorRepo:      doctorRepo,
		appointmentRepo: appointmentRepo,
		auditService:    auditService,
	}
}

func (u *doctorUsecase) CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	existing, err := u.doctorRepo.FindByLicenseNumber(tx, req.LicenseNumber)
	if err != nil {
		u.log.Warnf("Failed to check license %s: %+v", req.LicenseNumber, err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrLicenseExists
	}

	doctor := &entity.Doctor{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Specialty:     req.Specialty,
		LicenseNumber: req.LicenseNumber,
		Email:         req.Email,
		Phone:         req.Phone,
		IsActive:      true,
	}
	if err := u.doctorRepo.Create(tx, doctor); err != nil {
		u.log.Warnf("Failed to create doctor: %+v", err)
		if isDuplicateKeyError(err, "license_number") {
			return nil, ErrLicenseExists
		}
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, entity.AuditActionDoctorCreate, "doctor", doctor.ID.String(), converter.DoctorToResponse(doctor)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		// Don't fail the transaction for audit log errors
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetAllDoctors(ctx context.Context) (*dto.DoctorListResponse, error) {
	doctors, err := u.doctorRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find all doctors: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorsToResponses(doctors),
		Total:   len(doctors),
	}, nil
}

func (u *doctorUsecase) UpdateDoctor(ctx context.Context, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	doctor, err := u.doctorRepo.FindByID(tx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	// Uniqueness check excludes the doctor being updated: keeping an
	// unchanged license must not conflict with itself.
	withLicense, err := u.doctorRepo.FindByLicenseNumber(tx, req.LicenseNumber)
	if err != nil {
		u.log.Warnf("Failed to check license %s: %+v", req.LicenseNumber, err)
		return nil, err
	}
	if withLicense != nil && withLicense.ID != doctorID {
		return nil, ErrLicenseExists
	}

	oldValue := converter.DoctorToResponse(doctor)

	doctor.FirstName = req.FirstName
	doctor.LastName = req.LastName
	doctor.Specialty = req.Specialty
	doctor.LicenseNumber = req.LicenseNumber
	doctor.Email = req.Email
	doctor.Phone = req.Phone
	if req.IsActive != nil {
		doctor.IsActive = *req.IsActive
	}

	if err := u.doctorRepo.Update(tx, doctor); err != nil {
		u.log.Warnf("Failed to update doctor %s: %+v", doctorID, err)
		if isDuplicateKeyError(err, "license_number") {
			return nil, ErrLicenseExists
		}
		return nil, err
	}

	if err := u.auditService.LogUpdate(ctx, tx, entity.AuditActionDoctorUpdate, "doctor", doctor.ID.String(), oldValue, converter.DoctorToResponse(doctor)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) DeleteDoctor(ctx context.Context, doctorID uuid.UUID) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	doctor, err := u.doctorRepo.FindByID(tx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return err
	}
	if doctor == nil {
		return ErrDoctorNotFound
	}

	// Referential restrict: deletion is rejected, never cascaded
	count, err := u.appointmentRepo.CountByDoctorID(tx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to count appointments for doctor %s: %+v", doctorID, err)
		return err
	}
	if count > 0 {
		return ErrDoctorHasAppointments
	}

	if _, err := u.doctorRepo.Delete(tx, doctorID); err != nil {
		u.log.Warnf("Failed to delete doctor %s: %+v", doctorID, err)
		return err
	}

	if err := u.auditService.LogDelete(ctx, tx, entity.AuditActionDoctorDelete, "doctor", doctorID.String(), converter.DoctorToResponse(doctor)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	return nil
}
