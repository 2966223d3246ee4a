package usecase

import (
	"context"
	"errors"
	"time"

	"medical-office-api/internal/converter"
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/domain/repository"
	"medical-office-api/internal/scheduling"
	"medical-office-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrInvalidStartTime     = errors.New("invalid start time value")
	ErrPastDate             = errors.New("appointments must be booked from tomorrow onward")
	ErrOutsideBusinessHours = errors.New("start time outside business hours (09:00-17:30 UTC)")
	ErrSlotTaken            = errors.New("doctor already has an appointment in that slot")
	ErrInvalidStatus        = errors.New("invalid appointment status")
	ErrInvalidDate          = errors.New("invalid date, use YYYY-MM-DD")
)

type AppointmentUsecase interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	GetAllAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	GetAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AppointmentListResponse, error)
	GetAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error)
	GetAppointmentsByDate(ctx context.Context, date string) (*dto.AppointmentListResponse, error)
	GetAppointmentsByStatus(ctx context.Context, status string) (*dto.AppointmentListResponse, error)
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*dto.AppointmentResponse, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string, excludeID uuid.UUID) (*dto.AvailableSlotsResponse, error)
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorRepository
	patientRepo     repository.PatientRepository
	locker          service.BookingLocker
	slotCache       service.SlotCache
	auditService    service.AuditService
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	locker service.BookingLocker,
	slotCache service.SlotCache,
	auditService service.AuditService,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		locker:          locker,
		slotCache:       slotCache,
		auditService:    auditService,
	}
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetAllAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find all appointments: %+v", err)
		return nil, err
	}
	return listResponse(appointments), nil
}

func (u *appointmentUsecase) GetAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.AppointmentListResponse, error) {
	db := u.db.WithContext(ctx)

	exists, err := u.doctorRepo.ExistsByID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to check doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	appointments, err := u.appointmentRepo.FindByDoctorID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return listResponse(appointments), nil
}

func (u *appointmentUsecase) GetAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error) {
	db := u.db.WithContext(ctx)

	exists, err := u.patientRepo.ExistsByID(db, patientID)
	if err != nil {
		u.log.Warnf("Failed to check patient %s: %+v", patientID, err)
		return nil, err
	}
	if !exists {
		return nil, ErrPatientNotFound
	}

	appointments, err := u.appointmentRepo.FindByPatientID(db, patientID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", patientID, err)
		return nil, err
	}
	return listResponse(appointments), nil
}

func (u *appointmentUsecase) GetAppointmentsByDate(ctx context.Context, date string) (*dto.AppointmentListResponse, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	appointments, err := u.appointmentRepo.FindByDate(u.db.WithContext(ctx), day)
	if err != nil {
		u.log.Warnf("Failed to find appointments for date %s: %+v", date, err)
		return nil, err
	}
	return listResponse(appointments), nil
}

func (u *appointmentUsecase) GetAppointmentsByStatus(ctx context.Context, status string) (*dto.AppointmentListResponse, error) {
	s := entity.AppointmentStatus(status)
	if !s.Valid() {
		return nil, ErrInvalidStatus
	}

	appointments, err := u.appointmentRepo.FindByStatus(u.db.WithContext(ctx), s)
	if err != nil {
		u.log.Warnf("Failed to find appointments with status %s: %+v", status, err)
		return nil, err
	}
	return listResponse(appointments), nil
}

// CreateAppointment books a slot for a doctor.
//
// Flow:
// 1. Resolve patient and doctor
// 2. Normalize the start time once, at ingestion
// 3. Reject dates before tomorrow and starts outside business hours
// 4. Under the per-doctor lock: re-read the calendar, check for overlap,
//    insert as Pending
// 5. The partial unique index on (doctor_id, scheduled_at) backstops any
//    race the lock cannot see
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	db := u.db.WithContext(ctx)

	if err := u.checkReferences(db, req.PatientID, req.DoctorID); err != nil {
		return nil, err
	}

	start, err := scheduling.ParseStartTime(req.ScheduledAt)
	if err != nil {
		return nil, ErrInvalidStartTime
	}
	if start.Before(scheduling.BookableFrom(time.Now())) {
		return nil, ErrPastDate
	}
	if !scheduling.WithinBusinessHours(start) {
		return nil, ErrOutsideBusinessHours
	}

	appointment := &entity.Appointment{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: start,
		Reason:      req.Reason,
		Status:      entity.AppointmentStatusPending, // creation always starts Pending
		Notes:       req.Notes,
	}

	err = u.locker.WithDoctorLock(ctx, req.DoctorID, func(ctx context.Context) error {
		tx := u.db.WithContext(ctx).Begin()
		defer tx.Rollback()

		if err := u.checkSlotFree(tx, req.DoctorID, start, uuid.Nil); err != nil {
			return err
		}

		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			u.log.Warnf("Failed to create appointment: %+v", err)
			if isDuplicateKeyError(err, "doctor_slot") {
				return ErrSlotTaken
			}
			if isForeignKeyError(err, "doctor") {
				return ErrDoctorNotFound
			}
			if isForeignKeyError(err, "patient") {
				return ErrPatientNotFound
			}
			return err
		}

		if err := u.auditService.LogCreate(ctx, tx, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), converter.AppointmentToResponse(appointment)); err != nil {
			u.log.Warnf("Failed to create audit log: %+v", err)
		}

		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}

	u.slotCache.Invalidate(ctx, req.DoctorID, start)

	return u.reload(ctx, appointment)
}

// UpdateAppointment reschedules or reassigns an appointment. The appointment
// being edited is excluded from its own conflict check; unlike create, a past
// date is accepted so historical records can be corrected.
func (u *appointmentUsecase) UpdateAppointment(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	db := u.db.WithContext(ctx)

	existing, err := u.appointmentRepo.FindByID(db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if existing == nil {
		return nil, ErrAppointmentNotFound
	}

	if err := u.checkReferences(db, req.PatientID, req.DoctorID); err != nil {
		return nil, err
	}

	start, err := scheduling.ParseStartTime(req.ScheduledAt)
	if err != nil {
		return nil, ErrInvalidStartTime
	}
	if !scheduling.WithinBusinessHours(start) {
		return nil, ErrOutsideBusinessHours
	}

	status := entity.AppointmentStatus(req.Status)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	oldValue := converter.AppointmentToResponse(existing)
	oldDoctorID := existing.DoctorID
	oldStart := existing.ScheduledAt

	err = u.locker.WithDoctorLock(ctx, req.DoctorID, func(ctx context.Context) error {
		tx := u.db.WithContext(ctx).Begin()
		defer tx.Rollback()

		if err := u.checkSlotFree(tx, req.DoctorID, start, id); err != nil {
			return err
		}

		existing.PatientID = req.PatientID
		existing.DoctorID = req.DoctorID
		existing.ScheduledAt = start
		existing.Status = status
		existing.Reason = req.Reason
		existing.Notes = req.Notes

		if err := u.appointmentRepo.Update(tx, existing); err != nil {
			u.log.Warnf("Failed to update appointment %s: %+v", id, err)
			if isDuplicateKeyError(err, "doctor_slot") {
				return ErrSlotTaken
			}
			return err
		}

		if err := u.auditService.LogUpdate(ctx, tx, entity.AuditActionAppointmentUpdate, "appointment", id.String(), oldValue, converter.AppointmentToResponse(existing)); err != nil {
			u.log.Warnf("Failed to create audit log: %+v", err)
		}

		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}

	u.slotCache.Invalidate(ctx, oldDoctorID, oldStart)
	u.slotCache.Invalidate(ctx, req.DoctorID, start)

	return u.reload(ctx, existing)
}

// UpdateStatus persists a status change without re-validating the slot: a
// status-only change never moves the appointment. Repeating the same status
// is a no-op, not an error.
func (u *appointmentUsecase) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*dto.AppointmentResponse, error) {
	s := entity.AppointmentStatus(status)
	if !s.Valid() {
		return nil, ErrInvalidStatus
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	oldStatus := appointment.Status
	if err := u.appointmentRepo.UpdateStatus(tx, id, s); err != nil {
		u.log.Warnf("Failed to update status of appointment %s: %+v", id, err)
		return nil, err
	}
	appointment.Status = s

	if err := u.auditService.LogUpdate(ctx, tx, entity.AuditActionAppointmentStatus, "appointment", id.String(), string(oldStatus), string(s)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	// Cancelling frees the slot, any other change may re-take it
	u.slotCache.Invalidate(ctx, appointment.DoctorID, appointment.ScheduledAt)

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	if _, err := u.appointmentRepo.Delete(tx, id); err != nil {
		u.log.Warnf("Failed to delete appointment %s: %+v", id, err)
		return err
	}

	if err := u.auditService.LogDelete(ctx, tx, entity.AuditActionAppointmentDelete, "appointment", id.String(), converter.AppointmentToResponse(appointment)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	u.slotCache.Invalidate(ctx, appointment.DoctorID, appointment.ScheduledAt)

	return nil
}

// GetAvailableSlots lists the free business-hour slots of a doctor on a UTC
// day. Plain lookups are served from the cache; requests that exclude an
// appointment (slot pickers in edit forms) always recompute.
func (u *appointmentUsecase) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string, excludeID uuid.UUID) (*dto.AvailableSlotsResponse, error) {
	db := u.db.WithContext(ctx)

	exists, err := u.doctorRepo.ExistsByID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to check doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	if excludeID == uuid.Nil {
		if slots, ok := u.slotCache.Get(ctx, doctorID, day); ok {
			return &dto.AvailableSlotsResponse{DoctorID: doctorID, Date: date, Slots: slots}, nil
		}
	}

	appointments, err := u.appointmentRepo.FindByDoctorInRange(db, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		u.log.Warnf("Failed to load calendar for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	slots := scheduling.AvailableSlots(appointments, day, excludeID)
	if excludeID == uuid.Nil {
		u.slotCache.Set(ctx, doctorID, day, slots)
	}

	return &dto.AvailableSlotsResponse{DoctorID: doctorID, Date: date, Slots: slots}, nil
}

// checkReferences rejects dangling patient or doctor ids before any write
func (u *appointmentUsecase) checkReferences(db *gorm.DB, patientID, doctorID uuid.UUID) error {
	exists, err := u.patientRepo.ExistsByID(db, patientID)
	if err != nil {
		u.log.Warnf("Failed to check patient %s: %+v", patientID, err)
		return err
	}
	if !exists {
		return ErrPatientNotFound
	}

	exists, err = u.doctorRepo.ExistsByID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to check doctor %s: %+v", doctorID, err)
		return err
	}
	if !exists {
		return ErrDoctorNotFound
	}
	return nil
}

// checkSlotFree loads the doctor's appointments around the candidate window
// and applies the half-open overlap test
func (u *appointmentUsecase) checkSlotFree(tx *gorm.DB, doctorID uuid.UUID, start time.Time, exclude uuid.UUID) error {
	from := start.Add(-scheduling.SlotDuration)
	to := start.Add(scheduling.SlotDuration)

	neighbors, err := u.appointmentRepo.FindByDoctorInRange(tx, doctorID, from, to)
	if err != nil {
		u.log.Warnf("Failed to load calendar for doctor %s: %+v", doctorID, err)
		return err
	}
	if scheduling.HasConflict(neighbors, start, exclude) {
		return ErrSlotTaken
	}
	return nil
}

func (u *appointmentUsecase) reload(ctx context.Context, appointment *entity.Appointment) (*dto.AppointmentResponse, error) {
	full, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointment.ID)
	if err != nil || full == nil {
		// Return the basic response if the reload fails
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return converter.AppointmentToResponse(appointment), nil
	}
	return converter.AppointmentToResponse(full), nil
}

func listResponse(appointments []entity.Appointment) *dto.AppointmentListResponse {
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}
}
