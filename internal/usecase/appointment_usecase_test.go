package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/repository"
	"medical-office-api/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A single connection keeps every session on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&entity.Doctor{}, &entity.Patient{}, &entity.Appointment{}, &entity.AuditLog{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// noopSlotCache satisfies service.SlotCache without a Redis server
type noopSlotCache struct{}

func (noopSlotCache) Get(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, bool) {
	return nil, false
}
func (noopSlotCache) Set(ctx context.Context, doctorID uuid.UUID, date time.Time, slots []string) {}
func (noopSlotCache) Invalidate(ctx context.Context, doctorID uuid.UUID, date time.Time)          {}

type testEnv struct {
	db           *gorm.DB
	appointments AppointmentUsecase
	doctors      DoctorUsecase
	patients     PatientUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := newTestLogger()

	doctorRepo := repository.NewDoctorRepository()
	patientRepo := repository.NewPatientRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	auditService := service.NewAuditService(log, auditLogRepo)
	locker := service.NewLocalBookingLocker()

	return &testEnv{
		db:           db,
		appointments: NewAppointmentUsecase(db, log, appointmentRepo, doctorRepo, patientRepo, locker, noopSlotCache{}, auditService),
		doctors:      NewDoctorUsecase(db, log, doctorRepo, appointmentRepo, auditService),
		patients:     NewPatientUsecase(db, log, patientRepo, appointmentRepo, auditService),
	}
}

func (e *testEnv) seedDoctor(t *testing.T, license string) *entity.Doctor {
	t.Helper()
	doctor := &entity.Doctor{
		FirstName:     "Ana",
		LastName:      "Gomez",
		Specialty:     "Cardiology",
		LicenseNumber: license,
		IsActive:      true,
	}
	if err := e.db.Create(doctor).Error; err != nil {
		t.Fatalf("failed to seed doctor: %v", err)
	}
	return doctor
}

func (e *testEnv) seedPatient(t *testing.T, nationalID string) *entity.Patient {
	t.Helper()
	patient := &entity.Patient{
		FirstName:   "Juan",
		LastName:    "Perez",
		NationalID:  nationalID,
		DateOfBirth: time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
	}
	if err := e.db.Create(patient).Error; err != nil {
		t.Fatalf("failed to seed patient: %v", err)
	}
	return patient
}

func (e *testEnv) book(t *testing.T, patientID, doctorID uuid.UUID, scheduledAt string) *dto.AppointmentResponse {
	t.Helper()
	resp, err := e.appointments.CreateAppointment(context.Background(), &dto.CreateAppointmentRequest{
		PatientID:   patientID,
		DoctorID:    doctorID,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		t.Fatalf("failed to book %s: %v", scheduledAt, err)
	}
	return resp
}

func TestCreateAppointmentStartsPending(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	resp := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	if resp.Status != string(entity.AppointmentStatusPending) {
		t.Errorf("status = %q, want %q", resp.Status, entity.AppointmentStatusPending)
	}
	want := time.Date(2030, 5, 20, 10, 0, 0, 0, time.UTC)
	if !resp.ScheduledAt.Equal(want) {
		t.Errorf("scheduled_at = %v, want %v", resp.ScheduledAt, want)
	}
}

func TestCreateAppointmentZoneHandling(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"zone-less input is already UTC", "2030-05-20T10:00:00", time.Date(2030, 5, 20, 10, 0, 0, 0, time.UTC)},
		{"offset input converts to UTC", "2030-05-21T12:30:00+03:00", time.Date(2030, 5, 21, 9, 30, 0, 0, time.UTC)},
		{"seconds truncate to the minute", "2030-05-22T10:00:45Z", time.Date(2030, 5, 22, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.book(t, patient.ID, doctor.ID, tt.input)
			if !resp.ScheduledAt.Equal(tt.want) {
				t.Errorf("scheduled_at = %v, want %v", resp.ScheduledAt, tt.want)
			}
		})
	}
}

func TestCreateAppointmentSlotTaken(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")
	other := env.seedPatient(t, "30999888")

	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	_, err := env.appointments.CreateAppointment(context.Background(), &dto.CreateAppointmentRequest{
		PatientID:   other.ID,
		DoctorID:    doctor.ID,
		ScheduledAt: "2030-05-20T10:00:00Z",
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
}

func TestCreateAppointmentOverlapBoundaries(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	// 10:15 falls inside the 10:00 slot
	_, err := env.appointments.CreateAppointment(context.Background(), &dto.CreateAppointmentRequest{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		ScheduledAt: "2030-05-20T10:15:00Z",
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken for 10:15", err)
	}

	// 10:30 touches the boundary and must not conflict
	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:30:00Z")
}

func TestCreateAppointmentCancelledFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	booked := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	if _, err := env.appointments.UpdateStatus(context.Background(), booked.ID, string(entity.AppointmentStatusCancelled)); err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}

	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")
}

func TestCreateAppointmentRejectsToday(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	today := time.Now().UTC().Format("2006-01-02") + "T10:00:00Z"
	_, err := env.appointments.CreateAppointment(context.Background(), &dto.CreateAppointmentRequest{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		ScheduledAt: today,
	})
	if !errors.Is(err, ErrPastDate) {
		t.Fatalf("err = %v, want ErrPastDate", err)
	}
}

func TestCreateAppointmentBusinessHours(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	tests := []struct {
		name        string
		scheduledAt string
		wantErr     error
	}{
		{"before opening", "2030-05-20T08:30:00Z", ErrOutsideBusinessHours},
		{"at opening", "2030-05-20T09:00:00Z", nil},
		{"last bookable start", "2030-05-21T17:30:00Z", nil},
		{"at closing", "2030-05-20T18:00:00Z", ErrOutsideBusinessHours},
		{"would run past closing", "2030-05-20T17:45:00Z", ErrOutsideBusinessHours},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.appointments.CreateAppointment(context.Background(), &dto.CreateAppointmentRequest{
				PatientID:   patient.ID,
				DoctorID:    doctor.ID,
				ScheduledAt: tt.scheduledAt,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateAppointmentUnknownReferences(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	_, err := env.appointments.CreateAppointment(context.Background(), &dto.CreateAppointmentRequest{
		PatientID:   uuid.New(),
		DoctorID:    doctor.ID,
		ScheduledAt: "2030-05-20T10:00:00Z",
	})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("err = %v, want ErrPatientNotFound", err)
	}

	_, err = env.appointments.CreateAppointment(context.Background(), &dto.CreateAppointmentRequest{
		PatientID:   patient.ID,
		DoctorID:    uuid.New(),
		ScheduledAt: "2030-05-20T10:00:00Z",
	})
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("err = %v, want ErrDoctorNotFound", err)
	}
}

func TestCreateAppointmentInvalidStartTime(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	_, err := env.appointments.CreateAppointment(context.Background(), &dto.CreateAppointmentRequest{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		ScheduledAt: "20/05/2030 10:00",
	})
	if !errors.Is(err, ErrInvalidStartTime) {
		t.Fatalf("err = %v, want ErrInvalidStartTime", err)
	}
}

func TestUpdateAppointmentExcludesItself(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	booked := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	// Keeping the same slot must not conflict with the appointment itself
	resp, err := env.appointments.UpdateAppointment(context.Background(), booked.ID, &dto.UpdateAppointmentRequest{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		ScheduledAt: "2030-05-20T10:00:00Z",
		Status:      string(entity.AppointmentStatusConfirmed),
	})
	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusConfirmed) {
		t.Errorf("status = %q, want Confirmed", resp.Status)
	}
}

func TestUpdateAppointmentIntoTakenSlot(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")
	second := env.book(t, patient.ID, doctor.ID, "2030-05-20T11:00:00Z")

	_, err := env.appointments.UpdateAppointment(context.Background(), second.ID, &dto.UpdateAppointmentRequest{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		ScheduledAt: "2030-05-20T10:00:00Z",
		Status:      string(entity.AppointmentStatusPending),
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
}

func TestUpdateStatusIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	booked := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	for i := 0; i < 2; i++ {
		resp, err := env.appointments.UpdateStatus(context.Background(), booked.ID, string(entity.AppointmentStatusConfirmed))
		if err != nil {
			t.Fatalf("confirm attempt %d failed: %v", i+1, err)
		}
		if resp.Status != string(entity.AppointmentStatusConfirmed) {
			t.Errorf("status = %q, want Confirmed", resp.Status)
		}
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	booked := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	_, err := env.appointments.UpdateStatus(context.Background(), booked.ID, "Rescheduled")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestDeleteAppointment(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	booked := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	if err := env.appointments.DeleteAppointment(context.Background(), booked.ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := env.appointments.GetAppointment(context.Background(), booked.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("err = %v, want ErrAppointmentNotFound after delete", err)
	}
	if err := env.appointments.DeleteAppointment(context.Background(), booked.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("err = %v, want ErrAppointmentNotFound on second delete", err)
	}
}

func TestGetAvailableSlots(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	free, err := env.appointments.GetAvailableSlots(context.Background(), doctor.ID, "2030-05-20", uuid.Nil)
	if err != nil {
		t.Fatalf("failed to list slots: %v", err)
	}
	if len(free.Slots) != 18 {
		t.Fatalf("free day has %d slots, want 18", len(free.Slots))
	}

	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	after, err := env.appointments.GetAvailableSlots(context.Background(), doctor.ID, "2030-05-20", uuid.Nil)
	if err != nil {
		t.Fatalf("failed to list slots: %v", err)
	}
	if len(after.Slots) != 17 {
		t.Errorf("after booking: %d slots, want 17", len(after.Slots))
	}
	for _, slot := range after.Slots {
		if slot == "10:00" {
			t.Errorf("booked slot 10:00 still listed")
		}
	}
}

func TestGetAvailableSlotsIgnoresCancelled(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	booked := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")
	if _, err := env.appointments.UpdateStatus(context.Background(), booked.ID, string(entity.AppointmentStatusCancelled)); err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}

	resp, err := env.appointments.GetAvailableSlots(context.Background(), doctor.ID, "2030-05-20", uuid.Nil)
	if err != nil {
		t.Fatalf("failed to list slots: %v", err)
	}
	if len(resp.Slots) != 18 {
		t.Errorf("cancelled appointment still blocks: %d slots, want 18", len(resp.Slots))
	}
}

func TestGetAvailableSlotsExcludesAppointmentBeingEdited(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	booked := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	resp, err := env.appointments.GetAvailableSlots(context.Background(), doctor.ID, "2030-05-20", booked.ID)
	if err != nil {
		t.Fatalf("failed to list slots: %v", err)
	}
	if len(resp.Slots) != 18 {
		t.Errorf("own slot hidden from edit form: %d slots, want 18", len(resp.Slots))
	}
}

func TestGetAvailableSlotsUnknownDoctor(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.appointments.GetAvailableSlots(context.Background(), uuid.New(), "2030-05-20", uuid.Nil)
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want ErrDoctorNotFound", err)
	}
}

func TestGetAppointmentsByStatus(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	booked := env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")
	env.book(t, patient.ID, doctor.ID, "2030-05-20T11:00:00Z")
	if _, err := env.appointments.UpdateStatus(context.Background(), booked.ID, string(entity.AppointmentStatusConfirmed)); err != nil {
		t.Fatalf("failed to confirm: %v", err)
	}

	confirmed, err := env.appointments.GetAppointmentsByStatus(context.Background(), string(entity.AppointmentStatusConfirmed))
	if err != nil {
		t.Fatalf("failed to list by status: %v", err)
	}
	if confirmed.Total != 1 {
		t.Errorf("confirmed total = %d, want 1", confirmed.Total)
	}

	if _, err := env.appointments.GetAppointmentsByStatus(context.Background(), "Unknown"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestGetAppointmentsByDate(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")
	env.book(t, patient.ID, doctor.ID, "2030-05-21T10:00:00Z")

	resp, err := env.appointments.GetAppointmentsByDate(context.Background(), "2030-05-20")
	if err != nil {
		t.Fatalf("failed to list by date: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}

	if _, err := env.appointments.GetAppointmentsByDate(context.Background(), "20-05-2030"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}
