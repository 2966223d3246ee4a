package usecase

import (
	"context"
	"errors"
	"testing"

	"medical-office-api/internal/delivery/dto"

	"github.com/google/uuid"
)

func createDoctorRequest(license string) *dto.CreateDoctorRequest {
	return &dto.CreateDoctorRequest{
		FirstName:     "Ana",
		LastName:      "Gomez",
		Specialty:     "Cardiology",
		LicenseNumber: license,
	}
}

func TestCreateDoctorRejectsDuplicateLicense(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.doctors.CreateDoctor(context.Background(), createDoctorRequest("MP12345")); err != nil {
		t.Fatalf("failed to create doctor: %v", err)
	}

	_, err := env.doctors.CreateDoctor(context.Background(), createDoctorRequest("MP12345"))
	if !errors.Is(err, ErrLicenseExists) {
		t.Fatalf("err = %v, want ErrLicenseExists", err)
	}
}

func TestUpdateDoctorKeepsOwnLicense(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.doctors.CreateDoctor(context.Background(), createDoctorRequest("MP12345"))
	if err != nil {
		t.Fatalf("failed to create doctor: %v", err)
	}

	// An unchanged license must not conflict with the doctor itself
	resp, err := env.doctors.UpdateDoctor(context.Background(), created.ID, &dto.UpdateDoctorRequest{
		FirstName:     "Ana Maria",
		LastName:      "Gomez",
		Specialty:     "Cardiology",
		LicenseNumber: "MP12345",
	})
	if err != nil {
		t.Fatalf("failed to update doctor: %v", err)
	}
	if resp.FirstName != "Ana Maria" {
		t.Errorf("first_name = %q, want %q", resp.FirstName, "Ana Maria")
	}
}

func TestUpdateDoctorRejectsForeignLicense(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.doctors.CreateDoctor(context.Background(), createDoctorRequest("MP12345")); err != nil {
		t.Fatalf("failed to create doctor: %v", err)
	}
	second, err := env.doctors.CreateDoctor(context.Background(), createDoctorRequest("MP67890"))
	if err != nil {
		t.Fatalf("failed to create second doctor: %v", err)
	}

	_, err = env.doctors.UpdateDoctor(context.Background(), second.ID, &dto.UpdateDoctorRequest{
		FirstName:     "Ana",
		LastName:      "Gomez",
		Specialty:     "Cardiology",
		LicenseNumber: "MP12345",
	})
	if !errors.Is(err, ErrLicenseExists) {
		t.Fatalf("err = %v, want ErrLicenseExists", err)
	}
}

func TestDeleteDoctorRestrictedByAppointments(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	err := env.doctors.DeleteDoctor(context.Background(), doctor.ID)
	if !errors.Is(err, ErrDoctorHasAppointments) {
		t.Fatalf("err = %v, want ErrDoctorHasAppointments", err)
	}

	// Still there
	if _, err := env.doctors.GetDoctor(context.Background(), doctor.ID); err != nil {
		t.Fatalf("doctor gone after rejected delete: %v", err)
	}
}

func TestDeleteDoctorWithoutAppointments(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")

	if err := env.doctors.DeleteDoctor(context.Background(), doctor.ID); err != nil {
		t.Fatalf("failed to delete doctor: %v", err)
	}
	if _, err := env.doctors.GetDoctor(context.Background(), doctor.ID); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want ErrDoctorNotFound after delete", err)
	}
}

func TestGetDoctorNotFound(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.doctors.GetDoctor(context.Background(), uuid.New()); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want ErrDoctorNotFound", err)
	}
}
