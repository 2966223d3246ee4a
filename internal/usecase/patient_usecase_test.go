package usecase

import (
	"context"
	"errors"
	"testing"

	"medical-office-api/internal/delivery/dto"
)

func createPatientRequest(nationalID string) *dto.CreatePatientRequest {
	return &dto.CreatePatientRequest{
		FirstName:   "Juan",
		LastName:    "Perez",
		NationalID:  nationalID,
		DateOfBirth: "1990-04-12",
	}
}

func TestCreatePatientRejectsDuplicateNationalID(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.patients.CreatePatient(context.Background(), createPatientRequest("30111222")); err != nil {
		t.Fatalf("failed to create patient: %v", err)
	}

	_, err := env.patients.CreatePatient(context.Background(), createPatientRequest("30111222"))
	if !errors.Is(err, ErrNationalIDExists) {
		t.Fatalf("err = %v, want ErrNationalIDExists", err)
	}
}

func TestCreatePatientRejectsBadDateOfBirth(t *testing.T) {
	env := newTestEnv(t)

	req := createPatientRequest("30111222")
	req.DateOfBirth = "12/04/1990"

	_, err := env.patients.CreatePatient(context.Background(), req)
	if !errors.Is(err, ErrInvalidDateOfBirth) {
		t.Fatalf("err = %v, want ErrInvalidDateOfBirth", err)
	}
}

func TestUpdatePatientKeepsOwnNationalID(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.patients.CreatePatient(context.Background(), createPatientRequest("30111222"))
	if err != nil {
		t.Fatalf("failed to create patient: %v", err)
	}

	resp, err := env.patients.UpdatePatient(context.Background(), created.ID, &dto.UpdatePatientRequest{
		FirstName:   "Juan Carlos",
		LastName:    "Perez",
		NationalID:  "30111222",
		DateOfBirth: "1990-04-12",
	})
	if err != nil {
		t.Fatalf("failed to update patient: %v", err)
	}
	if resp.FirstName != "Juan Carlos" {
		t.Errorf("first_name = %q, want %q", resp.FirstName, "Juan Carlos")
	}
}

func TestDeletePatientRestrictedByAppointments(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedDoctor(t, "MP12345")
	patient := env.seedPatient(t, "30111222")

	env.book(t, patient.ID, doctor.ID, "2030-05-20T10:00:00Z")

	err := env.patients.DeletePatient(context.Background(), patient.ID)
	if !errors.Is(err, ErrPatientHasAppointments) {
		t.Fatalf("err = %v, want ErrPatientHasAppointments", err)
	}
}

func TestDeletePatientWithoutAppointments(t *testing.T) {
	env := newTestEnv(t)
	patient := env.seedPatient(t, "30111222")

	if err := env.patients.DeletePatient(context.Background(), patient.ID); err != nil {
		t.Fatalf("failed to delete patient: %v", err)
	}
	if _, err := env.patients.GetPatient(context.Background(), patient.ID); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound after delete", err)
	}
}
