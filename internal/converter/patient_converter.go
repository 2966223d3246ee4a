package converter

import (
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
)

// PatientToResponse converts a Patient entity to PatientResponse DTO
func PatientToResponse(patient *entity.Patient) *dto.PatientResponse {
	if patient == nil {
		return nil
	}

	return &dto.PatientResponse{
		ID:           patient.ID,
		FirstName:    patient.FirstName,
		LastName:     patient.LastName,
		NationalID:   patient.NationalID,
		Email:        patient.Email,
		Phone:        patient.Phone,
		DateOfBirth:  patient.DateOfBirth.Format("2006-01-02"),
		Address:      patient.Address,
		RegisteredAt: patient.RegisteredAt,
	}
}

// PatientsToResponses converts a slice of Patient entities to DTOs
func PatientsToResponses(patients []entity.Patient) []dto.PatientResponse {
	responses := make([]dto.PatientResponse, len(patients))
	for i := range patients {
		responses[i] = *PatientToResponse(&patients[i])
	}
	return responses
}
