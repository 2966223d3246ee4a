package converter

import (
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
)

// DoctorToResponse converts a Doctor entity to DoctorResponse DTO
func DoctorToResponse(doctor *entity.Doctor) *dto.DoctorResponse {
	if doctor == nil {
		return nil
	}

	return &dto.DoctorResponse{
		ID:            doctor.ID,
		FirstName:     doctor.FirstName,
		LastName:      doctor.LastName,
		Specialty:     doctor.Specialty,
		LicenseNumber: doctor.LicenseNumber,
		Email:         doctor.Email,
		Phone:         doctor.Phone,
		IsActive:      doctor.IsActive,
		RegisteredAt:  doctor.RegisteredAt,
	}
}

// DoctorsToResponses converts a slice of Doctor entities to DTOs
func DoctorsToResponses(doctors []entity.Doctor) []dto.DoctorResponse {
	responses := make([]dto.DoctorResponse, len(doctors))
	for i := range doctors {
		responses[i] = *DoctorToResponse(&doctors[i])
	}
	return responses
}
