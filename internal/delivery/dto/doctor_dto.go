package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateDoctorRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Specialty     string `json:"specialty" validate:"required,max=100"`
	LicenseNumber string `json:"license_number" validate:"required,max=20"`
	Email         string `json:"email" validate:"omitempty,email,max=100"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
}

type UpdateDoctorRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Specialty     string `json:"specialty" validate:"required,max=100"`
	LicenseNumber string `json:"license_number" validate:"required,max=20"`
	Email         string `json:"email" validate:"omitempty,email,max=100"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	IsActive      *bool  `json:"is_active" validate:"omitempty"`
}

// Response DTOs

type DoctorResponse struct {
	ID            uuid.UUID `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Specialty     string    `json:"specialty"`
	LicenseNumber string    `json:"license_number"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	IsActive      bool      `json:"is_active"`
	RegisteredAt  time.Time `json:"registered_at"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int              `json:"total"`
}
