package dto

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// TokenClaims is the JWT payload minted at login and checked on every
// authenticated request. The subject holds the user ID as a decimal string.
type TokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RegisterRequest describes the payload for account registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=student teacher moderator admin"`
	ClassID  *uint  `json:"class_id" validate:"omitempty,gt=0"`
}

// LoginRequest describes the payload for credential login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the minted token and basic identity.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// UserResponse serializes an account without credentials.
type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	ClassID  *uint  `json:"class_id"`
}

// NewUserResponse converts a User model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:       model.ID,
		Username: model.Username,
		Role:     model.Role,
		ClassID:  model.ClassID,
	}
}

// ClassResponse serializes a class.
type ClassResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// NewClassResponseSlice converts class models into DTOs.
func NewClassResponseSlice(classes []models.Class) []ClassResponse {
	responses := make([]ClassResponse, 0, len(classes))
	for _, class := range classes {
		responses = append(responses, ClassResponse{ID: class.ID, Name: class.Name})
	}

	return responses
}
