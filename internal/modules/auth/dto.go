package auth

import "tourbooking/internal/domain"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Admin     *domain.AdminUser `json:"admin"`
	Token     string            `json:"token"`
	ExpiresIn int64             `json:"expires_in"`
}
