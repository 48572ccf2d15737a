package dto

import "github.com/google/uuid"

type SetUsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

type UsernameCheckResponse struct {
	Username    string   `json:"username"`
	Valid       bool     `json:"valid"`
	Error       string   `json:"error,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name"`
	AvatarColor string    `json:"avatar_color"`
	ProfileURL  string    `json:"profile_url,omitempty"`
}

type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarColor string    `json:"avatar_color"`
	URL         string    `json:"url"`
}
