package api

import "github.com/collabnotes/collabnotes/domain/user"

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries a fresh token and the authenticated user.
type AuthResponse struct {
	Token string       `json:"token"`
	User  user.Summary `json:"user"`
}

// ChatRequestInput represents a new chat request.
type ChatRequestInput struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// RespondInput carries the answer to a chat request.
type RespondInput struct {
	Status string `json:"status"`
}

// GroupInput represents a new group chat.
type GroupInput struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// ShareInput represents an explicit note share.
type ShareInput struct {
	UserIDs    []string `json:"user_ids"`
	Permission string   `json:"permission"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
