package models

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
