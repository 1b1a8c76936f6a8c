package models

import "time"

// These structs define the JSON payloads for HTTP requests and responses
// between the mobile client and the Cloud Functions.

// ScanUploadResponse is the output of the scan-upload function, one outcome per uploaded file.
type ScanUploadResponse struct {
	Outcomes []Outcome `json:"outcomes"`
}

// ListFilesResponse is the output of the file-registry function.
type ListFilesResponse struct {
	Files []FileRecord `json:"files"`
	Count int          `json:"count"`
	Query string       `json:"query,omitempty"`
}

// AuthRequest is the input for the auth-gateway function.
type AuthRequest struct {
	Action               string `json:"action"`
	Email                string `json:"email,omitempty"`
	Username             string `json:"username,omitempty"`
	Password             string `json:"password,omitempty"`
	PasswordConfirmation string `json:"passwordConfirmation,omitempty"`
	IDToken              string `json:"idToken,omitempty"`
}

// AuthResponse is the output of the auth-gateway function.
type AuthResponse struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email,omitempty"`
	Username     string    `json:"username,omitempty"`
	IDToken      string    `json:"idToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
}

// ErrorResponse is written by every function on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
