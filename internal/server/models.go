package server

import "github.com/fridayhq/friday/models"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is a generic id response wrapper.
type IDResponse struct {
	ID string `json:"id"`
}

// CreateMeetingRequest represents a new meeting payload.
type CreateMeetingRequest struct {
	Date            string `json:"meeting_date"`
	Time            string `json:"meeting_time"`
	MeetingLink     string `json:"meeting_link"`
	DriveFolderLink string `json:"drive_folder_link"`
}

// TranscriptUpdateRequest carries one caption update.
type TranscriptUpdateRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// ChatRequest represents a chat question.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatHistoryResponse returns persisted turns in chronological order.
type ChatHistoryResponse struct {
	Turns []models.Turn `json:"turns"`
}
