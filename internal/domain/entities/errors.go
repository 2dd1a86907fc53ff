package entities

import "errors"

// Domain errors
var (
	// Tenant errors
	ErrMissingTenant = errors.New("organization id is required")

	// Organization errors
	ErrOrganizationNotFound = errors.New("organization not found")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidPassword   = errors.New("invalid password")

	// OAuth errors
	ErrOAuthStateMismatch = errors.New("oauth state mismatch")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")

	// Recording errors
	ErrRecordingNotFound       = errors.New("recording not found")
	ErrInvalidStatusTransition = errors.New("invalid recording status transition")
	ErrTranscriptionNotFound   = errors.New("transcription not found")
	ErrAnalysisNotFound        = errors.New("analysis not found")

	// Template errors
	ErrTemplateNotFound      = errors.New("process template not found")
	ErrTemplateAlreadyExists = errors.New("process template already exists")

	// Invitation errors
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationAlreadyExists = errors.New("invitation already exists")
	ErrInvitationExpired       = errors.New("invitation expired")
	ErrInvitationAccepted      = errors.New("invitation already accepted")

	// Generic errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
)
