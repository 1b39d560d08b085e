package services

import "errors"

// Dashboard service errors
var (
	// Snapshot errors
	ErrNoSnapshot          = errors.New("no survey data loaded")
	ErrSourceNotConfigured = errors.New("no survey source configured")

	// Upload errors
	ErrInvalidUpload  = errors.New("invalid survey upload")
	ErrUploadTooLarge = errors.New("survey upload too large")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
