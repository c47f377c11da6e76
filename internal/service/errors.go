package service

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorizedDomain = errors.New("unauthorized domain")
	ErrSessionNotFound    = errors.New("session not found or expired")
)
