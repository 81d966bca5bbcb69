package domain

import "errors"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvoiceNotFound = errors.New("invoice not found")

	// Generation engine conditions.
	ErrEngineNotReady = errors.New("generation engine is not initialized")
	ErrEngineBusy     = errors.New("generation engine is busy with another request")
	ErrEngineReleased = errors.New("generation engine has been released")
	ErrGeneration     = errors.New("text generation failed")
)
