package service

import "errors"

var (
	// ErrUnauthorized is returned when the actor lacks permission for the
	// requested action
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned when required input is missing or malformed;
	// the wrapping message names the field at fault
	ErrValidation = errors.New("validation failed")
)
