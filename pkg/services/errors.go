package services

import "errors"

var (
	ErrUnknownService = errors.New("services: unknown service type")
	ErrMissingAddress = errors.New("services: missing service address")
	ErrInvalidAddress = errors.New("services: invalid service address")
)
