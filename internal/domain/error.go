package domain

import "errors"

var (
	// Common domain errors
	ErrJobNotFound      = errors.New("job not found")
	ErrChannelNotFound  = errors.New("channel not found or has no videos")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrQueueUnavailable = errors.New("message queue unavailable")
)
