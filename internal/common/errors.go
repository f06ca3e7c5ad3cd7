package common

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError indicates invalid input data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// UnauthorizedError indicates missing or invalid authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// UnknownChannelError indicates a dispatch request named a channel kind
// that is not registered.
type UnknownChannelError struct {
	Kind string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel kind: %s", e.Kind)
}

// NewUnknownChannelError creates a new UnknownChannelError.
func NewUnknownChannelError(kind string) *UnknownChannelError {
	return &UnknownChannelError{Kind: kind}
}

// TransportError indicates the delivery transport for a channel failed.
type TransportError struct {
	Channel string
	Reason  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %s", e.Channel, e.Reason)
}

// NewTransportError creates a new TransportError.
func NewTransportError(channel, reason string) *TransportError {
	return &TransportError{Channel: channel, Reason: reason}
}
