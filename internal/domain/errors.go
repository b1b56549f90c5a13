package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores
// and services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Profile errors
var (
	ErrProfileNotFound = errors.New("profile not found")
)

// Content errors
var (
	ErrQuestNotFound        = errors.New("quest not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrExpeditionNotFound   = errors.New("expedition not found")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// InputError is a validation failure with a message meant for the caller.
// It matches ErrInvalidInput with errors.Is.
type InputError struct {
	Message string
}

// NewInputError creates an InputError with the given message
func NewInputError(message string) *InputError {
	return &InputError{Message: message}
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundFor returns the not-found error for an entity type.
func NotFoundFor(t EntityType) error {
	switch t {
	case EntityQuest:
		return ErrQuestNotFound
	case EntityOrganization:
		return ErrOrganizationNotFound
	case EntityExpedition:
		return ErrExpeditionNotFound
	default:
		return ErrNotFound
	}
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrQuestNotFound) ||
		errors.Is(err, ErrOrganizationNotFound) ||
		errors.Is(err, ErrExpeditionNotFound)
}
