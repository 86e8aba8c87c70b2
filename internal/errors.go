package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrNoKeys is returned when registering for an empty key set.
	ErrNoKeys = errors.New("observation: no keys to observe")
	// ErrRegistrarClosed is returned when registering on a closed registrar.
	ErrRegistrarClosed = errors.New("observation: registrar closed")
	// ErrForeignHandle is the panic value when a recorder handle is
	// deactivated on a goroutine other than the one that activated it.
	ErrForeignHandle = errors.New("observation: recorder handle deactivated on a foreign goroutine")
)

// RegistrationError reports a subject whose RegisterOneShot failed.
// The session carries on without that subject.
type RegistrationError struct {
	Subject SubjectID
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("observation: register subject %d: %v", e.Subject, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// IsRegistrationError reports whether err wraps a *RegistrationError.
func IsRegistrationError(err error) bool {
	var re *RegistrationError
	return errors.As(err, &re)
}
