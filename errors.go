package observation

import "github.com/AnatoleLucet/observation/internal"

var (
	// ErrNoKeys is returned by Registrar.RegisterOneShot for an empty key set.
	ErrNoKeys = internal.ErrNoKeys
	// ErrRegistrarClosed is returned by Registrar.RegisterOneShot after Close.
	ErrRegistrarClosed = internal.ErrRegistrarClosed
	// ErrForeignHandle is the panic value raised when tracking state is
	// unwound on a different goroutine than the one that set it up.
	ErrForeignHandle = internal.ErrForeignHandle
)

// RegistrationError reports a subject whose RegisterOneShot failed.
type RegistrationError = internal.RegistrationError

// IsRegistrationError reports whether err wraps a *RegistrationError.
func IsRegistrationError(err error) bool {
	return internal.IsRegistrationError(err)
}
