package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for the remote data cache. Every public cache
// operation either returns a value (possibly stale) or one of these;
// none of them is fatal to the process.
var (
	// ErrCredentialRequired means the active provider mandates a
	// credential and none is configured
	ErrCredentialRequired = errors.New("credential required for the active provider")

	// ErrInvalidCredential means the provider rejected the configured
	// credential (401/403-class response)
	ErrInvalidCredential = errors.New("credential rejected by the provider")

	// ErrRateNotFound means the provider response contained no usable
	// rate under any known shape
	ErrRateNotFound = errors.New("rate not found in provider response")
)

// NetworkError represents a non-success HTTP outcome outside the
// credential-rejection range
type NetworkError struct {
	Status int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.Status)
}

// StoreWriteError represents a backend fault while persisting a
// value. Cache writes are best-effort: this error is logged by cache
// operations, never propagated to their callers.
type StoreWriteError struct {
	Backend string
	Err     error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("%s store write failed: %v", e.Backend, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
