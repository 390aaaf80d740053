// services/errors.go
package services

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential        = errors.New("missing credential")
	ErrInvalidToken             = errors.New("invalid token")
	ErrMalformedIdentityPayload = errors.New("malformed identity payload")
	ErrStorageConflict          = errors.New("storage conflict")
)

// MissingCredentialError is returned when no token of the requested kind was
// found on the request.
type MissingCredentialError struct {
	Kind TokenKind
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("Missing %s token", e.Kind)
}

func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// InvalidTokenError carries the reason the verifier rejected a token.
type InvalidTokenError struct {
	Kind   TokenKind
	Reason string
	Cause  error
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("Invalid %s token: %s", e.Kind, e.Reason)
}

func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

func (e *InvalidTokenError) Unwrap() error {
	return e.Cause
}

// MalformedPayloadError is returned when an embedded JSON claim cannot be
// decoded.
type MalformedPayloadError struct {
	Field string
	Cause error
}

func (e *MalformedPayloadError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("Malformed identity payload: %s", e.Field)
	}
	return fmt.Sprintf("Malformed identity payload: %s: %v", e.Field, e.Cause)
}

func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedIdentityPayload
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Cause
}

// StorageConflictError is returned when a sync loses a race on a uniqueness
// or foreign-key constraint. Callers may retry.
type StorageConflictError struct {
	DID   string
	Cause error
}

func (e *StorageConflictError) Error() string {
	return fmt.Sprintf("storage conflict while syncing %s: %v", e.DID, e.Cause)
}

func (e *StorageConflictError) Is(target error) bool {
	return target == ErrStorageConflict
}

func (e *StorageConflictError) Unwrap() error {
	return e.Cause
}

func (e *StorageConflictError) Retryable() bool {
	return true
}
