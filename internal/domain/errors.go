package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the recon API is unreachable
	ErrServerOffline = errors.New("recon server is unreachable")

	// ErrNotFound indicates the requested record or endpoint does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrBadResponse indicates the server answered with something that is not JSON
	ErrBadResponse = errors.New("malformed server response")

	// ErrMutationRejected indicates the server reported success=false
	ErrMutationRejected = errors.New("server rejected the change")

	// ErrUnknownResource indicates a catalog lookup miss
	ErrUnknownResource = errors.New("unknown resource")

	// ErrEmptyCommand indicates a run was requested without a command
	ErrEmptyCommand = errors.New("command is empty")
)

// UnknownErrorMessage is reported when a failed mutation carries no message.
const UnknownErrorMessage = "Unknown error"

// RejectedError carries the message a server attached to a failed mutation.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return UnknownErrorMessage
	}
	return e.Message
}

func (e *RejectedError) Unwrap() error {
	return ErrMutationRejected
}
