package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Credential lifecycle errors
	ErrNotFound        = fmt.Errorf("record not found")
	ErrRenewalRejected = fmt.Errorf("credential renewal rejected")
	ErrStorage         = fmt.Errorf("storage failure")
	ErrAuthFailed      = fmt.Errorf("authentication failed")
	ErrTimeout         = fmt.Errorf("operation timed out")

	// Gateway errors
	ErrGateway   = fmt.Errorf("playback service request failed")
	ErrNoContent = fmt.Errorf("no content")
	ErrNoDevice  = fmt.Errorf("no playback device available")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
