package types

import "fmt"

// ValidationError rejects a submission before any session or message state
// is mutated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// GatewayError means a session could not be created or bound to a provider.
// It is surfaced as a structured error, never as a partial stream.
type GatewayError struct {
	Reason string
	Cause  error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gateway: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("gateway: %s", e.Reason)
}

func (e *GatewayError) Unwrap() error { return e.Cause }

// TransportError is a stream-level delivery failure. Terminal for the
// handle; the protocol never retries.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ApplicationError is a structured error frame sent as data by the
// producer.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application: %s", e.Message)
}
