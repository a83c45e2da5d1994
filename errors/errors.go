package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrAuthRequired       = fmt.Errorf("authentication required")
	ErrInvalidRequest     = fmt.Errorf("invalid request")
	ErrNotAuthorized      = fmt.Errorf("not authorized")
	ErrPersistenceFailure = fmt.Errorf("persistence failure")
	ErrTransportFailure   = fmt.Errorf("transport failure")
	ErrNotFound           = fmt.Errorf("not found")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrUnknownEvent       = fmt.Errorf("unknown event type")
)

// ClientMessage converts an error into the text sent back to the originating
// connection in an "error" envelope. Storage details never leak to clients.
func ClientMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrInvalidToken):
		return "Authentication required"
	case errors.Is(err, ErrNotAuthorized):
		return "Not authorized"
	case errors.Is(err, ErrPersistenceFailure):
		return "Failed to persist, please retry"
	case errors.Is(err, ErrUnknownEvent):
		return err.Error()
	case errors.Is(err, ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, ErrNotFound):
		return "Not found"
	default:
		return "Internal error"
	}
}

// Is and As are re-exported so callers importing this package under its
// default name keep access to the standard helpers.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
