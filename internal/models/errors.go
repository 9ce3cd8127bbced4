package models

import (
	"errors"
	"fmt"
)

// ValidationKind classifies why a form was rejected.
type ValidationKind string

const (
	MissingField ValidationKind = "missing_field"
	Mismatch     ValidationKind = "mismatch"
	TooShort     ValidationKind = "too_short"
	InvalidValue ValidationKind = "invalid_value"
)

// ValidationError reports a rejected form. It is recovered locally: the user is
// notified and the action is aborted before any async work starts.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("validation failed (%s) on %s: %s", e.Kind, e.Field, e.Message)
}

// NotFoundError reports a missing navigation or UI target.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ExternalServiceTimeout reports that a flaky collaborator did not respond
// within its bounded number of attempts.
type ExternalServiceTimeout struct {
	Service  string
	Attempts int
	Err      error
}

func (e *ExternalServiceTimeout) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s did not respond after %d attempts: %v", e.Service, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s did not respond after %d attempts", e.Service, e.Attempts)
}

func (e *ExternalServiceTimeout) Unwrap() error { return e.Err }

// UnsupportedCapability reports that a client lacks a device feature such as
// speech recognition or a camera.
type UnsupportedCapability struct {
	Capability string
}

func (e *UnsupportedCapability) Error() string {
	return fmt.Sprintf("%s is not supported on this device", e.Capability)
}

// Sentinel errors.
var (
	ErrLogoutDeclined = errors.New("logout was not confirmed")
	ErrNotLoggedIn    = errors.New("no user is logged in")
	ErrNoImage        = errors.New("no image selected")
	ErrImageTooLarge  = errors.New("image exceeds maximum upload size")
	ErrPageClosed     = errors.New("page is closed")
)

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NoticeFor turns an error into the toast shown to the user. Validation
// messages are shown verbatim; a too-short password is only a warning.
func NoticeFor(err error) Notification {
	if ve, ok := IsValidation(err); ok {
		msg := ve.Message
		if msg == "" {
			msg = "Please check the form and try again"
		}
		if ve.Kind == TooShort {
			return WarningNotice(msg)
		}
		return ErrorNotice(msg)
	}
	var timeout *ExternalServiceTimeout
	if errors.As(err, &timeout) {
		return ErrorNotice(fmt.Sprintf("%s is not responding. Please try again later.", timeout.Service))
	}
	var unsupported *UnsupportedCapability
	if errors.As(err, &unsupported) {
		return ErrorNotice(fmt.Sprintf("%s is not supported in your browser.", unsupported.Capability))
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return ErrorNotice(fmt.Sprintf("Could not find %s %q", nf.Kind, nf.ID))
	}
	switch {
	case errors.Is(err, ErrNoImage):
		return ErrorNotice("Please upload an image first")
	case errors.Is(err, ErrImageTooLarge):
		return ErrorNotice("Image is too large. Maximum size is 16MB")
	case errors.Is(err, ErrNotLoggedIn):
		return WarningNotice("Please login to continue")
	}
	return ErrorNotice("Something went wrong. Please try again.")
}
