package starline

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of codec error
type ErrorType int

const (
	// ErrTypeMissingField indicates a mandatory record field is absent
	ErrTypeMissingField ErrorType = iota
	// ErrTypeProtocolMismatch indicates a record for a different protocol
	ErrTypeProtocolMismatch
	// ErrTypeInvalidKeyLength indicates a Key field without exactly 16 nibbles
	ErrTypeInvalidKeyLength
	// ErrTypeInvalidHexChar indicates a Key field with a non-hex character
	ErrTypeInvalidHexChar
	// ErrTypeInvalidField indicates an unparsable optional or numeric field
	ErrTypeInvalidField
	// ErrTypeInvalidBitCount indicates a code outside the accepted bit range
	ErrTypeInvalidBitCount
	// ErrTypeCapacityExceeded indicates the encoder buffer cannot hold the frame
	ErrTypeCapacityExceeded
	// ErrTypeManufacturerNotFound indicates a resolved code whose key is not in the dictionary
	ErrTypeManufacturerNotFound
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeMissingField:
		return "Missing Field"
	case ErrTypeProtocolMismatch:
		return "Protocol Mismatch"
	case ErrTypeInvalidKeyLength:
		return "Invalid Key Length"
	case ErrTypeInvalidHexChar:
		return "Invalid Hex Character"
	case ErrTypeInvalidField:
		return "Invalid Field"
	case ErrTypeInvalidBitCount:
		return "Invalid Bit Count"
	case ErrTypeCapacityExceeded:
		return "Encoder Capacity Exceeded"
	case ErrTypeManufacturerNotFound:
		return "Manufacturer Not Found"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// CodecError is returned by record parsing and transmission building
type CodecError struct {
	Type    ErrorType // Category of error
	Field   string    // Record field involved (if any)
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *CodecError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *CodecError) Unwrap() error {
	return e.Err
}

func newFieldError(t ErrorType, field, message string, err error) *CodecError {
	return &CodecError{Type: t, Field: field, Message: message, Err: err}
}

// ErrorTypeOf returns the codec error type in err's chain.
func ErrorTypeOf(err error) (ErrorType, bool) {
	var codecErr *CodecError
	if errors.As(err, &codecErr) {
		return codecErr.Type, true
	}
	return 0, false
}

func isType(err error, types ...ErrorType) bool {
	t, ok := ErrorTypeOf(err)
	if !ok {
		return false
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// IsMalformedRecord checks if an error came from a bad text record
func IsMalformedRecord(err error) bool {
	return isType(err,
		ErrTypeMissingField,
		ErrTypeProtocolMismatch,
		ErrTypeInvalidKeyLength,
		ErrTypeInvalidHexChar,
		ErrTypeInvalidField,
	)
}

// IsCapacityExceeded checks if an error is an encoder capacity error
func IsCapacityExceeded(err error) bool {
	return isType(err, ErrTypeCapacityExceeded)
}
