package models

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrInvalidInput ErrorType = iota
	ErrUnsupportedFormat
	ErrNetwork
	ErrParse
	ErrValidation
	ErrStorage
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrInvalidInput:
		return "InvalidInput"
	case ErrUnsupportedFormat:
		return "UnsupportedFormat"
	case ErrNetwork:
		return "Network"
	case ErrParse:
		return "Parse"
	case ErrValidation:
		return "Validation"
	case ErrStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

// MirrorError represents an error during package mirroring
type MirrorError struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *MirrorError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *MirrorError) Unwrap() error {
	return e.Err
}
