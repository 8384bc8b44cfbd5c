package detector

import (
	"errors"
	"fmt"
)

func (e *DetectorError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// DetectorError represents detector construction and frame processing errors
type DetectorError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *DetectorError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DetectorError with the same code
func (e *DetectorError) Is(target error) bool {
	var other *DetectorError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// Error codes
const (
	ErrCodeDegenerateTemplate = "DEGENERATE_TEMPLATE"
	ErrCodeConfiguration      = "CONFIGURATION"
	ErrCodeFrameSizeMismatch  = "FRAME_SIZE_MISMATCH"
)

// Sentinels for errors.Is
var (
	ErrDegenerateTemplate = NewDetectorError(ErrCodeDegenerateTemplate, "degenerate template", nil)
	ErrConfiguration      = NewDetectorError(ErrCodeConfiguration, "invalid detector configuration", nil)
	ErrFrameSizeMismatch  = NewDetectorError(ErrCodeFrameSizeMismatch, "frame size mismatch", nil)
)

// NewDetectorError creates a new detector error
func NewDetectorError(code, message string, cause error) *DetectorError {
	return &DetectorError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func configurationError(format string, args ...any) *DetectorError {
	return NewDetectorError(ErrCodeConfiguration, fmt.Sprintf(format, args...), nil)
}
