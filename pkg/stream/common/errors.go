package common

// Error codes carried by SourceError.
const (
	ErrCodeConnection    = "CONNECTION_FAILED"
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeRead          = "READ_FAILED"
	ErrCodeUnsupported   = "UNSUPPORTED_SOURCE"
)

// SourceError ties a failure to the IQ source kind and URL that produced it.
// Code is one of the ErrCode constants.
type SourceError struct {
	Type    SourceType `json:"type"`
	URL     string     `json:"url"`
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Cause   error      `json:"-"`
}

// NewSourceError wraps cause for the given source.
func NewSourceError(sourceType SourceType, url, code, message string, cause error) *SourceError {
	return &SourceError{
		Type:    sourceType,
		URL:     url,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func (e *SourceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *SourceError) Unwrap() error { return e.Cause }
