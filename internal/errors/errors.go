package errors

import (
	stderrors "errors"
	"fmt"
)

// SyncError carries everything the agent records about a failure: a
// stable code, the category and severity derived from it, and optional
// context for logs and operator-facing reports.
type SyncError struct {
	// Code is the stable identifier, e.g. "ERR_201_DIR_UNREADABLE".
	Code string

	// Message describes this occurrence in human terms.
	Message string

	// Category groups the code (Filesystem, Parse, Extraction, ...).
	Category Category

	// Severity says how far the failure reaches: a row, a file, the
	// cycle, or the agent.
	Severity Severity

	// Details holds extra key-value context for logs.
	Details map[string]string

	// Cause is the wrapped underlying error, if any.
	Cause error

	// Retryable marks failures the next poll tick takes another run at.
	Retryable bool

	// Suggestion tells the operator what to check.
	Suggestion string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *SyncError) Unwrap() error { return e.Cause }

// Is matches SyncErrors by code, so errors.Is treats two occurrences
// of the same failure as equal regardless of message.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	return ok && e.Code == t.Code
}

// WithDetail attaches a key-value pair and returns e for chaining.
func (e *SyncError) WithDetail(key, value string) *SyncError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an operator hint and returns e for chaining.
func (e *SyncError) WithSuggestion(suggestion string) *SyncError {
	e.Suggestion = suggestion
	return e
}

// New builds a SyncError for code. Category, severity, and the
// retryable flag all derive from the code.
func New(code string, message string, cause error) *SyncError {
	return &SyncError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap turns err into a SyncError under code, keeping err as the
// cause. Wrapping nil stays nil.
func Wrap(code string, err error) *SyncError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// The per-category constructors below pick each category's
// representative code; call New directly when a more specific code
// applies.

// ConfigError reports configuration the agent cannot run with.
func ConfigError(message string, cause error) *SyncError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// FilesystemError reports a failed directory listing or stat. These
// abort the poll cycle and the next tick retries them.
func FilesystemError(message string, cause error) *SyncError {
	return New(ErrCodeDirUnreadable, message, cause)
}

// ParseError reports a spreadsheet row the refresh skipped.
func ParseError(message string, cause error) *SyncError {
	return New(ErrCodeRowInvalid, message, cause)
}

// ExtractionError reports a document whose content could not be read.
func ExtractionError(message string, cause error) *SyncError {
	return New(ErrCodeFileUnreadable, message, cause)
}

// PersistenceError reports a failed warehouse write.
func PersistenceError(message string, cause error) *SyncError {
	return New(ErrCodeWriteFailed, message, cause)
}

// InternalError reports a failure no other category explains.
func InternalError(message string, cause error) *SyncError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether the next poll tick retries err.
func IsRetryable(err error) bool {
	var se *SyncError
	return stderrors.As(err, &se) && se.Retryable
}

// IsFatal reports whether err must stop the agent, not just the cycle.
func IsFatal(err error) bool {
	var se *SyncError
	return stderrors.As(err, &se) && se.Severity == SeverityFatal
}

// GetCode returns err's code, or "" when no SyncError is in its chain.
func GetCode(err error) string {
	var se *SyncError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory returns err's category, or "" when no SyncError is in
// its chain.
func GetCategory(err error) Category {
	var se *SyncError
	if stderrors.As(err, &se) {
		return se.Category
	}
	return ""
}
