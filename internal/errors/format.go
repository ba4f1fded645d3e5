package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// coerce pulls the SyncError out of err's chain, if there is one.
func coerce(err error) (*SyncError, bool) {
	var se *SyncError
	ok := stderrors.As(err, &se)
	return se, ok
}

// FormatForUser renders err as a short report: message, suggestion,
// code. With debug set the underlying cause is included. Errors
// without a code come back as their plain message.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}
	se, ok := coerce(err)
	if !ok {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", se.Message)
	if debug && se.Cause != nil {
		fmt.Fprintf(&b, "\nCause: %s\n", se.Cause)
	}
	if se.Suggestion != "" {
		fmt.Fprintf(&b, "\nSuggestion: %s\n", se.Suggestion)
	}
	fmt.Fprintf(&b, "\n[%s]", se.Code)
	return b.String()
}

// FormatForCLI renders err compactly for terminal output. Errors
// without a code are reported under the internal code.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	se, ok := coerce(err)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", se.Message)
	if se.Suggestion != "" {
		fmt.Fprintf(&b, "  Hint: %s\n", se.Suggestion)
	}
	fmt.Fprintf(&b, "  Code: %s\n", se.Code)
	return b.String()
}

// jsonError fixes the wire shape of a serialized error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

func (e *SyncError) asJSON() jsonError {
	je := jsonError{
		Code:       e.Code,
		Message:    e.Message,
		Category:   string(e.Category),
		Severity:   string(e.Severity),
		Details:    e.Details,
		Suggestion: e.Suggestion,
		Retryable:  e.Retryable,
	}
	if e.Cause != nil {
		je.Cause = e.Cause.Error()
	}
	return je
}

// FormatJSON serializes err for machine consumption. Errors without a
// code are serialized under the internal code; nil serializes to null.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	se, ok := coerce(err)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}
	return json.Marshal(se.asJSON())
}

// FormatForLog flattens err into a map for structured logging, details
// prefixed with "detail_". Plain errors map to a single "error" key.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}
	se, ok := coerce(err)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	fields := map[string]any{
		"error_code": se.Code,
		"message":    se.Message,
		"category":   string(se.Category),
		"severity":   string(se.Severity),
		"retryable":  se.Retryable,
	}
	if se.Cause != nil {
		fields["cause"] = se.Cause.Error()
	}
	if se.Suggestion != "" {
		fields["suggestion"] = se.Suggestion
	}
	for k, v := range se.Details {
		fields["detail_"+k] = v
	}
	return fields
}

// LogAttrs returns alternating key-value pairs for slog calls, in a
// stable order: code, category, retryable, details (sorted), cause,
// suggestion.
//
//	slog.Warn("skipping file", errors.LogAttrs(err)...)
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}
	se, ok := coerce(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", se.Code,
		"category", string(se.Category),
		"retryable", se.Retryable,
	}

	keys := make([]string, 0, len(se.Details))
	for k := range se.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, se.Details[k])
	}

	if se.Cause != nil {
		attrs = append(attrs, "cause", se.Cause.Error())
	}
	if se.Suggestion != "" {
		attrs = append(attrs, "suggestion", se.Suggestion)
	}
	return attrs
}
