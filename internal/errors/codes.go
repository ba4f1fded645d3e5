// Package errors provides structured error handling for dwhsync.
//
// Codes are ERR_NNN_NAME strings whose hundreds digit picks the
// category:
//   - 1XX configuration
//   - 2XX filesystem (directory listing, stat)
//   - 3XX spreadsheet parsing
//   - 4XX document extraction
//   - 5XX persistence (database)
//   - 9XX internal
package errors

import "strings"

// Category groups error codes by the subsystem that produced them.
type Category string

const (
	// CategoryConfig covers unusable configuration.
	CategoryConfig Category = "CONFIG"
	// CategoryFilesystem covers directory listing and stat failures.
	CategoryFilesystem Category = "FILESYSTEM"
	// CategoryParse covers patient spreadsheet parsing failures.
	CategoryParse Category = "PARSE"
	// CategoryExtraction covers document content extraction failures.
	CategoryExtraction Category = "EXTRACTION"
	// CategoryPersistence covers warehouse database failures.
	CategoryPersistence Category = "PERSISTENCE"
	// CategoryInternal covers everything with no better home.
	CategoryInternal Category = "INTERNAL"
)

// Severity says how far a failure reaches.
type Severity string

const (
	// SeverityFatal stops the agent.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the operation; the agent keeps running.
	SeverityError Severity = "ERROR"
	// SeverityWarning degrades the cycle (a skipped row or file).
	SeverityWarning Severity = "WARNING"
	// SeverityInfo is informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes, grouped by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Filesystem errors (200-299). These abort the poll cycle and are
	// retried on the next tick.
	ErrCodeDirUnreadable = "ERR_201_DIR_UNREADABLE"
	ErrCodeFileStat      = "ERR_202_FILE_STAT"

	// Parse errors (300-399). Sheet or column errors abort the spreadsheet
	// refresh; row errors skip the row.
	ErrCodeSheetMissing    = "ERR_301_SHEET_MISSING"
	ErrCodeColumnMissing   = "ERR_302_COLUMN_MISSING"
	ErrCodeRowInvalid      = "ERR_303_ROW_INVALID"
	ErrCodeSheetUnreadable = "ERR_304_SHEET_UNREADABLE"

	// Extraction errors (400-499). Skip the file, continue the cycle.
	ErrCodeFileUnreadable  = "ERR_401_FILE_UNREADABLE"
	ErrCodeEmptyDocument   = "ERR_402_EMPTY_DOCUMENT"
	ErrCodeBadFilename     = "ERR_403_BAD_FILENAME"
	ErrCodeUnsupportedKind = "ERR_404_UNSUPPORTED_KIND"

	// Persistence errors (500-599)
	ErrCodeDBOpen      = "ERR_501_DB_OPEN"
	ErrCodeDBMigrate   = "ERR_502_DB_MIGRATE"
	ErrCodeWriteFailed = "ERR_503_WRITE_FAILED"
	ErrCodeDBCorrupt   = "ERR_504_DB_CORRUPT"
	ErrCodeQueryFailed = "ERR_505_QUERY_FAILED"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode reads the hundreds digit after the ERR_ prefix.
// Malformed codes land in CategoryInternal.
func categoryFromCode(code string) Category {
	if !strings.HasPrefix(code, "ERR_") || len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryFilesystem
	case '3':
		return CategoryParse
	case '4':
		return CategoryExtraction
	case '5':
		return CategoryPersistence
	default:
		return CategoryInternal
	}
}

// severityFromCode maps a code to how far its failure reaches.
func severityFromCode(code string) Severity {
	// Fatal errors abort the agent, not just the cycle.
	switch code {
	case ErrCodeDBOpen, ErrCodeDBMigrate, ErrCodeDBCorrupt:
		return SeverityFatal
	}

	// Skip-and-continue errors degrade the cycle but never stop it.
	switch code {
	case ErrCodeRowInvalid, ErrCodeFileUnreadable, ErrCodeEmptyDocument,
		ErrCodeBadFilename, ErrCodeUnsupportedKind:
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode reports whether the next poll tick retries the code.
// Only filesystem errors qualify; everything else waits for the file's
// fingerprint to change.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeDirUnreadable, ErrCodeFileStat:
		return true
	default:
		return false
	}
}
