// Package source reads the patient export spreadsheet.
//
// The spreadsheet is the authoritative source for patient identity: one row
// per patient, keyed by HOSPITAL_PATIENT_ID (the IPP assigned by the
// hospital information system). The reader maps the header row to column
// indexes, validates each row, and drops duplicate rows keeping the first
// occurrence, mirroring how the export itself is produced.
//
// Invalid rows are logged and skipped; only a missing worksheet, a missing
// required column, or an unreadable workbook abort the read.
package source
