package source

import (
	"strings"
	"time"
)

// PatientRow is one patient from the export spreadsheet, parsed and trimmed.
// A zero DeathDate means the patient is not recorded as deceased.
type PatientRow struct {
	HospitalPatientID string
	LastName          string
	FirstName         string
	BirthDate         time.Time
	Sex               string
	MaidenName        string
	Address           string
	Phone             string
	ZipCode           string
	City              string
	Country           string
	DeathDate         time.Time
}

// Deceased reports whether the row carries a death date.
func (p PatientRow) Deceased() bool {
	return !p.DeathDate.IsZero()
}

// identityKey builds the duplicate-detection key from the raw cell values.
// The subset (lastname, firstname, birth date, address, phone) matches the
// export's own de-duplication rule; values are compared as written.
func identityKey(lastName, firstName, birthDate, address, phone string) string {
	return strings.Join([]string{lastName, firstName, birthDate, address, phone}, "\x1f")
}

// dateLayouts are the cell formats seen in the export: French day-first
// and ISO. Ambiguous month-first forms are not accepted.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2006-01-02 15:04:05",
}

// parseDate parses a spreadsheet date cell. Empty cells are valid and
// return the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
