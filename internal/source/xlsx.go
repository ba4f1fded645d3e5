package source

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// Required columns of the patient export. The header row is matched by
// name after trimming and uppercasing, so column order does not matter.
// NOM_JEUNE_FILLE and DATE_MORT are optional; when the columns are
// absent every row reads them as empty.
var requiredColumns = []string{
	"NOM",
	"PRENOM",
	"DATE_NAISSANCE",
	"SEXE",
	"ADRESSE",
	"TEL",
	"CP",
	"VILLE",
	"PAYS",
	"HOSPITAL_PATIENT_ID",
}

// Result holds the outcome of one spreadsheet read.
type Result struct {
	// Rows are the valid, de-duplicated patient rows in sheet order.
	Rows []PatientRow
	// Skipped counts rows dropped as invalid.
	Skipped int
	// Duplicates counts rows dropped by the keep-first duplicate rule.
	Duplicates int
}

// Reader parses the patient export spreadsheet.
type Reader struct {
	sheet string
}

// NewReader creates a reader for the given worksheet name.
func NewReader(sheet string) *Reader {
	return &Reader{sheet: sheet}
}

// Read opens the workbook at path and returns the parsed patient rows.
//
// Row policy: a row with an empty HOSPITAL_PATIENT_ID or an unparsable
// date is logged and skipped; duplicate rows (same lastname, firstname,
// birth date, address and phone) keep the first occurrence. Blank rows
// are ignored silently.
func (r *Reader) Read(path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSheetUnreadable,
			"cannot open patient spreadsheet", err).
			WithDetail("path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("closing spreadsheet failed",
				slog.String("path", path),
				slog.String("error", cerr.Error()))
		}
	}()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSheetMissing,
			fmt.Sprintf("worksheet %q not found", r.sheet), err).
			WithDetail("path", path).
			WithSuggestion("check spreadsheet.sheet in the configuration")
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeColumnMissing,
			"spreadsheet has no header row", nil).
			WithDetail("path", path)
	}

	columns, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	result := &Result{}
	seen := make(map[string]bool, len(rows))

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if isBlankRow(row) {
			continue
		}

		ipp := cell("HOSPITAL_PATIENT_ID")
		if ipp == "" {
			logSkippedRow(path, rowNum, "missing HOSPITAL_PATIENT_ID")
			result.Skipped++
			continue
		}

		birthRaw := cell("DATE_NAISSANCE")
		birthDate, err := parseDate(birthRaw)
		if err != nil {
			logSkippedRow(path, rowNum, fmt.Sprintf("invalid birth date %q", birthRaw))
			result.Skipped++
			continue
		}

		deathRaw := cell("DATE_MORT")
		deathDate, err := parseDate(deathRaw)
		if err != nil {
			logSkippedRow(path, rowNum, fmt.Sprintf("invalid death date %q", deathRaw))
			result.Skipped++
			continue
		}

		key := identityKey(cell("NOM"), cell("PRENOM"), birthRaw, cell("ADRESSE"), cell("TEL"))
		if seen[key] {
			result.Duplicates++
			continue
		}
		seen[key] = true

		result.Rows = append(result.Rows, PatientRow{
			HospitalPatientID: ipp,
			LastName:          cell("NOM"),
			FirstName:         cell("PRENOM"),
			BirthDate:         birthDate,
			Sex:               cell("SEXE"),
			MaidenName:        cell("NOM_JEUNE_FILLE"),
			Address:           cell("ADRESSE"),
			Phone:             cell("TEL"),
			ZipCode:           cell("CP"),
			City:              cell("VILLE"),
			Country:           cell("PAYS"),
			DeathDate:         deathDate,
		})
	}

	return result, nil
}

// mapColumns maps normalized header names to column indexes.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		normalized := strings.ToUpper(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := columns[normalized]; !exists {
			columns[normalized] = idx
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeColumnMissing,
			fmt.Sprintf("required columns missing: %s", strings.Join(missing, ", ")), nil).
			WithSuggestion("verify the export matches the expected patient schema")
	}

	return columns, nil
}

// isBlankRow reports whether every cell in the row is empty.
func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// logSkippedRow records one invalid row. The read continues; the row
// count surfaces in the cycle stats.
func logSkippedRow(path string, rowNum int, reason string) {
	rowErr := errors.New(errors.ErrCodeRowInvalid, reason, nil).
		WithDetail("path", path).
		WithDetail("row", fmt.Sprintf("%d", rowNum))
	slog.Warn("skipping spreadsheet row", errors.LogAttrs(rowErr)...)
}
