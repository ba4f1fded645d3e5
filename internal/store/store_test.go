package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwhsync/dwhsync/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dwh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPatient(ipp string) *Patient {
	return &Patient{
		HospitalPatientID: ipp,
		LastName:          "MARTIN",
		FirstName:         "Sophie",
		BirthDate:         time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC),
		Sex:               "F",
		Address:           "12 rue des Lilas",
		Phone:             "0601020304",
		ZipCode:           "44000",
		City:              "Nantes",
		Country:           "France",
	}
}

func testDocument(path, ipp string, patientNum int64) *Document {
	return &Document{
		FilePath:          path,
		PatientNum:        patientNum,
		HospitalPatientID: ipp,
		SourceDocID:       "100",
		OriginCode:        "DOSSIER_PATIENT",
		DocDate:           time.Date(2015, 6, 20, 0, 0, 0, 0, time.UTC),
		DocType:           "pdf",
		Text:              "Compte rendu de consultation.",
		PageCount:         2,
		WordCount:         4,
	}
}

// ====== Open ======

func TestOpen_CreatesDatabaseAndAppliesMigrations(t *testing.T) {
	// Given: a path in an empty directory
	path := filepath.Join(t.TempDir(), "dwh.db")

	// When: opening
	s, err := Open(path)

	// Then: the file exists and the schema is in place
	require.NoError(t, err)
	defer s.Close()

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	var version int
	require.NoError(t, s.db.QueryRow(
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version))
	assert.GreaterOrEqual(t, version, 1)

	counts, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestOpen_CreatesMissingParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "dwh.db")

	s, err := Open(path)

	require.NoError(t, err)
	defer s.Close()
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestOpen_EmptyPath_Fails(t *testing.T) {
	_, err := Open("")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDBOpen, errors.GetCode(err))
}

func TestOpen_Reopen_KeepsData(t *testing.T) {
	// Given: a database with one patient
	path := filepath.Join(t.TempDir(), "dwh.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.UpsertPatient(context.Background(), testPatient("789123456"), 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// When: reopening
	s, err = Open(path)

	// Then: migrations are idempotent and the data survived
	require.NoError(t, err)
	defer s.Close()
	_, found, err := s.GetPatient(context.Background(), "789123456")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestOpen_CorruptDatabase_FailsWithoutDeleting(t *testing.T) {
	// Given: a file that is not a SQLite database
	path := filepath.Join(t.TempDir(), "dwh.db")
	garbage := []byte("this is not a database, it is a text file")
	require.NoError(t, os.WriteFile(path, garbage, 0o600))

	// When: opening
	_, err := Open(path)

	// Then: a fatal corruption error, and the file is left untouched
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDBCorrupt, errors.GetCode(err))
	assert.True(t, errors.IsFatal(err))

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, garbage, data)
}

// ====== Counts ======

func TestCounts_ReflectsRows(t *testing.T) {
	// Given: two patients, one linked and one unlinked document, and a
	// persisted snapshot
	s := newTestStore(t)
	ctx := context.Background()

	num, err := s.UpsertPatient(ctx, testPatient("111"), 1)
	require.NoError(t, err)
	_, err = s.UpsertPatient(ctx, testPatient("222"), 1)
	require.NoError(t, err)

	require.NoError(t, s.UpsertDocument(ctx, testDocument("/exports/111_1.pdf", "111", num), 1))
	require.NoError(t, s.UpsertDocument(ctx, testDocument("/exports/999_2.pdf", "999", 0), 1))

	require.NoError(t, s.SaveWatched(ctx, snapshotOf(t, "/exports/111_1.pdf", "/exports/999_2.pdf"), nil))

	// When: counting
	counts, err := s.Counts(ctx)

	// Then
	require.NoError(t, err)
	assert.Equal(t, Counts{
		Patients:          2,
		Documents:         2,
		UnlinkedDocuments: 1,
		WatchedFiles:      2,
	}, counts)
}

// ====== Column helpers ======

func TestNullDate_RoundTrip(t *testing.T) {
	day := time.Date(2015, 6, 20, 0, 0, 0, 0, time.UTC)

	v := nullDate(day)
	require.Equal(t, "2015-06-20", v)

	back := parseDate(sql.NullString{String: "2015-06-20", Valid: true})
	assert.True(t, day.Equal(back))
}

func TestNullDate_ZeroTimeIsNull(t *testing.T) {
	assert.Nil(t, nullDate(time.Time{}))
	assert.True(t, parseDate(sql.NullString{}).IsZero())
	assert.True(t, parseDate(sql.NullString{String: "garbage", Valid: true}).IsZero())
}

func TestParseTimestamp_Malformed(t *testing.T) {
	assert.True(t, parseTimestamp("not a timestamp").IsZero())
	assert.False(t, parseTimestamp("2026-03-01T10:00:00Z").IsZero())
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", nullString("x"))
}

func TestNullInt64(t *testing.T) {
	assert.Nil(t, nullInt64(0))
	assert.Equal(t, int64(7), nullInt64(7))
}
