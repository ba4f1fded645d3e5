package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// Patient is one warehouse patient row, keyed by the hospital patient
// identifier (IPP).
type Patient struct {
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

// originSIH identifies the hospital information system as the issuer of
// every identifier in dwh_patient_ipphist.
const originSIH = "SIH"

const upsertPatientSQL = `
	INSERT INTO dwh_patient (
		hospital_patient_id, lastname, firstname, birth_date, sex,
		maiden_name, residence_address, phone_number, zip_code,
		residence_city, death_date, residence_country, death_code,
		update_date, upload_id
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(hospital_patient_id) DO UPDATE SET
		lastname          = excluded.lastname,
		firstname         = excluded.firstname,
		birth_date        = excluded.birth_date,
		sex               = excluded.sex,
		maiden_name       = excluded.maiden_name,
		residence_address = excluded.residence_address,
		phone_number      = excluded.phone_number,
		zip_code          = excluded.zip_code,
		residence_city    = excluded.residence_city,
		death_date        = excluded.death_date,
		residence_country = excluded.residence_country,
		death_code        = excluded.death_code,
		update_date       = excluded.update_date,
		upload_id         = excluded.upload_id
`

const upsertIPPHistSQL = `
	INSERT INTO dwh_patient_ipphist (
		hospital_patient_id, patient_num, origin_patient_id,
		master_patient_id, upload_id
	)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(hospital_patient_id) DO UPDATE SET
		patient_num       = excluded.patient_num,
		master_patient_id = excluded.master_patient_id,
		upload_id         = excluded.upload_id
`

// UpsertPatient inserts or refreshes one patient and its identifier
// history row in a single transaction. Returns the surrogate
// patient_num, which never changes once assigned.
func (s *Store) UpsertPatient(ctx context.Context, p *Patient, uploadID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed, "begin patient transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	num, err := upsertPatientTx(ctx, tx, p, uploadID, s.now().UTC())
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed, "commit patient transaction", err)
	}
	return num, nil
}

// UpsertPatients refreshes a full spreadsheet import in one transaction:
// either every row lands or none does. Returns the number of rows
// written.
func (s *Store) UpsertPatients(ctx context.Context, patients []Patient, uploadID int64) (int, error) {
	if len(patients) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed, "begin spreadsheet transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	for i := range patients {
		if _, err := upsertPatientTx(ctx, tx, &patients[i], uploadID, now); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed, "commit spreadsheet transaction", err)
	}
	return len(patients), nil
}

// upsertPatientTx writes dwh_patient and dwh_patient_ipphist for one
// patient inside the caller's transaction.
func upsertPatientTx(ctx context.Context, tx *sql.Tx, p *Patient, uploadID int64, now time.Time) (int64, error) {
	deathCode := "0"
	if !p.DeathDate.IsZero() {
		deathCode = "1"
	}

	_, err := tx.ExecContext(ctx, upsertPatientSQL,
		p.HospitalPatientID, p.LastName, p.FirstName, nullDate(p.BirthDate),
		p.Sex, nullString(p.MaidenName), p.Address, p.Phone, p.ZipCode,
		p.City, nullDate(p.DeathDate), p.Country, deathCode,
		now.Format(time.RFC3339), uploadID)
	if err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("upserting patient %s", p.HospitalPatientID), err).
			WithDetail("hospital_patient_id", p.HospitalPatientID)
	}

	var num int64
	err = tx.QueryRowContext(ctx,
		"SELECT patient_num FROM dwh_patient WHERE hospital_patient_id = ?",
		p.HospitalPatientID).Scan(&num)
	if err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("reading patient_num for %s", p.HospitalPatientID), err)
	}

	masterID := "0"
	if p.HospitalPatientID != "" {
		masterID = "1"
	}
	_, err = tx.ExecContext(ctx, upsertIPPHistSQL,
		p.HospitalPatientID, num, originSIH, masterID, uploadID)
	if err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("upserting identifier history for %s", p.HospitalPatientID), err)
	}

	return num, nil
}

// ResolvePatientNum maps a hospital patient identifier to its surrogate
// key. The boolean reports whether the patient is known.
func (s *Store) ResolvePatientNum(ctx context.Context, hospitalPatientID string) (int64, bool, error) {
	var num int64
	err := s.db.QueryRowContext(ctx,
		"SELECT patient_num FROM dwh_patient WHERE hospital_patient_id = ?",
		hospitalPatientID).Scan(&num)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.New(errors.ErrCodeQueryFailed,
			fmt.Sprintf("resolving patient %s", hospitalPatientID), err)
	}
	return num, true, nil
}

// GetPatient returns the stored row for one hospital patient identifier.
// The boolean reports whether the patient exists.
func (s *Store) GetPatient(ctx context.Context, hospitalPatientID string) (*Patient, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hospital_patient_id, lastname, firstname, birth_date, sex,
		       maiden_name, residence_address, phone_number, zip_code,
		       residence_city, death_date, residence_country
		FROM dwh_patient WHERE hospital_patient_id = ?
	`, hospitalPatientID)

	var p Patient
	var birth, maiden, death sql.NullString
	err := row.Scan(&p.HospitalPatientID, &p.LastName, &p.FirstName, &birth,
		&p.Sex, &maiden, &p.Address, &p.Phone, &p.ZipCode, &p.City, &death,
		&p.Country)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.New(errors.ErrCodeQueryFailed,
			fmt.Sprintf("reading patient %s", hospitalPatientID), err)
	}

	p.BirthDate = parseDate(birth)
	p.DeathDate = parseDate(death)
	if maiden.Valid {
		p.MaidenName = maiden.String
	}

	return &p, true, nil
}
