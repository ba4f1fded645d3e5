package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// Document is one warehouse document row, keyed by the path of the
// source file in the export directory.
type Document struct {
	FilePath          string
	PatientNum        int64 // 0 while the patient is not yet known
	HospitalPatientID string
	SourceDocID       string
	Title             string
	OriginCode        string
	DocDate           time.Time
	DocType           string
	Text              string
	Author            string
	PageCount         int
	WordCount         int
}

const upsertDocumentSQL = `
	INSERT INTO dwh_document (
		file_path, patient_num, hospital_patient_id, source_doc_id, title,
		document_origin_code, document_date, document_type, displayed_text,
		author, page_count, word_count, upload_id, updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(file_path) DO UPDATE SET
		patient_num          = excluded.patient_num,
		hospital_patient_id  = excluded.hospital_patient_id,
		source_doc_id        = excluded.source_doc_id,
		title                = excluded.title,
		document_origin_code = excluded.document_origin_code,
		document_date        = excluded.document_date,
		document_type        = excluded.document_type,
		displayed_text       = excluded.displayed_text,
		author               = excluded.author,
		page_count           = excluded.page_count,
		word_count           = excluded.word_count,
		upload_id            = excluded.upload_id,
		updated_at           = excluded.updated_at
`

// UpsertDocument inserts or refreshes one document row. Each document is
// its own transaction so one failing file never poisons its neighbours.
func (s *Store) UpsertDocument(ctx context.Context, d *Document, uploadID int64) error {
	_, err := s.db.ExecContext(ctx, upsertDocumentSQL,
		d.FilePath, nullInt64(d.PatientNum), d.HospitalPatientID,
		d.SourceDocID, nullString(d.Title), d.OriginCode,
		nullDate(d.DocDate), d.DocType, d.Text, nullString(d.Author),
		d.PageCount, d.WordCount, uploadID,
		s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("upserting document %s", d.FilePath), err).
			WithDetail("path", d.FilePath)
	}
	return nil
}

// DeleteDocumentByPath removes the document row for a deleted file.
// Returns false when no row existed.
func (s *Store) DeleteDocumentByPath(ctx context.Context, path string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM dwh_document WHERE file_path = ?", path)
	if err != nil {
		return false, errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("deleting document %s", path), err).
			WithDetail("path", path)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("deleting document %s", path), err)
	}
	return n > 0, nil
}

// LinkOrphanDocuments attaches documents stored before their patient was
// known to patients imported since. Called after a spreadsheet refresh.
// Returns the number of documents linked.
func (s *Store) LinkOrphanDocuments(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE dwh_document
		SET patient_num = (
			SELECT p.patient_num FROM dwh_patient p
			WHERE p.hospital_patient_id = dwh_document.hospital_patient_id
		)
		WHERE patient_num IS NULL
		  AND hospital_patient_id IN (SELECT hospital_patient_id FROM dwh_patient)
	`)
	if err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed, "linking orphan documents", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.New(errors.ErrCodeWriteFailed, "linking orphan documents", err)
	}
	return n, nil
}

// GetDocumentByPath returns the stored row for one file path. The
// boolean reports whether the document exists.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT file_path, patient_num, hospital_patient_id, source_doc_id,
		       title, document_origin_code, document_date, document_type,
		       displayed_text, author, page_count, word_count
		FROM dwh_document WHERE file_path = ?
	`, path)

	var d Document
	var patientNum sql.NullInt64
	var title, docDate, text, author sql.NullString
	err := row.Scan(&d.FilePath, &patientNum, &d.HospitalPatientID,
		&d.SourceDocID, &title, &d.OriginCode, &docDate, &d.DocType,
		&text, &author, &d.PageCount, &d.WordCount)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.New(errors.ErrCodeQueryFailed,
			fmt.Sprintf("reading document %s", path), err)
	}

	if patientNum.Valid {
		d.PatientNum = patientNum.Int64
	}
	if title.Valid {
		d.Title = title.String
	}
	d.DocDate = parseDate(docDate)
	if text.Valid {
		d.Text = text.String
	}
	if author.Valid {
		d.Author = author.String
	}

	return &d, true, nil
}
