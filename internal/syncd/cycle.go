package syncd

import (
	"context"
	"strings"

	"github.com/dwhsync/dwhsync/internal/errors"
	"github.com/dwhsync/dwhsync/internal/extract"
	"github.com/dwhsync/dwhsync/internal/snapshot"
	"github.com/dwhsync/dwhsync/internal/source"
	"github.com/dwhsync/dwhsync/internal/store"
)

// Stats summarizes one sync cycle.
type Stats struct {
	Trigger  string `json:"trigger"`
	UploadID int64  `json:"upload_id"`

	Added    int `json:"added"`
	Modified int `json:"modified"`
	Deleted  int `json:"deleted"`

	SheetChanged bool `json:"sheet_changed"`

	PatientsUpserted  int64 `json:"patients_upserted"`
	DocumentsUpserted int64 `json:"documents_upserted"`
	DocumentsDeleted  int64 `json:"documents_deleted"`
	DocumentsLinked   int64 `json:"documents_linked"`
	RowsSkipped       int64 `json:"rows_skipped"`
	Errors            int64 `json:"errors"`
}

// DidWork reports whether the cycle had anything to sync.
func (s Stats) DidWork() bool {
	return s.Added+s.Modified+s.Deleted > 0 || s.SheetChanged
}

// RunCycle executes one full sync cycle: observe, diff, apply, persist.
// A clean no-change cycle performs zero writes. Per-file failures are
// logged and counted; only observation or context errors abort the
// cycle, leaving the snapshot untouched so the next cycle retries.
func (o *Orchestrator) RunCycle(ctx context.Context, trigger string) (Stats, error) {
	stats := Stats{Trigger: trigger}
	started := o.clock.Now()

	docs, err := o.lister.ListDocuments()
	if err != nil {
		return stats, err
	}
	sheetFP, sheetPresent, err := o.lister.StatSpreadsheet()
	if err != nil {
		return stats, err
	}
	curSheet := snapshot.Snapshot{}
	if sheetPresent {
		curSheet[o.sheetPath] = sheetFP
	}

	changes := snapshot.Diff(o.docs, docs)
	sheetDiff := snapshot.Diff(o.sheetFP, curSheet)
	stats.Added = len(changes.Added)
	stats.Modified = len(changes.Modified)
	stats.Deleted = len(changes.Deleted)
	stats.SheetChanged = !sheetDiff.Empty()

	if !stats.DidWork() {
		o.docs = docs
		o.sheetFP = curSheet
		return stats, nil
	}

	uploadID, err := o.store.NextUploadID(ctx)
	if err != nil {
		return stats, err
	}
	stats.UploadID = uploadID

	for _, path := range changes.Deleted {
		deleted, err := o.store.DeleteDocumentByPath(ctx, path)
		if err != nil {
			stats.Errors++
			o.log.Warn("document delete failed", append([]any{"path", path}, errors.LogAttrs(err)...)...)
			continue
		}
		if deleted {
			stats.DocumentsDeleted++
		}
	}

	upserts := make([]string, 0, len(changes.Added)+len(changes.Modified))
	upserts = append(upserts, changes.Added...)
	upserts = append(upserts, changes.Modified...)
	for _, path := range upserts {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if err := o.syncDocument(ctx, path, uploadID); err != nil {
			stats.Errors++
			o.log.Warn("document skipped", append([]any{"path", path}, errors.LogAttrs(err)...)...)
			continue
		}
		stats.DocumentsUpserted++
	}

	if stats.SheetChanged {
		if sheetPresent {
			o.refreshSheet(ctx, uploadID, &stats)
		} else {
			o.log.Warn("spreadsheet disappeared, keeping known patients", "path", o.sheetPath)
		}
	}

	o.docs = docs
	o.sheetFP = curSheet

	if err := o.store.SaveWatched(ctx, o.docs, o.sheetFP); err != nil {
		stats.Errors++
		o.log.Warn("persisting snapshot failed", errors.LogAttrs(err)...)
	}

	run := &store.SyncRun{
		UploadID:          uploadID,
		StartedAt:         started,
		FinishedAt:        o.clock.Now(),
		Trigger:           trigger,
		PatientsUpserted:  stats.PatientsUpserted,
		DocumentsUpserted: stats.DocumentsUpserted,
		DocumentsDeleted:  stats.DocumentsDeleted,
		RowsSkipped:       stats.RowsSkipped,
		Errors:            stats.Errors,
	}
	if err := o.store.RecordRun(ctx, run); err != nil {
		o.log.Warn("recording sync run failed", errors.LogAttrs(err)...)
	} else if err := o.store.PruneRuns(ctx, runHistoryLimit); err != nil {
		o.log.Warn("pruning sync history failed", errors.LogAttrs(err)...)
	}

	return stats, nil
}

// syncDocument extracts one file and upserts its row. An unknown
// patient does not block the document; the row is stored unlinked and
// attached once the patient appears in the spreadsheet.
func (o *Orchestrator) syncDocument(ctx context.Context, path string, uploadID int64) error {
	name, err := extract.ParseDocName(path)
	if err != nil {
		return err
	}

	ext, err := o.extractor.Extract(ctx, path)
	if err != nil {
		return err
	}

	patientNum, err := o.resolvePatient(ctx, name.HospitalPatientID)
	if err != nil {
		return err
	}
	if patientNum == 0 {
		o.log.Warn("patient not in warehouse yet, storing document unlinked",
			"path", path,
			"hospital_patient_id", name.HospitalPatientID)
	}

	doc := &store.Document{
		FilePath:          path,
		PatientNum:        patientNum,
		HospitalPatientID: name.HospitalPatientID,
		SourceDocID:       name.SourceDocID,
		Title:             ext.Title,
		OriginCode:        ext.OriginCode,
		DocDate:           ext.DocDate,
		DocType:           strings.TrimPrefix(name.Ext, "."),
		Text:              ext.Text,
		Author:            ext.Author,
		PageCount:         ext.PageCount,
		WordCount:         ext.WordCount,
	}
	return o.store.UpsertDocument(ctx, doc, uploadID)
}

// resolvePatient maps an IPP to its surrogate key, caching hits.
// Unknown patients return 0 and are never cached, so a later spreadsheet
// refresh resolves them.
func (o *Orchestrator) resolvePatient(ctx context.Context, hospitalPatientID string) (int64, error) {
	if num, ok := o.patients.Get(hospitalPatientID); ok {
		return num, nil
	}
	num, found, err := o.store.ResolvePatientNum(ctx, hospitalPatientID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	o.patients.Add(hospitalPatientID, num)
	return num, nil
}

// refreshSheet re-reads the whole spreadsheet and upserts every row.
// A parse failure skips the refresh but the fingerprint still advances,
// so a broken file is not retried until it changes again.
func (o *Orchestrator) refreshSheet(ctx context.Context, uploadID int64, stats *Stats) {
	result, err := o.reader.Read(o.sheetPath)
	if err != nil {
		stats.Errors++
		o.log.Warn("spreadsheet refresh skipped", errors.LogAttrs(err)...)
		return
	}
	stats.RowsSkipped = int64(result.Skipped)
	if result.Duplicates > 0 {
		o.log.Info("duplicate spreadsheet rows ignored", "count", result.Duplicates)
	}

	patients := make([]store.Patient, 0, len(result.Rows))
	for _, row := range result.Rows {
		patients = append(patients, patientFromRow(row))
	}
	upserted, err := o.store.UpsertPatients(ctx, patients, uploadID)
	if err != nil {
		stats.Errors++
		o.log.Warn("patient import failed", errors.LogAttrs(err)...)
		return
	}
	stats.PatientsUpserted = int64(upserted)
	o.patients.Purge()

	linked, err := o.store.LinkOrphanDocuments(ctx)
	if err != nil {
		stats.Errors++
		o.log.Warn("linking orphan documents failed", errors.LogAttrs(err)...)
		return
	}
	if linked > 0 {
		stats.DocumentsLinked = linked
		o.log.Info("orphan documents linked", "count", linked)
	}
}

// patientFromRow maps a spreadsheet row onto a warehouse patient.
func patientFromRow(row source.PatientRow) store.Patient {
	return store.Patient{
		HospitalPatientID: row.HospitalPatientID,
		LastName:          row.LastName,
		FirstName:         row.FirstName,
		BirthDate:         row.BirthDate,
		Sex:               row.Sex,
		MaidenName:        row.MaidenName,
		Address:           row.Address,
		Phone:             row.Phone,
		ZipCode:           row.ZipCode,
		City:              row.City,
		Country:           row.Country,
		DeathDate:         row.DeathDate,
	}
}
