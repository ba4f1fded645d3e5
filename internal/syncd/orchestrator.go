package syncd

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dwhsync/dwhsync/internal/errors"
	"github.com/dwhsync/dwhsync/internal/extract"
	"github.com/dwhsync/dwhsync/internal/snapshot"
	"github.com/dwhsync/dwhsync/internal/source"
	"github.com/dwhsync/dwhsync/internal/store"
)

// patientCacheSize bounds the IPP to patient_num cache. The cache is
// purged wholesale on every spreadsheet refresh.
const patientCacheSize = 1000

// runHistoryLimit is how many sync_runs rows are kept.
const runHistoryLimit = 100

// Lister observes the export directory and the spreadsheet.
type Lister interface {
	// ListDocuments fingerprints every document file in the watch
	// directory.
	ListDocuments() (snapshot.Snapshot, error)
	// StatSpreadsheet fingerprints the spreadsheet. The boolean reports
	// whether the file exists.
	StatSpreadsheet() (snapshot.Fingerprint, bool, error)
}

// SheetReader parses the patient spreadsheet.
type SheetReader interface {
	Read(path string) (*source.Result, error)
}

// Extractor pulls content and metadata from one document file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*extract.Extraction, error)
}

// Warehouse is the slice of the store the orchestrator drives.
type Warehouse interface {
	LoadWatched(ctx context.Context) (snapshot.Snapshot, snapshot.Snapshot, error)
	SaveWatched(ctx context.Context, docs, sheet snapshot.Snapshot) error
	NextUploadID(ctx context.Context) (int64, error)
	UpsertPatients(ctx context.Context, patients []store.Patient, uploadID int64) (int, error)
	ResolvePatientNum(ctx context.Context, hospitalPatientID string) (int64, bool, error)
	LinkOrphanDocuments(ctx context.Context) (int64, error)
	UpsertDocument(ctx context.Context, d *store.Document, uploadID int64) error
	DeleteDocumentByPath(ctx context.Context, path string) (bool, error)
	RecordRun(ctx context.Context, run *store.SyncRun) error
	PruneRuns(ctx context.Context, keep int) error
}

// Verify interface implementation at compile time
var _ Warehouse = (*store.Store)(nil)

// Options configures an Orchestrator. Lister, SheetReader, Extractor,
// Store and SheetPath are required.
type Options struct {
	Lister      Lister
	SheetReader SheetReader
	Extractor   Extractor
	Store       Warehouse

	// SheetPath is the full spreadsheet path, as it appears in the
	// persisted snapshot.
	SheetPath string

	// PollInterval between cycles. Defaults to 30 seconds.
	PollInterval time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock defaults to the wall clock.
	Clock Clock
}

// Orchestrator owns the in-memory snapshot and runs sync cycles against
// it. Nothing else reads or writes the snapshot; cycles are strictly
// sequential.
type Orchestrator struct {
	lister    Lister
	reader    SheetReader
	extractor Extractor
	store     Warehouse
	sheetPath string
	interval  time.Duration
	log       *slog.Logger
	clock     Clock
	wake      chan struct{}

	docs     snapshot.Snapshot
	sheetFP  snapshot.Snapshot
	patients *lru.Cache[string, int64]
}

// New creates an Orchestrator. It performs no I/O; the persisted
// snapshot is restored when Run or RunOnce starts.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Lister == nil:
		return nil, errors.InternalError("syncd: Lister is required", nil)
	case opts.SheetReader == nil:
		return nil, errors.InternalError("syncd: SheetReader is required", nil)
	case opts.Extractor == nil:
		return nil, errors.InternalError("syncd: Extractor is required", nil)
	case opts.Store == nil:
		return nil, errors.InternalError("syncd: Store is required", nil)
	case opts.SheetPath == "":
		return nil, errors.InternalError("syncd: SheetPath is required", nil)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}

	cache, err := lru.New[string, int64](patientCacheSize)
	if err != nil {
		return nil, errors.InternalError("syncd: create patient cache", err)
	}

	return &Orchestrator{
		lister:    opts.Lister,
		reader:    opts.SheetReader,
		extractor: opts.Extractor,
		store:     opts.Store,
		sheetPath: opts.SheetPath,
		interval:  opts.PollInterval,
		log:       opts.Logger,
		clock:     opts.Clock,
		wake:      make(chan struct{}, 1),
		docs:      snapshot.Snapshot{},
		sheetFP:   snapshot.Snapshot{},
		patients:  cache,
	}, nil
}

// Wake requests an early cycle. Calls arriving while a wake is already
// pending coalesce into one.
func (o *Orchestrator) Wake() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// restore loads the snapshot persisted by the previous process, so the
// first cycle reprocesses only what changed since, crash included.
func (o *Orchestrator) restore(ctx context.Context) error {
	docs, sheet, err := o.store.LoadWatched(ctx)
	if err != nil {
		return err
	}
	o.docs = docs
	o.sheetFP = sheet
	o.log.Info("snapshot restored",
		"documents", len(docs),
		"spreadsheet_tracked", len(sheet) > 0)
	return nil
}

// DirLister lists a real export directory.
type DirLister struct {
	// Dir is the watch directory.
	Dir string
	// Extensions are the document extensions to include, lowercase with
	// leading dot.
	Extensions []string
	// Spreadsheet is the spreadsheet file name inside Dir, excluded
	// from document listings.
	Spreadsheet string
}

var _ Lister = DirLister{}

// ListDocuments fingerprints the document files in Dir.
func (l DirLister) ListDocuments() (snapshot.Snapshot, error) {
	return snapshot.List(l.Dir, l.Extensions, l.Spreadsheet)
}

// StatSpreadsheet fingerprints the spreadsheet inside Dir.
func (l DirLister) StatSpreadsheet() (snapshot.Fingerprint, bool, error) {
	return snapshot.Stat(filepath.Join(l.Dir, l.Spreadsheet))
}
