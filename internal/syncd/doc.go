// Package syncd runs the sync loop: poll the export directory and the
// patient spreadsheet, diff fingerprints against the previous snapshot,
// and push the changes into the warehouse.
//
// One Orchestrator owns the in-memory snapshot; cycles are strictly
// sequential and nothing else touches the snapshot or the database
// while the loop runs. A cycle that fails is logged and the loop keeps
// going; the poll interval is the only retry mechanism.
//
// Usage:
//
//	orch, err := syncd.New(syncd.Options{
//		Lister:      syncd.DirLister{Dir: cfg.Watch.Dir, Extensions: reg.Extensions(), Spreadsheet: cfg.Watch.Spreadsheet},
//		SheetReader: source.NewReader(cfg.Spreadsheet.Sheet),
//		Extractor:   reg,
//		Store:       st,
//		SheetPath:   cfg.SpreadsheetPath(),
//	})
//	if err != nil {
//		return err
//	}
//	err = orch.Run(ctx)
package syncd
