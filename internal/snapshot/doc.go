// Package snapshot captures the observed state of the watched export
// directory and computes changes between two observations.
//
// A Snapshot maps each recognized file name to its Fingerprint (modification
// time and size). Fingerprints are a cheap proxy for content: a file whose
// fingerprint is unchanged between two polls is treated as unchanged without
// reading it.
//
// Usage:
//
//	curr, err := snapshot.List(dir, []string{".pdf", ".docx"}, "export_patient.xlsx")
//	if err != nil {
//	    return err
//	}
//
//	changes := snapshot.Diff(prev, curr)
//	for _, path := range changes.Added {
//	    // Process new file
//	}
//
// Diff is a pure function; List and Stat are the only operations that touch
// the filesystem.
package snapshot
