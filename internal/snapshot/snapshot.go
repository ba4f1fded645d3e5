package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// Fingerprint identifies a file version by modification time and size.
// Two observations with equal fingerprints are treated as the same content.
type Fingerprint struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether two fingerprints denote the same file version.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Size == other.Size && f.ModTime.Equal(other.ModTime)
}

// Snapshot maps file paths to fingerprints.
type Snapshot map[string]Fingerprint

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for path, fp := range s {
		out[path] = fp
	}
	return out
}

// List reads dir once and returns a snapshot of the recognized document
// files, keyed by full path. Only regular files whose extension is in exts
// (case-insensitive) are included; exclude names the spreadsheet file, which
// is tracked separately via Stat. Subdirectories are not descended into; the
// export directory is flat by convention.
func List(dir string, exts []string, exclude string) (Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(errors.ErrCodeDirUnreadable,
			"cannot read watch directory", err).
			WithDetail("dir", dir)
	}

	snap := make(Snapshot, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if exclude != "" && strings.EqualFold(name, exclude) {
			continue
		}
		if !hasExtension(name, exts) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Deleted between ReadDir and Info: it will show up as
			// Deleted on the next cycle.
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.New(errors.ErrCodeFileStat,
				"cannot stat watched file", err).
				WithDetail("path", filepath.Join(dir, name))
		}

		snap[filepath.Join(dir, name)] = Fingerprint{ModTime: info.ModTime(), Size: info.Size()}
	}

	return snap, nil
}

// Stat fingerprints a single file, typically the patient spreadsheet.
// A missing file is reported via the bool, not as an error.
func Stat(path string) (Fingerprint, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Fingerprint{}, false, nil
		}
		return Fingerprint{}, false, errors.New(errors.ErrCodeFileStat,
			"cannot stat file", err).
			WithDetail("path", path)
	}
	if info.IsDir() {
		return Fingerprint{}, false, nil
	}
	return Fingerprint{ModTime: info.ModTime(), Size: info.Size()}, true, nil
}

// hasExtension reports whether name carries one of the recognized
// extensions, compared case-insensitively.
func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
