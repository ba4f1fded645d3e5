package snapshot

import "sort"

// Changes partitions the paths that differ between two snapshots.
// The three slices are disjoint and sorted.
type Changes struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// Empty reports whether no changes were detected.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// Total returns the number of changed paths.
func (c Changes) Total() int {
	return len(c.Added) + len(c.Modified) + len(c.Deleted)
}

// Diff compares two snapshots and returns the changes from prev to curr.
//
// A path present only in curr is Added; present only in prev is Deleted;
// present in both with differing fingerprints is Modified. A file deleted
// and re-created between two polls is indistinguishable from an in-place
// edit and surfaces as a single Modified; the intermediate deletion is
// never observed.
func Diff(prev, curr Snapshot) Changes {
	var changes Changes

	for path, fp := range curr {
		prevFP, existed := prev[path]
		switch {
		case !existed:
			changes.Added = append(changes.Added, path)
		case !prevFP.Equal(fp):
			changes.Modified = append(changes.Modified, path)
		}
	}

	for path := range prev {
		if _, exists := curr[path]; !exists {
			changes.Deleted = append(changes.Deleted, path)
		}
	}

	sort.Strings(changes.Added)
	sort.Strings(changes.Modified)
	sort.Strings(changes.Deleted)

	return changes
}
