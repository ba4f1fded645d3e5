package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(fn func(*Writer)) string {
	var buf strings.Builder
	fn(New(&buf))
	return buf.String()
}

func TestStatus(t *testing.T) {
	got := capture(func(w *Writer) { w.Status("🔍", "Scanning export directory...") })
	assert.Equal(t, "🔍 Scanning export directory...\n", got)
}

func TestStatus_EmptyIconKeepsAlignment(t *testing.T) {
	got := capture(func(w *Writer) { w.Status("", "3 documents imported") })
	assert.Equal(t, "   3 documents imported\n", got)
}

func TestStatusf(t *testing.T) {
	got := capture(func(w *Writer) { w.Statusf("📂", "Found %d files in %s", 42, "./exports") })
	assert.Contains(t, got, "📂")
	assert.Contains(t, got, "Found 42 files in ./exports")
}

func TestLeveledIcons(t *testing.T) {
	cases := []struct {
		name string
		emit func(*Writer)
		icon string
		text string
	}{
		{"success", func(w *Writer) { w.Success("Sync complete") }, "✅", "Sync complete"},
		{"successf", func(w *Writer) { w.Successf("%d rows upserted", 7) }, "✅", "7 rows upserted"},
		{"warning", func(w *Writer) { w.Warning("Spreadsheet not found") }, "⚠️", "Spreadsheet not found"},
		{"warningf", func(w *Writer) { w.Warningf("%d orphan documents", 3) }, "⚠️", "3 orphan documents"},
		{"error", func(w *Writer) { w.Error("Warehouse is locked by another agent") }, "❌", "Warehouse is locked by another agent"},
		{"errorf", func(w *Writer) { w.Errorf("sync failed: %v", "disk full") }, "❌", "sync failed: disk full"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := capture(tc.emit)
			assert.Contains(t, got, tc.icon)
			assert.Contains(t, got, tc.text)
		})
	}
}

func TestField_AlignsValueColumn(t *testing.T) {
	got := capture(func(w *Writer) {
		w.Field("Patients", "128")
		w.Field("Unlinked documents", "3")
	})

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Patients:")
	assert.Contains(t, lines[1], "Unlinked documents:")
	assert.Equal(t, strings.Index(lines[0], "128"), strings.Index(lines[1], "3"),
		"values should start at the same column")
}

func TestFieldf(t *testing.T) {
	got := capture(func(w *Writer) { w.Fieldf("Database", "%s (%d KB)", "dwh.db", 512) })
	assert.Contains(t, got, "Database:")
	assert.Contains(t, got, "dwh.db (512 KB)")
}

func TestCode_IndentsEveryLine(t *testing.T) {
	got := capture(func(w *Writer) { w.Code("dwhsync watch\ndwhsync status") })
	assert.Contains(t, got, "  dwhsync watch\n")
	assert.Contains(t, got, "  dwhsync status\n")
}

func TestNewline(t *testing.T) {
	got := capture(func(w *Writer) { w.Newline() })
	assert.Equal(t, "\n", got)
}
