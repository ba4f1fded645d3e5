package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// Extraction is the content and metadata pulled from one document file.
type Extraction struct {
	// Title of the document, when the format carries one. Empty otherwise.
	Title string
	// Author recovered from the text ("Dr Jean Dupont"), empty if none.
	Author string
	// DocDate is the document's own date, zero when the text carries none.
	DocDate time.Time
	// Text is the full extracted text.
	Text string
	// OriginCode identifies the producing system for this document kind.
	OriginCode string
	PageCount  int
	WordCount  int
}

// Extractor extracts content from one document kind.
type Extractor interface {
	// Extensions returns the file extensions this extractor handles,
	// lowercase with leading dot.
	Extensions() []string
	// Extract reads the file at path and returns its content.
	Extract(ctx context.Context, path string) (*Extraction, error)
}

// Registry routes file paths to extractors by extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry builds a registry from the given extractors.
// Later extractors win on extension conflicts.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			r.byExt[strings.ToLower(ext)] = e
		}
	}
	return r
}

// Default returns a registry with the standard document extractors.
func Default() *Registry {
	return NewRegistry(NewPDFExtractor(), NewDOCXExtractor())
}

// ForPath returns the extractor responsible for the file at path.
func (r *Registry) ForPath(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedKind,
			fmt.Sprintf("no extractor for %q files", ext), nil).
			WithDetail("path", path)
	}
	return e, nil
}

// Extract routes path to its extractor and runs it.
func (r *Registry) Extract(ctx context.Context, path string) (*Extraction, error) {
	e, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, path)
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// countWords counts whitespace-separated tokens.
func countWords(text string) int {
	return len(strings.Fields(text))
}
