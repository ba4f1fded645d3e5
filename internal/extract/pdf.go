package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// OriginDossierPatient marks documents exported from the patient record
// system, which produces PDFs.
const OriginDossierPatient = "DOSSIER_PATIENT"

// PDFExtractor extracts plain text from PDF files.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extensions returns the extensions handled by this extractor.
func (e *PDFExtractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract reads every page of the PDF at path and concatenates the text.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (_ *Extraction, err error) {
	// The underlying parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeFileUnreadable,
				fmt.Sprintf("pdf parser failed: %v", r), nil).
				WithDetail("path", path)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFileUnreadable,
			"cannot open pdf", err).
			WithDetail("path", path)
	}
	defer func() {
		_ = f.Close()
	}()

	pageCount := reader.NumPage()
	var sb strings.Builder
	for num := 1; num <= pageCount; num++ {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			// Skip unreadable pages, keep the rest.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeEmptyDocument,
			"pdf contains no extractable text", nil).
			WithDetail("path", path)
	}

	meta := ExtractMetadata(text)
	return &Extraction{
		Author:     meta.Author,
		DocDate:    meta.DocDate,
		Text:       text,
		OriginCode: OriginDossierPatient,
		PageCount:  pageCount,
		WordCount:  countWords(text),
	}, nil
}
