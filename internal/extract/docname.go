package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// DocName is the metadata encoded in an export file name.
type DocName struct {
	// HospitalPatientID is the IPP part before the first underscore.
	HospitalPatientID string
	// SourceDocID is the source system's document identifier.
	SourceDocID string
	// Ext is the lowercase extension with leading dot.
	Ext string
}

// ParseDocName decodes the {IPP}_{DOCID}.{ext} convention from a file name.
// The document identifier may itself contain underscores; the split is on
// the first one. A name with no underscore or an empty part is malformed.
func ParseDocName(name string) (DocName, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	ipp, docID, found := strings.Cut(stem, "_")
	if !found || ipp == "" || docID == "" {
		return DocName{}, errors.New(errors.ErrCodeBadFilename,
			fmt.Sprintf("file name %q does not follow the IPP_DOCID convention", base), nil).
			WithDetail("path", name)
	}

	return DocName{
		HospitalPatientID: ipp,
		SourceDocID:       docID,
		Ext:               strings.ToLower(ext),
	}, nil
}
