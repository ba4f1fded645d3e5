package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// OriginRadiologie marks documents exported from the radiology reporting
// software, which produces DOCX files.
const OriginRadiologie = "RADIOLOGIE_SOFTWARE"

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// DOCXExtractor extracts text from Word documents: text boxes first, then
// table cells, then body paragraphs, matching the layout the radiology
// reports use (findings live in text boxes and tables).
type DOCXExtractor struct{}

// NewDOCXExtractor creates a DOCX extractor.
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

// Extensions returns the extensions handled by this extractor.
func (e *DOCXExtractor) Extensions() []string {
	return []string{".docx"}
}

// Extract reads the document at path.
func (e *DOCXExtractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFileUnreadable,
			"cannot open docx", err).
			WithDetail("path", path)
	}
	defer func() {
		_ = zr.Close()
	}()

	var docXML, coreXML, appXML *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			docXML = f
		case "docProps/core.xml":
			coreXML = f
		case "docProps/app.xml":
			appXML = f
		}
	}
	if docXML == nil {
		return nil, errors.New(errors.ErrCodeFileUnreadable,
			"archive is not a wordprocessing document", nil).
			WithDetail("path", path)
	}

	text, err := readDocumentText(docXML)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFileUnreadable,
			"cannot parse docx body", err).
			WithDetail("path", path)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeEmptyDocument,
			"docx contains no text", nil).
			WithDetail("path", path)
	}

	title := readCoreTitle(coreXML)
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	meta := ExtractMetadata(text)
	return &Extraction{
		Title:      title,
		Author:     meta.Author,
		DocDate:    meta.DocDate,
		Text:       text,
		OriginCode: OriginRadiologie,
		PageCount:  readPageCount(appXML),
		WordCount:  countWords(text),
	}, nil
}

type paraKind int

const (
	paraBody paraKind = iota
	paraTable
	paraTextbox
)

type paraCtx struct {
	kind paraKind
	buf  strings.Builder
}

type cellCtx struct {
	paras []string
}

// readDocumentText walks word/document.xml and collects text in three
// buckets: text box runs (de-duplicated), table cells, body paragraphs.
// The buckets are concatenated in that order.
func readDocumentText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rc.Close()
	}()

	dec := xml.NewDecoder(rc)

	var (
		txbxDepth int
		tblDepth  int
		inText    bool
		tBuf      strings.Builder

		paraStack []*paraCtx
		cellStack []*cellCtx

		txbxChunks []string
		seenChunks = make(map[string]bool)
		tableCells []string
		bodyParas  []string
	)

	topPara := func() *paraCtx {
		if len(paraStack) == 0 {
			return nil
		}
		return paraStack[len(paraStack)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "txbxContent":
				txbxDepth++
			case "tbl":
				tblDepth++
			case "tc":
				if txbxDepth == 0 {
					cellStack = append(cellStack, &cellCtx{})
				}
			case "p":
				kind := paraBody
				if txbxDepth > 0 {
					kind = paraTextbox
				} else if tblDepth > 0 {
					kind = paraTable
				}
				paraStack = append(paraStack, &paraCtx{kind: kind})
			case "t":
				inText = true
				tBuf.Reset()
			}

		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "txbxContent":
				txbxDepth--
			case "tbl":
				tblDepth--
			case "tc":
				if txbxDepth == 0 && len(cellStack) > 0 {
					cell := cellStack[len(cellStack)-1]
					cellStack = cellStack[:len(cellStack)-1]
					text := strings.TrimSpace(strings.Join(cell.paras, "\n"))
					if text != "" {
						tableCells = append(tableCells, text)
					}
				}
			case "p":
				p := topPara()
				if p == nil {
					continue
				}
				paraStack = paraStack[:len(paraStack)-1]
				switch p.kind {
				case paraBody:
					bodyParas = append(bodyParas, p.buf.String())
				case paraTable:
					if len(cellStack) > 0 {
						cell := cellStack[len(cellStack)-1]
						cell.paras = append(cell.paras, p.buf.String())
					} else {
						bodyParas = append(bodyParas, p.buf.String())
					}
				}
				// Textbox paragraphs were routed chunk by chunk.
			case "t":
				inText = false
				chunk := tBuf.String()
				if chunk == "" {
					continue
				}
				p := topPara()
				if p != nil && p.kind == paraTextbox {
					if !seenChunks[chunk] {
						seenChunks[chunk] = true
						txbxChunks = append(txbxChunks, chunk)
					}
				} else if p != nil {
					p.buf.WriteString(chunk)
				}
			}

		case xml.CharData:
			if inText {
				tBuf.Write(t)
			}
		}
	}

	var parts []string
	if len(txbxChunks) > 0 {
		parts = append(parts, strings.Join(txbxChunks, "\n"))
	}
	parts = append(parts, tableCells...)
	parts = append(parts, bodyParas...)
	return strings.Join(parts, "\n"), nil
}

// readCoreTitle reads dc:title from docProps/core.xml. Any problem reads
// as an absent title.
func readCoreTitle(f *zip.File) string {
	if f == nil {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer func() {
		_ = rc.Close()
	}()

	var props struct {
		Title string `xml:"title"`
	}
	if err := xml.NewDecoder(rc).Decode(&props); err != nil {
		return ""
	}
	return strings.TrimSpace(props.Title)
}

// readPageCount reads the page count from docProps/app.xml. Word keeps it
// there for display; a document without one counts as a single page.
func readPageCount(f *zip.File) int {
	if f == nil {
		return 1
	}
	rc, err := f.Open()
	if err != nil {
		return 1
	}
	defer func() {
		_ = rc.Close()
	}()

	var props struct {
		Pages int `xml:"Pages"`
	}
	if err := xml.NewDecoder(rc).Decode(&props); err != nil || props.Pages <= 0 {
		return 1
	}
	return props.Pages
}
