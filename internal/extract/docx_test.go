package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwhsync/dwhsync/internal/errors"
)

const docxHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:v="urn:schemas-microsoft-com:vml">
<w:body>`

const docxFooter = `</w:body>
</w:document>`

func para(text string) string {
	return `<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func textbox(paras ...string) string {
	s := `<w:p><w:r><w:pict><v:shape><v:textbox><w:txbxContent>`
	for _, p := range paras {
		s += para(p)
	}
	return s + `</w:txbxContent></v:textbox></v:shape></w:pict></w:r></w:p>`
}

func table(cells ...string) string {
	s := `<w:tbl><w:tr>`
	for _, c := range cells {
		s += `<w:tc>` + para(c) + `</w:tc>`
	}
	return s + `</w:tr></w:tbl>`
}

// writeDocx builds a minimal docx archive. Empty core/app skip those parts.
func writeDocx(t *testing.T, name, body, coreXML, appXML string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	out, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(out)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(docxHeader + body + docxFooter))
	require.NoError(t, err)

	if coreXML != "" {
		w, err = zw.Create("docProps/core.xml")
		require.NoError(t, err)
		_, err = w.Write([]byte(coreXML))
		require.NoError(t, err)
	}
	if appXML != "" {
		w, err = zw.Create("docProps/app.xml")
		require.NoError(t, err)
		_, err = w.Write([]byte(appXML))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return path
}

func coreProps(title string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>` + title + `</dc:title>
</cp:coreProperties>`
}

func appProps(pages string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">
<Pages>` + pages + `</Pages>
</Properties>`
}

func TestDOCXExtract_BodyParagraphs(t *testing.T) {
	// Given: a document with two body paragraphs
	path := writeDocx(t, "1001_200.docx",
		para("Compte rendu de consultation.")+para("Pas d'anomalie."), "", "")

	// When: extracting
	ex, err := NewDOCXExtractor().Extract(context.Background(), path)

	// Then: paragraphs are joined in order
	require.NoError(t, err)
	assert.Equal(t, "Compte rendu de consultation.\nPas d'anomalie.", ex.Text)
	assert.Equal(t, OriginRadiologie, ex.OriginCode)
	assert.Equal(t, 1, ex.PageCount)
	assert.Equal(t, 6, ex.WordCount)
}

func TestDOCXExtract_TableCells(t *testing.T) {
	path := writeDocx(t, "1001_201.docx",
		table("Examen", "IRM cérébrale")+para("Conclusion normale."), "", "")

	ex, err := NewDOCXExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Examen\nIRM cérébrale\nConclusion normale.", ex.Text)
}

func TestDOCXExtract_TextboxesComeFirst(t *testing.T) {
	// Given: body text before a text box in document order
	path := writeDocx(t, "1001_202.docx",
		para("Corps du rapport.")+textbox("Encadré technique."), "", "")

	// When: extracting
	ex, err := NewDOCXExtractor().Extract(context.Background(), path)

	// Then: text box content leads regardless of document order
	require.NoError(t, err)
	assert.Equal(t, "Encadré technique.\nCorps du rapport.", ex.Text)
}

func TestDOCXExtract_DuplicateTextboxRunsAppearOnce(t *testing.T) {
	path := writeDocx(t, "1001_203.docx",
		textbox("Confidentiel")+textbox("Confidentiel", "Service radiologie")+para("Corps."), "", "")

	ex, err := NewDOCXExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Confidentiel\nService radiologie\nCorps.", ex.Text)
}

func TestDOCXExtract_AllThreeBuckets(t *testing.T) {
	path := writeDocx(t, "1001_204.docx",
		para("Introduction.")+table("Dose", "2 mSv")+textbox("En-tête service."), "", "")

	ex, err := NewDOCXExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "En-tête service.\nDose\n2 mSv\nIntroduction.", ex.Text)
}

func TestDOCXExtract_TitleFromCoreProperties(t *testing.T) {
	path := writeDocx(t, "1001_205.docx",
		para("Corps."), coreProps("Compte rendu IRM"), "")

	ex, err := NewDOCXExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Compte rendu IRM", ex.Title)
}

func TestDOCXExtract_TitleFallsBackToFileStem(t *testing.T) {
	path := writeDocx(t, "1001_206.docx", para("Corps."), "", "")

	ex, err := NewDOCXExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "1001_206", ex.Title)
}

func TestDOCXExtract_PageCountFromAppProperties(t *testing.T) {
	path := writeDocx(t, "1001_207.docx", para("Corps."), "", appProps("3"))

	ex, err := NewDOCXExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, ex.PageCount)
}

func TestDOCXExtract_MetadataFromText(t *testing.T) {
	// Given: a report carrying its date and signer in the text
	path := writeDocx(t, "1001_208.docx",
		para("Examen réalisé le 20/06/2015.")+para("Signé Dr Dupont"), "", "")

	// When: extracting
	ex, err := NewDOCXExtractor().Extract(context.Background(), path)

	// Then: document date and author are recovered
	require.NoError(t, err)
	assert.Equal(t, time.Date(2015, 6, 20, 0, 0, 0, 0, time.UTC), ex.DocDate)
	assert.Equal(t, "Dr Dupont", ex.Author)
}

func TestDOCXExtract_EmptyDocument(t *testing.T) {
	path := writeDocx(t, "1001_209.docx", para(""), "", "")

	_, err := NewDOCXExtractor().Extract(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEmptyDocument, errors.GetCode(err))
}

func TestDOCXExtract_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1001_210.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a zip"), 0o644))

	_, err := NewDOCXExtractor().Extract(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileUnreadable, errors.GetCode(err))
}

func TestDOCXExtract_ZipWithoutDocumentXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1001_211.docx")
	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("something/else.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	_, err = NewDOCXExtractor().Extract(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileUnreadable, errors.GetCode(err))
}

func TestDOCXExtract_CancelledContext(t *testing.T) {
	path := writeDocx(t, "1001_212.docx", para("Corps."), "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDOCXExtractor().Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
