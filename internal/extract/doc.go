// Package extract turns clinical document files into text and metadata.
//
// Each document kind (PDF, DOCX) has an Extractor; a Registry routes a
// file path to the extractor for its extension. Extractors are stateless:
// they read the file they are given and return an Extraction, never
// touching shared state.
//
// File names follow the export convention {IPP}_{DOCID}.{ext}, where IPP
// is the hospital patient identifier and DOCID the source system's
// document identifier. ParseDocName decodes that convention; the document
// date and author are recovered from the text itself.
package extract
