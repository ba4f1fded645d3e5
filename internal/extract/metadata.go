package extract

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Metadata is what the text of a document reveals about itself.
type Metadata struct {
	// DocDate is the first plausible date in the text, zero if none.
	DocDate time.Time
	// Author is the last "dr <name>" mention, title-cased. Clinical
	// letters name the signing physician at the bottom, so the last
	// mention is the author.
	Author string
}

var (
	datePattern   = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	authorPattern = regexp.MustCompile(`\b(dr)\s+([a-z]+(?:\s+[a-z]+)?)\b`)
	wsPattern     = regexp.MustCompile(`\s+`)

	titleCaser = cases.Title(language.French)
)

// docDateFloorYear rejects dates from before the source systems existed;
// birth dates and other historic dates in the text never qualify as the
// document date.
const docDateFloorYear = 2001

// ExtractMetadata scans document text for its date and author.
func ExtractMetadata(text string) Metadata {
	if text == "" {
		return Metadata{}
	}

	normalized := normalizeText(text)

	var meta Metadata
	for _, candidate := range datePattern.FindAllString(normalized, -1) {
		d, err := time.Parse("02/01/2006", candidate)
		if err != nil {
			continue
		}
		if d.Year() >= docDateFloorYear {
			meta.DocDate = d
			break
		}
	}

	matches := authorPattern.FindAllStringSubmatch(normalized, -1)
	if len(matches) > 0 {
		last := matches[len(matches)-1]
		meta.Author = titleCaser.String(last[1] + " " + last[2])
	}

	return meta
}

// normalizeText lowercases and collapses all whitespace to single spaces.
func normalizeText(text string) string {
	text = strings.TrimSpace(text)
	text = wsPattern.ReplaceAllString(text, " ")
	return strings.ToLower(text)
}
