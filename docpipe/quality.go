package docpipe

import (
	"regexp"
	"strings"
	"unicode"
)

// ExtractionQuality scores the text recovered from a PDF. Low scores mean the
// Markdown is probably incomplete, typically a scan or a font without a
// ToUnicode map.
type ExtractionQuality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
	VisualRefCount  int     `json:"visual_ref_count"`
}

// Thresholds below which a text layer is not trusted.
const (
	minCharsPerPage   = 50
	minPrintableRatio = 0.85
)

// NeedsOCR reports whether the text layer is too thin or too garbled to trust.
func (q *ExtractionQuality) NeedsOCR() bool {
	thin := q.CharsPerPage < minCharsPerPage && q.HasImageStreams
	return thin || q.PrintableRatio < minPrintableRatio
}

// HasVisualGap reports text that points at figures while the PDF carries
// images, which the Markdown cannot show.
func (q *ExtractionQuality) HasVisualGap() bool {
	return q.HasImageStreams && q.VisualRefCount > 0
}

// scoreText fills the text-derived fields of q from the extracted text of
// all pages.
func (q *ExtractionQuality) scoreText(text string, chars int) {
	q.PrintableRatio = printableRatio(text)
	q.WordlikeRatio = wordlikeRatio(text)
	q.VisualRefCount = len(figureRef.FindAllStringIndex(text, -1)) + len(bareRef.FindAllStringIndex(text, -1))
	if q.PageCount > 0 {
		q.CharsPerPage = float64(chars) / float64(q.PageCount)
	}
}

// printableRatio is the share of runes that are printable or ordinary
// whitespace. Private-use runes, U+FFFD and control characters count against
// it. Empty text scores 1.
func printableRatio(text string) float64 {
	var total, bad int
	for _, r := range text {
		total++
		switch {
		case r == '\n', r == '\r', r == '\t':
		case r < 0x20, r == unicode.ReplacementChar, unicode.In(r, unicode.Co):
			bad++
		case !unicode.IsPrint(r):
			bad++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(total-bad) / float64(total)
}

// wordlikeRatio is the share of whitespace-separated tokens between 2 and 15
// runes long.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n := 0
	for _, f := range fields {
		if l := len([]rune(f)); l >= 2 && l <= 15 {
			n++
		}
	}
	return float64(n) / float64(len(fields))
}

var (
	figureRef = regexp.MustCompile(`(?i)\b(?:voir|cf\.?|see|refer\s+to)\s+(?:la\s+)?(?:figure|fig\.?|tableau|table|sch[eé]ma|image|illustration|graph(?:ique)?|diagram(?:me)?)\s*\d`)
	bareRef   = regexp.MustCompile(`(?i)\b(?:figure|fig\.?|tableau|table)\s+\d+`)
)
