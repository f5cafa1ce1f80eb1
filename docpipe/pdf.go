package docpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var errNoPDFText = errors.New("no text content found in PDF")

// extractPDF reads page content streams through pdfcpu. Each page with text
// becomes one section; quality metrics flag scans that need OCR.
func extractPDF(ctx context.Context, path string) (*parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pdf, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	res := &parsed{}
	var all strings.Builder
	totalChars := 0

	for pageNr := 1; pageNr <= pdf.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := pageText(pdf, pageNr)
		if text == "" {
			continue
		}
		totalChars += len([]rune(text))
		if res.title == "" {
			res.title = firstLine(text)
		}
		res.sections = append(res.sections, Section{
			Text:     text,
			Type:     SectionPage,
			Metadata: map[string]string{"page": strconv.Itoa(pageNr)},
		})
		if all.Len() > 0 {
			all.WriteByte('\n')
		}
		all.WriteString(text)
	}

	if len(res.sections) == 0 {
		return nil, errNoPDFText
	}

	q := &ExtractionQuality{PageCount: pdf.PageCount, HasImageStreams: hasImageStreams(pdf)}
	q.scoreText(all.String(), totalChars)
	res.quality = q
	return res, nil
}

func pageText(pdf *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdf, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// hasImageStreams reports whether the PDF carries image XObjects.
func hasImageStreams(pdf *model.Context) bool {
	if pdf.Optimize != nil {
		for pageNr := 1; pageNr <= pdf.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(pdf, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range pdf.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromContentStream interprets the text operators of a content stream,
// one operator per line.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		fields := bytes.Fields(line)
		switch op := string(fields[len(fields)-1]); {
		case op == "Tj" || op == "TJ":
			writePDFStrings(&sb, line, false)
		case op == "'" || op == `"`:
			writePDFStrings(&sb, line, true)
		case op == "Td" || op == "TD":
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case op == "T*":
			sb.WriteByte('\n')
		}
	}
	return cleanPDFText(sb.String())
}

func writePDFStrings(sb *strings.Builder, line []byte, newline bool) {
	for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
		if text := decodePDFString(m[1]); text != "" {
			if newline {
				sb.WriteByte('\n')
			}
			sb.WriteString(text)
		}
	}
}

// decodePDFString handles PDF literal string escapes.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := 0
			for n := 0; n < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7'; n++ {
				val = val*8 + int(raw[i]-'0')
				i++
			}
			i--
			sb.WriteByte(byte(val))
		default:
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// cleanPDFText collapses whitespace and drops unprintable runes.
func cleanPDFText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
