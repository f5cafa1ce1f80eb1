package docpipe

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSX renders every non-empty worksheet as a heading and a table.
func extractXLSX(ctx context.Context, path string) (*parsed, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	res := &parsed{}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		res.title = strings.TrimSpace(props.Title)
	}

	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		rows = trimRows(rows)
		if len(rows) == 0 {
			continue
		}
		res.sections = append(res.sections,
			Section{Title: sheet, Level: 2, Text: sheet, Type: SectionHeading},
			Section{Type: SectionTable, Rows: rows, Text: flattenRows(rows)},
		)
	}
	return res, nil
}

// extractCSV renders a delimited file as one table. The delimiter is guessed
// from the first line.
func extractCSV(path string) (*parsed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := decodeText(data)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = guessDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, rec)
	}
	rows = trimRows(rows)

	res := &parsed{}
	if len(rows) > 0 {
		res.sections = []Section{{Type: SectionTable, Rows: rows, Text: flattenRows(rows)}}
	}
	return res, nil
}

func guessDelimiter(text string) rune {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, bestN := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t', '|'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// trimRows drops rows whose cells are all blank.
func trimRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, r := range rows {
		blank := true
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, r)
		}
	}
	return out
}
