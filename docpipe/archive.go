package docpipe

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// maxXMLBytes caps the decompressed size of a single archive member.
const maxXMLBytes = 256 << 20

// zipMember is an open archive entry. Close releases both the entry and the
// archive.
type zipMember struct {
	io.Reader
	rc io.ReadCloser
	zr *zip.ReadCloser
}

func (m *zipMember) Close() error {
	m.rc.Close()
	return m.zr.Close()
}

func openZipMember(path, name string) (*zipMember, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		return &zipMember{Reader: io.LimitReader(rc, maxXMLBytes), rc: rc, zr: zr}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("%s not found in archive", name)
}

// depthDecoder wraps xml.Decoder with a nesting limit.
type depthDecoder struct {
	*xml.Decoder
	name  string
	depth int
	max   int
}

func newDepthDecoder(r io.Reader, name string, maxDepth int) *depthDecoder {
	return &depthDecoder{Decoder: xml.NewDecoder(r), name: name, max: maxDepth}
}

// next returns the next token, or io.EOF at the end of the stream.
func (d *depthDecoder) next() (xml.Token, error) {
	tok, err := d.Token()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("parse %s: %w", d.name, err)
	}
	switch tok.(type) {
	case xml.StartElement:
		d.depth++
		if d.depth > d.max {
			return nil, fmt.Errorf("%s: nesting depth exceeds %d", d.name, d.max)
		}
	case xml.EndElement:
		d.depth--
	}
	return tok, nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// tableBuilder collects rows of the outermost table; nested tables are
// flattened into the enclosing cell.
type tableBuilder struct {
	depth int
	rows  [][]string
	row   []string
	cell  []string
}

func (t *tableBuilder) open() {
	t.depth++
	if t.depth == 1 {
		t.rows = nil
	}
}

func (t *tableBuilder) inTable() bool { return t.depth > 0 }

func (t *tableBuilder) startRow() {
	if t.depth == 1 {
		t.row = nil
	}
}

func (t *tableBuilder) startCell() {
	if t.depth == 1 {
		t.cell = t.cell[:0]
	}
}

func (t *tableBuilder) text(s string) { t.cell = append(t.cell, s) }

func (t *tableBuilder) endCell() {
	if t.depth == 1 {
		t.row = append(t.row, joinNonEmpty(t.cell, " "))
	}
}

func (t *tableBuilder) endRow() {
	if t.depth == 1 && len(t.row) > 0 {
		t.rows = append(t.rows, t.row)
	}
}

// close returns the finished table section when the outermost table ends.
func (t *tableBuilder) close() (Section, bool) {
	t.depth--
	if t.depth != 0 || len(t.rows) == 0 {
		return Section{}, false
	}
	rows := t.rows
	t.rows = nil
	return Section{Type: SectionTable, Rows: rows, Text: flattenRows(rows)}, true
}

// appendBlock adds a body block, merging consecutive list items.
func appendBlock(sections []Section, typ, text string) []Section {
	if typ == SectionList && len(sections) > 0 && sections[len(sections)-1].Type == SectionList {
		sections[len(sections)-1].Text += "\n" + text
		return sections
	}
	return append(sections, Section{Type: typ, Text: text})
}

func joinNonEmpty(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
