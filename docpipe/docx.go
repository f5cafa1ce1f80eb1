package docpipe

import (
	"encoding/xml"
	"io"
	"strings"
)

// extractDocx parses word/document.xml from a .docx archive. Paragraph styles
// give headings, numbering properties give list items and w:tbl gives tables.
func extractDocx(path string, maxDepth int) (*parsed, error) {
	m, err := openZipMember(path, "word/document.xml")
	if err != nil {
		return nil, err
	}
	defer m.Close()

	dec := newDepthDecoder(m, "document.xml", maxDepth)
	res := &parsed{}
	var (
		para   strings.Builder
		inText bool
		style  string
		isList bool
		table  tableBuilder
	)

	for {
		tok, err := dec.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
				style, isList = "", false
			case "pStyle":
				style = attrValue(t, "val")
			case "numPr":
				isList = true
			case "t":
				inText = true
			case "tab":
				para.WriteByte(' ')
			case "br", "cr":
				para.WriteByte('\n')
			case "tbl":
				table.open()
			case "tr":
				table.startRow()
			case "tc":
				table.startCell()
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				para.Reset()
				if text == "" {
					continue
				}
				if table.inTable() {
					table.text(oneLine(text))
					continue
				}
				if level := docxHeadingLevel(style); level > 0 {
					text = oneLine(text)
					if res.title == "" {
						res.title = text
					}
					res.sections = append(res.sections, Section{Title: text, Level: level, Text: text, Type: SectionHeading})
					continue
				}
				typ := SectionParagraph
				if isList || docxListStyle(style) {
					typ, text = SectionList, oneLine(text)
				}
				res.sections = appendBlock(res.sections, typ, text)
			case "tc":
				table.endCell()
			case "tr":
				table.endRow()
			case "tbl":
				if s, ok := table.close(); ok {
					res.sections = append(res.sections, s)
				}
			}
		}
	}

	return res, nil
}

// docxHeadingLevel extracts the heading level from a paragraph style name.
// e.g. "Heading1" → 1, "Heading2" → 2, "Title" → 1, etc.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)

	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}

	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := strings.TrimSpace(lower[len(prefix):])
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

func docxListStyle(style string) bool {
	lower := strings.ToLower(style)
	return strings.HasPrefix(lower, "listbullet") || strings.HasPrefix(lower, "listnumber")
}
