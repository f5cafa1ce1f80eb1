package docpipe

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// extractODT parses content.xml from an .odt archive.
func extractODT(path string, maxDepth int) (*parsed, error) {
	m, err := openZipMember(path, "content.xml")
	if err != nil {
		return nil, err
	}
	defer m.Close()

	dec := newDepthDecoder(m, "content.xml", maxDepth)
	res := &parsed{}
	var (
		text      strings.Builder
		block     int // open text:p / text:h elements
		heading   int // outline level of the open text:h, 0 for a paragraph
		listDepth int
		table     tableBuilder
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
			case "h":
				if block == 0 {
					text.Reset()
					heading = 1
					if n, err := strconv.Atoi(attrValue(t, "outline-level")); err == nil && n > 0 {
						heading = n
					}
				}
				block++
			case "p":
				if block == 0 {
					text.Reset()
					heading = 0
				}
				block++
			case "s":
				text.WriteByte(' ')
			case "tab":
				text.WriteByte(' ')
			case "line-break":
				text.WriteByte('\n')
			case "list":
				listDepth++
			case "table":
				table.open()
			case "table-row":
				table.startRow()
			case "table-cell":
				table.startCell()
			}

		case xml.CharData:
			if block > 0 {
				text.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "h", "p":
				if block == 0 {
					continue
				}
				block--
				if block > 0 {
					continue
				}
				s := strings.TrimSpace(text.String())
				text.Reset()
				if s == "" {
					continue
				}
				switch {
				case table.inTable():
					table.text(oneLine(s))
				case heading > 0:
					s = oneLine(s)
					if res.title == "" {
						res.title = s
					}
					res.sections = append(res.sections, Section{Title: s, Level: min(heading, 6), Text: s, Type: SectionHeading})
				case listDepth > 0:
					res.sections = appendBlock(res.sections, SectionList, oneLine(s))
				default:
					res.sections = appendBlock(res.sections, SectionParagraph, s)
				}
			case "list":
				listDepth--
			case "table-cell":
				table.endCell()
			case "table-row":
				table.endRow()
			case "table":
				if s, ok := table.close(); ok {
					res.sections = append(res.sections, s)
				}
			}
		}
	}

	return res, nil
}
