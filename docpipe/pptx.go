package docpipe

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Shape roles on a slide, from the placeholder type.
const (
	rolePlain = iota // free text box, or a placeholder with no special meaning
	roleTitle
	roleBody
)

func placeholderRole(typ string) int {
	switch typ {
	case "title", "ctrTitle":
		return roleTitle
	case "", "body", "obj":
		return roleBody
	}
	return rolePlain
}

// extractPPTX renders each slide of a .pptx archive, in slide-number order,
// as a "## Slide N" heading (with the slide title appended when there is one)
// followed by the slide text. Body placeholders become bullet lists and
// a:tbl graphic frames become tables. Notes, layouts and masters are skipped.
func extractPPTX(path string, maxDepth int) (*parsed, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range zr.File {
		rest, ok := strings.CutPrefix(f.Name, "ppt/slides/slide")
		if !ok {
			continue
		}
		num, ok := strings.CutSuffix(rest, ".xml")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(num); err == nil && n > 0 {
			slides = append(slides, slideFile{n, f})
		}
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("no slides found in archive")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	res := &parsed{}
	for i, s := range slides {
		title, body, err := readSlide(s.file, maxDepth)
		if err != nil {
			return nil, err
		}
		heading := "Slide " + strconv.Itoa(i+1)
		if title != "" {
			heading += ": " + title
			if res.title == "" {
				res.title = title
			}
		}
		res.sections = append(res.sections, Section{
			Title:    heading,
			Level:    2,
			Text:     heading,
			Type:     SectionHeading,
			Metadata: map[string]string{"slide": strconv.Itoa(i + 1)},
		})
		res.sections = append(res.sections, body...)
	}
	return res, nil
}

// readSlide returns the title placeholder text and the remaining blocks of
// one slide part.
func readSlide(f *zip.File, maxDepth int) (string, []Section, error) {
	rc, err := f.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	dec := newDepthDecoder(io.LimitReader(rc, maxXMLBytes), f.Name, maxDepth)
	var (
		sections []Section
		titles   []string
		para     strings.Builder
		inText   bool
		role     = rolePlain
		table    tableBuilder
	)

	for {
		tok, err := dec.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				role = rolePlain
			case "ph":
				role = placeholderRole(attrValue(t, "type"))
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "br":
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
				switch {
				case table.inTable():
					table.text(oneLine(text))
				case role == roleTitle:
					titles = append(titles, oneLine(text))
				case role == roleBody:
					sections = appendBlock(sections, SectionList, oneLine(text))
				default:
					sections = appendBlock(sections, SectionParagraph, text)
				}
			case "sp":
				role = rolePlain
			case "tc":
				table.endCell()
			case "tr":
				table.endRow()
			case "tbl":
				if s, ok := table.close(); ok {
					sections = append(sections, s)
				}
			}
		}
	}
	return strings.Join(titles, " "), sections, nil
}
