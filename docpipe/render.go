package docpipe

import (
	"strings"
)

// renderMarkdown joins sections into a Markdown document, one block per
// section separated by a blank line.
func renderMarkdown(sections []Section) string {
	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		var b string
		switch s.Type {
		case SectionHeading:
			level := min(max(s.Level, 1), 6)
			b = strings.Repeat("#", level) + " " + oneLine(s.Text)
		case SectionList:
			b = renderList(s.Text)
		case SectionTable:
			if len(s.Rows) > 0 {
				b = markdownTable(s.Rows)
			} else {
				b = s.Text
			}
		default:
			b = s.Text
		}
		if b = strings.TrimSpace(b); b != "" {
			blocks = append(blocks, b)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// renderList turns one item per line into a bullet list.
func renderList(text string) string {
	var sb strings.Builder
	for _, item := range strings.Split(text, "\n") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}

// markdownTable renders rows as a pipe table. The first row is the header;
// short rows are padded to the widest one.
func markdownTable(rows [][]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow := func(r []string) {
		sb.WriteByte('|')
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(r) {
				cell = tableCell(r[i])
			}
			sb.WriteByte(' ')
			sb.WriteString(cell)
			sb.WriteString(" |")
		}
		sb.WriteByte('\n')
	}

	writeRow(rows[0])
	sb.WriteByte('|')
	for i := 0; i < width; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteByte('\n')
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func tableCell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// flattenRows gives tables a plain-text form for Section.Text.
func flattenRows(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, strings.Join(r, "\t"))
	}
	return strings.Join(lines, "\n")
}
