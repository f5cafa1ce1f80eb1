package docpipe

import (
	"os"
	"strings"
	"unicode/utf8"
)

// extractText splits a plain text file into paragraphs on blank lines. Line
// breaks inside a paragraph are kept.
func extractText(path string) (*parsed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res := &parsed{}
	for _, block := range splitBlocks(decodeText(data)) {
		if res.title == "" {
			res.title = firstLine(block)
		}
		res.sections = append(res.sections, Section{Text: block, Type: SectionParagraph})
	}
	return res, nil
}

// extractMarkdown indexes ATX headings and keeps every other block verbatim,
// so lists, code and tables survive the round trip.
func extractMarkdown(path string) (*parsed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	res := &parsed{}
	var block []string
	inFence := false

	flush := func() {
		text := strings.Trim(strings.Join(block, "\n"), "\n")
		if strings.TrimSpace(text) != "" {
			res.sections = append(res.sections, Section{Text: text, Type: SectionParagraph})
		}
		block = block[:0]
	}

	for _, line := range strings.Split(decodeText(data), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			block = append(block, line)
			continue
		}
		if inFence {
			block = append(block, line)
			continue
		}

		if level, text, ok := atxHeading(trimmed); ok {
			flush()
			if res.title == "" {
				res.title = text
			}
			res.sections = append(res.sections, Section{Title: text, Level: level, Text: text, Type: SectionHeading})
			continue
		}

		if trimmed == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()

	if res.title == "" && len(res.sections) > 0 {
		res.title = firstLine(res.sections[0].Text)
	}
	return res, nil
}

// atxHeading parses "## text ##" style headings.
func atxHeading(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, "", false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	text := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
	if text == "" {
		return 0, "", false
	}
	return level, text, true
}

// decodeText returns data as UTF-8 with normalised line endings and no
// trailing spaces. Invalid UTF-8 is read as Latin-1.
func decodeText(data []byte) string {
	var s string
	if utf8.Valid(data) {
		s = strings.TrimPrefix(string(data), "\ufeff")
	} else {
		runes := make([]rune, len(data))
		for i, b := range data {
			runes[i] = rune(b)
		}
		s = string(runes)
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

func splitBlocks(text string) []string {
	var blocks []string
	for _, b := range strings.Split(text, "\n\n") {
		if b = strings.Trim(b, "\n"); strings.TrimSpace(b) != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = strings.ToValidUTF8(text[:200], "")
	}
	return text
}
