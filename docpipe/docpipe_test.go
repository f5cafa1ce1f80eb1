package docpipe

import (
	"archive/zip"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func extract(t *testing.T, pipe *Pipeline, path string) *Document {
	t.Helper()
	doc, err := pipe.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract(%s): %v", filepath.Base(path), err)
	}
	return doc
}

func TestDetect(t *testing.T) {
	pipe := New(Config{})

	tests := []struct {
		path   string
		format Format
	}{
		{"doc.docx", FormatDocx},
		{"doc.odt", FormatODT},
		{"deck.pptx", FormatPPTX},
		{"doc.pdf", FormatPDF},
		{"doc.md", FormatMD},
		{"doc.txt", FormatTXT},
		{"doc.html", FormatHTML},
		{"doc.htm", FormatHTML},
		{"doc.markdown", FormatMD},
		{"doc.XLSX", FormatXLSX},
		{"doc.csv", FormatCSV},
		{"doc.jpeg", FormatImage},
	}

	for _, tt := range tests {
		f, err := pipe.Detect(tt.path)
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.path, err)
			continue
		}
		if f != tt.format {
			t.Errorf("Detect(%q) = %q, want %q", tt.path, f, tt.format)
		}
	}

	if _, err := pipe.Detect("file.xyz"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Detect(file.xyz) error = %v, want ErrUnsupported", err)
	}
}

func TestDetect_SniffsUnknownExtension(t *testing.T) {
	// WHAT: Files saved as input.tmp are classified by content.
	// WHY: Uploads with neither a name nor a known MIME type still convert.
	pipe := New(Config{})

	tests := []struct {
		name    string
		content string
		want    Format
	}{
		{"html", "<!DOCTYPE html><html><head><title>T</title></head><body><p>x</p></body></html>", FormatHTML},
		{"pdf", string(buildRealTextPDF("sniffed")), FormatPDF},
		{"text", "just some words\nand another line\n", FormatTXT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "input.tmp", tt.content)
			got, err := pipe.Detect(path)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("Detect = %q, want %q", got, tt.want)
			}
		})
	}

	path := writeFile(t, "input.tmp", "\x00\x01\x02\xff\xfe\x00\x07")
	if _, err := pipe.Detect(path); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("binary blob: error = %v, want ErrUnsupported", err)
	}
}

func TestExtract_TooLarge(t *testing.T) {
	pipe := New(Config{MaxFileSize: 4})
	path := writeFile(t, "big.txt", "more than four bytes")
	if _, err := pipe.Extract(context.Background(), path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	pipe := New(Config{})
	path := writeFile(t, "a.txt", "hello")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pipe.Extract(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestExtractText(t *testing.T) {
	path := writeFile(t, "test.txt", "Hello  world\r\nsecond line\n\n\n  test  ")

	doc := extract(t, New(Config{}), path)
	if doc.Format != FormatTXT {
		t.Fatalf("expected txt format, got %s", doc.Format)
	}
	if doc.Title != "Hello  world" {
		t.Fatalf("title = %q", doc.Title)
	}
	want := "Hello  world\nsecond line\n\ntest"
	if doc.Markdown != want {
		t.Fatalf("Markdown = %q, want %q", doc.Markdown, want)
	}
}

func TestExtractText_Latin1(t *testing.T) {
	path := writeFile(t, "l1.txt", "caf\xe9")
	doc := extract(t, New(Config{}), path)
	if doc.Markdown != "café" {
		t.Fatalf("Markdown = %q", doc.Markdown)
	}
}

func TestExtractMarkdown(t *testing.T) {
	content := "# My Title\n\nThis is a paragraph.\n\n## Section Two\n\nAnother paragraph here.\n"
	path := writeFile(t, "test.md", content)

	doc := extract(t, New(Config{}), path)
	if doc.Title != "My Title" {
		t.Fatalf("expected title 'My Title', got %q", doc.Title)
	}
	if doc.Format != FormatMD {
		t.Fatalf("expected md format, got %s", doc.Format)
	}

	headings, paragraphs := 0, 0
	for _, s := range doc.Sections {
		switch s.Type {
		case SectionHeading:
			headings++
		case SectionParagraph:
			paragraphs++
		}
	}
	if headings != 2 || paragraphs != 2 {
		t.Fatalf("headings=%d paragraphs=%d, want 2 and 2", headings, paragraphs)
	}
	if doc.Markdown != strings.TrimSpace(content) {
		t.Fatalf("Markdown = %q", doc.Markdown)
	}
}

func TestExtractMarkdown_FencedCodeIsNotAHeading(t *testing.T) {
	content := "```sh\n# not a heading\nls\n```\n\n- item one\n- item two\n"
	path := writeFile(t, "code.md", content)

	doc := extract(t, New(Config{}), path)
	for _, s := range doc.Sections {
		if s.Type == SectionHeading {
			t.Fatalf("unexpected heading %q", s.Text)
		}
	}
	if doc.Markdown != strings.TrimSpace(content) {
		t.Fatalf("Markdown = %q", doc.Markdown)
	}
}

func TestExtractDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.docx")
	writeZip(t, path, map[string]string{"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Test Title</w:t></w:r></w:p>
<w:p><w:r><w:t>This is body text.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Section Two</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">More </w:t></w:r><w:r><w:t>content here.</w:t></w:r></w:p>
</w:body>
</w:document>`})

	doc := extract(t, New(Config{}), path)
	if doc.Title != "Test Title" {
		t.Fatalf("expected title 'Test Title', got %q", doc.Title)
	}
	want := "# Test Title\n\nThis is body text.\n\n## Section Two\n\nMore content here."
	if doc.Markdown != want {
		t.Fatalf("Markdown = %q, want %q", doc.Markdown, want)
	}
}

func TestExtractDocx_ListsAndTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.docx")
	item := func(s string) string {
		return `<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>` + s + `</w:t></w:r></w:p>`
	}
	cell := func(s string) string {
		return `<w:tc><w:tcPr/><w:p><w:r><w:t>` + s + `</w:t></w:r></w:p></w:tc>`
	}
	writeZip(t, path, map[string]string{"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Report</w:t></w:r></w:p>` +
		item("one") + item("two") +
		`<w:tbl><w:tblPr/><w:tr>` + cell("A") + cell("B") + `</w:tr><w:tr>` + cell("1") + cell("2|3") + `</w:tr></w:tbl>` +
		`</w:body></w:document>`})

	doc := extract(t, New(Config{}), path)
	want := "# Report\n\n- one\n- two\n\n| A | B |\n| --- | --- |\n| 1 | 2\\|3 |"
	if doc.Markdown != want {
		t.Fatalf("Markdown = %q, want %q", doc.Markdown, want)
	}
}

func TestExtractDocx_MissingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	writeZip(t, path, map[string]string{"[Content_Types].xml": "<Types/>"})
	if _, err := New(Config{}).Extract(context.Background(), path); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing member error, got %v", err)
	}
}

const odtHeader = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0">
<office:body>
<office:text>
`

const odtFooter = `
</office:text>
</office:body>
</office:document-content>`

func TestExtractODT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.odt")
	writeZip(t, path, map[string]string{"content.xml": odtHeader + `<text:h text:outline-level="1">ODT Title</text:h>
<text:p>First<text:s/>paragraph.</text:p>
<text:h text:outline-level="2">Sub Heading</text:h>
<text:p>Second <text:span>paragraph</text:span>.</text:p>` + odtFooter})

	doc := extract(t, New(Config{}), path)
	if doc.Title != "ODT Title" {
		t.Fatalf("expected title 'ODT Title', got %q", doc.Title)
	}
	want := "# ODT Title\n\nFirst paragraph.\n\n## Sub Heading\n\nSecond paragraph."
	if doc.Markdown != want {
		t.Fatalf("Markdown = %q, want %q", doc.Markdown, want)
	}
}

func TestExtractODT_ListsAndTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.odt")
	writeZip(t, path, map[string]string{"content.xml": odtHeader +
		`<text:h text:outline-level="1">Plan</text:h>` +
		`<text:list><text:list-item><text:p>alpha</text:p></text:list-item><text:list-item><text:p>beta</text:p></text:list-item></text:list>` +
		`<table:table><table:table-row><table:table-cell><text:p>K</text:p></table:table-cell><table:table-cell><text:p>V</text:p></table:table-cell></table:table-row>` +
		`<table:table-row><table:table-cell><text:p>x</text:p></table:table-cell><table:table-cell><text:p>y</text:p></table:table-cell></table:table-row></table:table>` +
		odtFooter})

	doc := extract(t, New(Config{}), path)
	want := "# Plan\n\n- alpha\n- beta\n\n| K | V |\n| --- | --- |\n| x | y |"
	if doc.Markdown != want {
		t.Fatalf("Markdown = %q, want %q", doc.Markdown, want)
	}
}

const (
	pptxHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>`
	pptxFooter = `</p:spTree></p:cSld></p:sld>`
)

func pptxShape(ph, body string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="2" name="s"/><p:cNvSpPr/><p:nvPr>` + ph +
		`</p:nvPr></p:nvSpPr><p:txBody><a:bodyPr/>` + body + `</p:txBody></p:sp>`
}

func pptxPara(text string) string {
	return `<a:p><a:r><a:t>` + text + `</a:t></a:r></a:p>`
}

func TestExtractPPTX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	writeZip(t, path, map[string]string{
		"ppt/slides/slide1.xml": pptxHeader +
			pptxShape(`<p:ph type="title"/>`, pptxPara("Roadmap")) +
			pptxShape(`<p:ph idx="1"/>`, pptxPara("Ship v2")+pptxPara("Hire")) +
			pptxFooter,
		"ppt/slides/slide2.xml": pptxHeader +
			pptxShape("", pptxPara("Closing note")) +
			`<p:graphicFrame><a:graphic><a:graphicData><a:tbl>` +
			`<a:tr><a:tc><a:txBody>` + pptxPara("Q") + `</a:txBody></a:tc><a:tc><a:txBody>` + pptxPara("Revenue") + `</a:txBody></a:tc></a:tr>` +
			`<a:tr><a:tc><a:txBody>` + pptxPara("Q1") + `</a:txBody></a:tc><a:tc><a:txBody>` + pptxPara("10") + `</a:txBody></a:tc></a:tr>` +
			`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>` +
			pptxFooter,
		"ppt/slides/slide10.xml":            pptxHeader + pptxShape("", pptxPara("Appendix")) + pptxFooter,
		"ppt/slides/_rels/slide1.xml.rels":  `<Relationships/>`,
		"ppt/notesSlides/notesSlide1.xml":   pptxHeader + pptxShape("", pptxPara("speaker notes")) + pptxFooter,
		"ppt/slideLayouts/slideLayout1.xml": pptxHeader + pptxShape(`<p:ph type="title"/>`, pptxPara("Layout")) + pptxFooter,
	})

	doc := extract(t, New(Config{}), path)
	if doc.Format != FormatPPTX {
		t.Fatalf("Format = %q, want pptx", doc.Format)
	}
	if doc.Title != "Roadmap" {
		t.Fatalf("expected title 'Roadmap', got %q", doc.Title)
	}
	// slide10 sorts after slide2 and is numbered by position.
	want := "## Slide 1: Roadmap\n\n- Ship v2\n- Hire\n\n## Slide 2\n\nClosing note\n\n| Q | Revenue |\n| --- | --- |\n| Q1 | 10 |\n\n## Slide 3\n\nAppendix"
	if doc.Markdown != want {
		t.Fatalf("Markdown = %q, want %q", doc.Markdown, want)
	}
}

func TestExtractPPTX_NoSlides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pptx")
	writeZip(t, path, map[string]string{"ppt/presentation.xml": "<p:presentation/>"})

	if _, err := New(Config{}).Extract(context.Background(), path); err == nil || !strings.Contains(err.Error(), "no slides") {
		t.Fatalf("error = %v, want no slides", err)
	}
}

func TestExtractHTML(t *testing.T) {
	path := writeFile(t, "test.html", `<!DOCTYPE html>
<html><head><title>HTML Test</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Main Heading</h1>
<p>This is a substantial paragraph of text that should be extracted
because it is part of the document body.</p>
<table><tr><th>k</th><th>v</th></tr><tr><td>a</td><td>1</td></tr></table>
</article>
</body></html>`)

	doc := extract(t, New(Config{}), path)
	if doc.Title != "HTML Test" {
		t.Fatalf("expected title 'HTML Test', got %q", doc.Title)
	}
	for _, want := range []string{"# Main Heading", "substantial paragraph", "| k | v |"} {
		if !strings.Contains(doc.Markdown, want) {
			t.Errorf("Markdown missing %q:\n%s", want, doc.Markdown)
		}
	}
	if strings.Contains(doc.Markdown, "Home") || strings.Contains(doc.Markdown, "HTML Test") {
		t.Errorf("navigation or head leaked into Markdown:\n%s", doc.Markdown)
	}
}

func TestExtractHTML_TitleFromH1(t *testing.T) {
	path := writeFile(t, "t.html", `<html><body><h1>Only <em>Heading</em></h1><p>x</p></body></html>`)
	doc := extract(t, New(Config{}), path)
	if doc.Title != "Only Heading" {
		t.Fatalf("title = %q", doc.Title)
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	if len(formats) != 10 {
		t.Fatalf("expected 10 formats, got %d: %v", len(formats), formats)
	}
}

func TestConvert(t *testing.T) {
	path := writeFile(t, "c.md", "# Heading\n\nbody\n")
	title, md, err := New(Config{}).Convert(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if title != "Heading" || md != "# Heading\n\nbody" {
		t.Fatalf("Convert = %q, %q", title, md)
	}
}

// --- HTML hidden text filtering tests ---

func TestHTML_HiddenText(t *testing.T) {
	// WHAT: Text hidden by CSS or attributes is excluded.
	// WHY: Hidden text injection vector (SEO spam, prompt injection).
	tests := []struct {
		name   string
		hidden string
	}{
		{"display none", `<div style="display:none">secret hidden text</div>`},
		{"visibility hidden", `<span style="visibility:hidden">secret hidden text</span>`},
		{"font size zero", `<span style="font-size:0px">secret hidden text</span>`},
		{"opacity zero", `<span style="opacity:0">secret hidden text</span>`},
		{"offscreen", `<div style="position:absolute; left:-10000px">secret hidden text</div>`},
		{"hidden attribute", `<p hidden>secret hidden text</p>`},
		{"aria hidden", `<p aria-hidden="true">secret hidden text</p>`},
		{"script", `<script>var s = "secret hidden text";</script>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "hidden.html", `<!DOCTYPE html><html><body><p>Visible text here</p>`+tt.hidden+`</body></html>`)
			doc := extract(t, New(Config{}), path)
			if strings.Contains(doc.Markdown, "secret hidden text") {
				t.Errorf("hidden text leaked: %q", doc.Markdown)
			}
			if !strings.Contains(doc.Markdown, "Visible text") {
				t.Errorf("visible text missing: %q", doc.Markdown)
			}
		})
	}
}

func TestHTML_VisibleTextKept(t *testing.T) {
	// WHAT: Visible text is preserved after hidden filtering.
	// WHY: The filter must not over-strip.
	path := writeFile(t, "keep.html", `<!DOCTYPE html><html><body>
<h1>Title</h1>
<p style="color:red">Styled but visible</p>
<p style="opacity:0.5">Half transparent</p>
<p>Normal paragraph</p>
</body></html>`)

	doc := extract(t, New(Config{}), path)
	for _, want := range []string{"Styled but visible", "Half transparent", "Normal paragraph"} {
		if !strings.Contains(doc.Markdown, want) {
			t.Errorf("%q should be kept: %q", want, doc.Markdown)
		}
	}
}

// --- XML bomb tests ---

func TestDOCX_XMLBomb(t *testing.T) {
	// WHAT: DOCX with deeply nested XML returns depth error.
	// WHY: XML bomb defense.
	path := filepath.Join(t.TempDir(), "bomb.docx")
	var xmlB strings.Builder
	xmlB.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	xmlB.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	xmlB.WriteString(strings.Repeat("<w:p>", 300))
	xmlB.WriteString("<w:r><w:t>deep</w:t></w:r>")
	xmlB.WriteString(strings.Repeat("</w:p>", 300))
	xmlB.WriteString("</w:body></w:document>")
	writeZip(t, path, map[string]string{"word/document.xml": xmlB.String()})

	_, err := extractDocx(path, 256)
	if err == nil {
		t.Fatal("expected error for deeply nested XML")
	}
	if !strings.Contains(err.Error(), "nesting depth") {
		t.Errorf("expected 'nesting depth' error, got: %v", err)
	}
}

func TestODT_XMLBomb(t *testing.T) {
	// WHAT: ODT with deeply nested XML returns depth error.
	// WHY: XML bomb defense for ODT format.
	path := filepath.Join(t.TempDir(), "bomb.odt")
	writeZip(t, path, map[string]string{"content.xml": odtHeader +
		strings.Repeat("<text:p>", 300) + "deep text" + strings.Repeat("</text:p>", 300) +
		odtFooter})

	_, err := extractODT(path, 256)
	if err == nil {
		t.Fatal("expected error for deeply nested XML")
	}
	if !strings.Contains(err.Error(), "nesting depth") {
		t.Errorf("expected 'nesting depth' error, got: %v", err)
	}
}

// --- spreadsheets ---

func TestExtractXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.xlsx")
	f := excelize.NewFile()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Name", "Qty"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"apple", 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: "Stock"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	doc := extract(t, New(Config{}), path)
	if doc.Title != "Stock" {
		t.Fatalf("title = %q", doc.Title)
	}
	want := "## Sheet1\n\n| Name | Qty |\n| --- | --- |\n| apple | 3 |"
	if doc.Markdown != want {
		t.Fatalf("Markdown = %q, want %q", doc.Markdown, want)
	}
}

func TestExtractCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"comma", "a,b\n1,2\n", "| a | b |\n| --- | --- |\n| 1 | 2 |"},
		{"semicolon", "a;b;c\n1;2\n", "| a | b | c |\n| --- | --- | --- |\n| 1 | 2 |  |"},
		{"quoted", "name,note\nx,\"hello, world\"\n", "| name | note |\n| --- | --- |\n| x | hello, world |"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := extract(t, New(Config{}), writeFile(t, "d.csv", tt.content))
			if doc.Markdown != tt.want {
				t.Fatalf("Markdown = %q, want %q", doc.Markdown, tt.want)
			}
		})
	}
}

// --- images ---

type stubCaptioner struct {
	mime string
	err  error
}

func (s *stubCaptioner) Describe(_ context.Context, _ []byte, mimeType string) (string, error) {
	s.mime = mimeType
	return "  A red square.\n", s.err
}

func writePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	for x := 0; x < 2; x++ {
		for y := 0; y < 3; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "input.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func TestExtractImage(t *testing.T) {
	c := &stubCaptioner{}
	doc := extract(t, New(Config{Captioner: c}), writePNG(t))
	if c.mime != "image/png" {
		t.Fatalf("captioner got mime %q", c.mime)
	}
	want := "ImageSize: 2x3\n\n# Description\n\nA red square."
	if doc.Markdown != want {
		t.Fatalf("Markdown = %q, want %q", doc.Markdown, want)
	}
}

func TestExtractImage_NoCaptioner(t *testing.T) {
	_, err := New(Config{}).Extract(context.Background(), writePNG(t))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("error = %v, want ErrUnsupported", err)
	}
}

func TestExtractImage_CaptionerError(t *testing.T) {
	boom := errors.New("upstream down")
	_, err := New(Config{Captioner: &stubCaptioner{err: boom}}).Extract(context.Background(), writePNG(t))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped captioner error", err)
	}
}
