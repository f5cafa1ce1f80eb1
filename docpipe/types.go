package docpipe

// Format identifies a document type.
type Format string

const (
	FormatDocx  Format = "docx"
	FormatODT   Format = "odt"
	FormatPPTX  Format = "pptx"
	FormatPDF   Format = "pdf"
	FormatMD    Format = "md"
	FormatTXT   Format = "txt"
	FormatHTML  Format = "html"
	FormatXLSX  Format = "xlsx"
	FormatCSV   Format = "csv"
	FormatImage Format = "image"
)

// Section types produced by the parsers.
const (
	SectionHeading   = "heading"
	SectionParagraph = "paragraph"
	SectionList      = "list"
	SectionTable     = "table"
	SectionPage      = "page"
	SectionMarkdown  = "markdown" // Text is already Markdown and is emitted as is
)

// Section is a structural unit of a document.
type Section struct {
	Title    string            `json:"title,omitempty"`
	Level    int               `json:"level"` // heading level 1-6, 0 for body
	Text     string            `json:"text"`
	Type     string            `json:"type"`
	Rows     [][]string        `json:"rows,omitempty"` // table cells, first row is the header
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Document is the result of converting a file.
type Document struct {
	Path     string             `json:"path"`
	Format   Format             `json:"format"`
	Title    string             `json:"title"`
	Sections []Section          `json:"sections"`
	Markdown string             `json:"markdown"`
	Quality  *ExtractionQuality `json:"quality,omitempty"` // PDF only
}

// parsed is what a format parser hands back to the pipeline.
type parsed struct {
	title    string
	sections []Section
	quality  *ExtractionQuality
}
