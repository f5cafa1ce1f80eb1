// Package mailmd renders mail messages as Markdown.
//
// Two container formats are handled: Outlook .msg files (OLE compound
// files carrying MAPI property streams) and RFC 5322 .eml messages. Both
// produce the same shape:
//
//	# Subject
//	**From:** ...
//	**To:** ...
//
//	body
//
// Attachments are not listed.
package mailmd

import "strings"

// NoSubject is the heading used when a message has no subject.
const NoSubject = "(No Subject)"

// Headers is the ordered header set rendered above the body. Empty fields
// are omitted from the output.
type Headers struct {
	Subject string
	From    string
	To      string
	CC      string
	BCC     string
	Date    string
}

// Format renders headers and body. The body is trimmed of surrounding
// whitespace; header values are trimmed too.
func Format(h Headers, body string) string {
	subject := strings.TrimSpace(h.Subject)
	if subject == "" {
		subject = NoSubject
	}
	lines := []string{"# " + subject}
	for _, f := range []struct{ label, value string }{
		{"From", h.From},
		{"To", h.To},
		{"CC", h.CC},
		{"BCC", h.BCC},
		{"Date", h.Date},
	} {
		if v := strings.TrimSpace(f.value); v != "" {
			lines = append(lines, "**"+f.label+":** "+v)
		}
	}
	lines = append(lines, "", strings.TrimSpace(body))
	return strings.Join(lines, "\n")
}
