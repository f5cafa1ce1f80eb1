package mailmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"
)

const (
	ctPlain = "text/plain"
	ctHTML  = "text/html"
)

// EML renders an RFC 5322 message as Markdown.
//
// The first text/plain part found in a depth-first walk is the body. If
// there is none, the first text/html part is converted instead. A
// single-part message of any other type has an empty body.
func EML(data []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("mailmd: parse message: %w", err)
	}

	h := Headers{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		To:      env.GetHeader("To"),
		CC:      env.GetHeader("Cc"),
		BCC:     env.GetHeader("Bcc"),
		Date:    env.GetHeader("Date"),
	}

	body, err := emlBody(env.Root)
	if err != nil {
		return "", err
	}
	return Format(h, body), nil
}

func emlBody(root *enmime.Part) (string, error) {
	if root == nil {
		return "", nil
	}
	if root.FirstChild == nil {
		switch partType(root) {
		case ctPlain, "":
			return partText(root), nil
		case ctHTML:
			return HTMLToMarkdown(partText(root))
		}
		return "", nil
	}

	plain, html := findBodies(root)
	if plain != nil {
		return partText(plain), nil
	}
	if html != nil {
		return HTMLToMarkdown(partText(html))
	}
	return "", nil
}

// findBodies walks the part tree depth-first and returns the first
// text/plain part, or failing that the first text/html part. A leaf part
// without a Content-Type is text/plain (RFC 2046 section 5.1).
func findBodies(root *enmime.Part) (plain, html *enmime.Part) {
	var walk func(p *enmime.Part) bool
	walk = func(p *enmime.Part) bool {
		for ; p != nil; p = p.NextSibling {
			ct := partType(p)
			if ct == "" && p.FirstChild == nil {
				ct = ctPlain
			}
			switch ct {
			case ctPlain:
				plain = p
				return true
			case ctHTML:
				if html == nil {
					html = p
				}
			}
			if walk(p.FirstChild) {
				return true
			}
		}
		return false
	}
	walk(root)
	return plain, html
}

func partType(p *enmime.Part) string {
	return strings.ToLower(strings.TrimSpace(p.ContentType))
}

// partText returns the part content. enmime has already converted it from
// the declared charset; anything still invalid is dropped.
func partText(p *enmime.Part) string {
	return strings.ToValidUTF8(string(p.Content), "")
}
