package docpipe

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extractImage asks the configured Captioner to describe the image.
func (p *Pipeline) extractImage(ctx context.Context, path string) (*parsed, error) {
	if p.cfg.Captioner == nil {
		return nil, fmt.Errorf("%w: image captioning is not configured", ErrUnsupported)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("not an image: %s", mt.String())
	}

	caption, err := p.cfg.Captioner.Describe(ctx, data, mt.String())
	if err != nil {
		return nil, fmt.Errorf("caption: %w", err)
	}
	caption = strings.TrimSpace(caption)

	res := &parsed{}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		res.sections = append(res.sections, Section{
			Text:     fmt.Sprintf("ImageSize: %dx%d", cfg.Width, cfg.Height),
			Type:     SectionParagraph,
			Metadata: map[string]string{"mime": mt.String()},
		})
	}
	res.sections = append(res.sections,
		Section{Title: "Description", Level: 1, Text: "Description", Type: SectionHeading},
		Section{Text: caption, Type: SectionParagraph},
	)
	return res, nil
}
