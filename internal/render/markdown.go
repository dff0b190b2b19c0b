package render

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown converts job descriptions to HTML. Raw HTML embedded in the source
// is omitted and dangerous link schemes are dropped by goldmark's default
// renderer, so the output is inserted without further escaping.
type Markdown struct {
	md goldmark.Markdown
}

func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render converts src, falling back to escaped text if conversion fails.
func (m *Markdown) Render(src string) template.HTML {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return TextBlock(src)
	}
	return template.HTML(buf.String())
}
