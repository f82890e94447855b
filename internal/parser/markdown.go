package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/casefinder/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown case write-ups using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	out := newOutline()
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			out.heading(h.Level, markdownText(h, src))
			continue
		}
		out.paragraph(markdownText(n, src))
	}

	return &doctree.DocTree{
		Title:    baseTitle(filename),
		Children: out.nodes(),
	}, nil
}

// markdownText returns the text of a block. Raw blocks (code) use their
// source lines; everything else is rebuilt from inline children, since
// goldmark keeps a paragraph's lines after inline parsing.
func markdownText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	collectMarkdown(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func collectMarkdown(buf *bytes.Buffer, n ast.Node, src []byte) {
	if n.IsRaw() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			buf.Write(c.Value(src))
			if c.HardLineBreak() || c.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(c.Value)
		default:
			if c.Type() == ast.TypeBlock && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			collectMarkdown(buf, c, src)
		}
	}
}
