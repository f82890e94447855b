package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

const headingColor = "2C3E50"

// DOCX writes the summary report as a Word document. Section headings use
// the Heading1 style so the document outline lists them.
func DOCX(w io.Writer, in Input) error {
	l := japaneseLabels
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().Justification("center").AddText(in.title(l)).Bold().Size("32")
	if sub := in.subtitle(l); sub != "" {
		doc.AddParagraph().Justification("center").AddText(sub).Size("20")
	}

	for _, sec := range in.sections(l) {
		doc.AddParagraph().Style("Heading1").AddText(sec.heading).Bold().Size("24").Color(headingColor)
		for _, line := range strings.Split(sec.body, "\n") {
			doc.AddParagraph().AddText(line).Size("20")
		}
	}

	doc.AddParagraph().Justification("right").AddText(in.footer(l)).Size("16")
	// Section properties must be the last body element.
	doc.WithA4Page()

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("render docx: %w", err)
	}
	return nil
}
