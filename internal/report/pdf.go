package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 14.0 // mm
	pdfBodyIndent = 3.5
	utf8Family    = "casefinder"
	coreFamily    = "Helvetica"
)

// PDFOptions configures PDF rendering.
type PDFOptions struct {
	// FontPath is a TrueType font with Japanese glyphs. Without one the
	// report falls back to a Latin core font and English headings, and
	// characters outside cp1252 cannot be shown.
	FontPath string
}

// PDF writes an A4 summary report to w.
func PDF(w io.Writer, in Input, opts PDFOptions) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	if !in.Generated.IsZero() {
		pdf.SetCreationDate(in.Generated)
	}

	l := japaneseLabels
	family, boldStyle := utf8Family, ""
	tr := func(s string) string { return s }
	if opts.FontPath != "" {
		font, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return fmt.Errorf("read report font: %w", err)
		}
		pdf.AddUTF8FontFromBytes(utf8Family, "", font)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load report font: %w", err)
		}
	} else {
		l = englishLabels
		family, boldStyle = coreFamily, "B"
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.SetTitle(in.title(l), true)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pdfMargin

	// Title and optional file subtitle, centered.
	pdf.SetFont(family, boldStyle, 16)
	pdf.MultiCell(contentW, 8, tr(in.title(l)), "", "C", false)
	pdf.Ln(6)
	if sub := in.subtitle(l); sub != "" {
		pdf.SetFont(family, "", 10)
		pdf.MultiCell(contentW, 6, tr(sub), "", "C", false)
		pdf.Ln(4)
	}

	for _, sec := range in.sections(l) {
		pdf.SetTextColor(0x2C, 0x3E, 0x50)
		pdf.SetFont(family, boldStyle, 12)
		pdf.Ln(3)
		pdf.CellFormat(contentW, 7, tr(sec.heading), "", 1, "L", false, 0, "")

		pdf.SetFont(family, "", 10)
		for _, line := range strings.Split(sec.body, "\n") {
			pdf.SetX(pdfMargin + pdfBodyIndent)
			pdf.MultiCell(contentW-pdfBodyIndent, 5.5, tr(line), "", "L", false)
		}
		pdf.Ln(4)
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(family, "", 8)
	pdf.Ln(6)
	pdf.CellFormat(contentW, 5, tr(in.footer(l)), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
