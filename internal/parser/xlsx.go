package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/casefinder/internal/doctree"
	"github.com/xuri/excelize/v2"
)

// XLSXParser handles Excel workbooks. Each sheet with content becomes one
// node whose text has one line per non-empty row.
type XLSXParser struct{}

func (p *XLSXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		text := rowsText(rows)
		if text == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title:     sheet,
			Generated: true,
			Text:      text,
			Page:      i + 1,
		})
	}
	return tree, nil
}
