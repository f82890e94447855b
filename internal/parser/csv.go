package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/casefinder/internal/doctree"
)

const csvBatchRows = 20

// CSVParser handles CSV exports. Each row becomes one line of
// space-joined non-empty cells, grouped into batches of rows.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	for start := 0; start < len(records); start += csvBatchRows {
		end := min(start+csvBatchRows, len(records))
		text := rowsText(records[start:end])
		if text == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title:     fmt.Sprintf("Rows %d-%d", start+1, end),
			Generated: true,
			Text:      text,
		})
	}
	return tree, nil
}

// rowsText joins each row's non-empty cells with a space and drops
// rows with no content.
func rowsText(rows [][]string) string {
	var lines []string
	for _, row := range rows {
		var cells []string
		for _, cell := range row {
			if c := strings.TrimSpace(cell); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	}
	return strings.Join(lines, "\n")
}
