package summary

import "strings"

// Line is a trimmed, non-empty line of document text. Index is the line's
// 0-based position in the raw text, blank lines included.
type Line struct {
	Index int
	Text  string
}

var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\f", "\n",
	"\v", "\n",
	"\x1c", "\n",
	"\x1d", "\n",
	"\x1e", "\n",
	"\u0085", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
)

// Normalize splits text into trimmed, non-empty lines, preserving order.
func Normalize(text string) []Line {
	if text == "" {
		return nil
	}
	var lines []Line
	for i, raw := range strings.Split(lineBreaks.Replace(text), "\n") {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		lines = append(lines, Line{Index: i, Text: t})
	}
	return lines
}
