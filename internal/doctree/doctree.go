package doctree

import "strings"

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title     string     // Section heading (empty for leaf text)
	Generated bool       // Title was synthesized by the parser ("Page 3", "Slide 2")
	Text      string     // Text content of this node (may be empty for container nodes)
	Page      int        // Source page, slide or sheet (0 if N/A)
	Children  []*DocNode // Subsections
}

// Flatten returns the document's text in reading order, one block per line
// group. Headings are kept since they often carry section keywords; titles
// the parser made up are not.
func Flatten(tree *DocTree) string {
	if tree == nil {
		return ""
	}
	var sb strings.Builder
	write := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s)
	}
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if !n.Generated {
				write(n.Title)
			}
			write(n.Text)
			walk(n.Children)
		}
	}
	walk(tree.Children)
	return sb.String()
}

// PageCount returns the highest source page number in the tree, or 0 for
// formats without pages.
func PageCount(tree *DocTree) int {
	if tree == nil {
		return 0
	}
	var n int
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, node := range nodes {
			n = max(n, node.Page)
			walk(node.Children)
		}
	}
	walk(tree.Children)
	return n
}
