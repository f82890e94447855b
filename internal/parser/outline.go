package parser

import (
	"strings"

	"github.com/dgallion1/casefinder/internal/doctree"
)

// outline builds a section hierarchy from a stream of headings and body
// paragraphs. Headings nest under the nearest shallower heading.
type outline struct {
	root  *doctree.DocNode
	stack []outlineEntry
	body  strings.Builder
}

type outlineEntry struct {
	node  *doctree.DocNode
	level int
}

func newOutline() *outline {
	root := &doctree.DocNode{}
	return &outline{
		root:  root,
		stack: []outlineEntry{{node: root, level: 0}},
	}
}

// heading opens a new section at level (1 = top).
func (o *outline) heading(level int, title string) {
	o.flush()
	node := &doctree.DocNode{Title: title}
	for len(o.stack) > 1 && o.stack[len(o.stack)-1].level >= level {
		o.stack = o.stack[:len(o.stack)-1]
	}
	parent := o.stack[len(o.stack)-1].node
	parent.Children = append(parent.Children, node)
	o.stack = append(o.stack, outlineEntry{node: node, level: level})
}

// paragraph appends body text to the current section.
func (o *outline) paragraph(text string) {
	if text == "" {
		return
	}
	if o.body.Len() > 0 {
		o.body.WriteString("\n\n")
	}
	o.body.WriteString(text)
}

func (o *outline) flush() {
	t := strings.TrimSpace(o.body.String())
	o.body.Reset()
	if t == "" {
		return
	}
	top := o.stack[len(o.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// nodes returns the top-level sections. Text before the first heading is
// kept as a leading untitled node.
func (o *outline) nodes() []*doctree.DocNode {
	o.flush()
	var out []*doctree.DocNode
	if o.root.Text != "" {
		out = append(out, &doctree.DocNode{Text: o.root.Text})
	}
	return append(out, o.root.Children...)
}
