package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/casefinder/internal/doctree"
)

const slidePrefix = "ppt/slides/slide"

// PPTXParser handles PowerPoint decks. Every slide with text becomes one
// node, in slide-number order; paragraphs are one line each.
type PPTXParser struct{}

func (p *PPTXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pptx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}

	slides := make(map[int]*zip.File)
	for _, f := range zr.File {
		if n := slideNumber(f.Name); n > 0 {
			slides[n] = f
		}
	}
	nums := make([]int, 0, len(slides))
	for n := range slides {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	for _, n := range nums {
		text, err := readSlideText(slides[n])
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", n, err)
		}
		if text == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title:     fmt.Sprintf("Slide %d", n),
			Generated: true,
			Text:      text,
			Page:      n,
		})
	}
	return tree, nil
}

// slideNumber parses "ppt/slides/slide12.xml" into 12, or 0 for other parts.
func slideNumber(name string) int {
	if !strings.HasPrefix(name, slidePrefix) || !strings.HasSuffix(name, ".xml") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, slidePrefix), ".xml"))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// slideXML is the subset of PresentationML needed for text: shapes (and
// shapes nested in groups) with text bodies made of paragraphs and runs.
type slideXML struct {
	Tree shapeTree `xml:"cSld>spTree"`
}

type shapeTree struct {
	Shapes []struct {
		TxBody *struct {
			Paras []struct {
				Runs   []textRun `xml:"r"`
				Fields []textRun `xml:"fld"`
			} `xml:"p"`
		} `xml:"txBody"`
	} `xml:"sp"`
	Groups []shapeTree `xml:"grpSp"`
}

type textRun struct {
	Text string `xml:"t"`
}

func readSlideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var slide slideXML
	if err := xml.NewDecoder(rc).Decode(&slide); err != nil {
		return "", fmt.Errorf("decode slide xml: %w", err)
	}
	var lines []string
	collectShapeText(slide.Tree, &lines)
	return strings.Join(lines, "\n"), nil
}

func collectShapeText(tree shapeTree, lines *[]string) {
	for _, sp := range tree.Shapes {
		if sp.TxBody == nil {
			continue
		}
		for _, para := range sp.TxBody.Paras {
			var b strings.Builder
			for _, run := range para.Runs {
				b.WriteString(run.Text)
			}
			for _, fld := range para.Fields {
				b.WriteString(fld.Text)
			}
			if t := strings.TrimSpace(b.String()); t != "" {
				*lines = append(*lines, t)
			}
		}
	}
	for _, g := range tree.Groups {
		collectShapeText(g, lines)
	}
}
