package summary

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Role is one of the three sections a summary is made of.
type Role int

const (
	Problem Role = iota
	Solution
	Outcome
)

// Roles lists every role in priority order.
var Roles = []Role{Problem, Solution, Outcome}

func (r Role) String() string {
	switch r {
	case Problem:
		return "problem"
	case Solution:
		return "solution"
	case Outcome:
		return "outcome"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Lexicon holds the keyword and exclusion lists the extractor matches against.
// All entries are lower-case and matched by substring containment.
type Lexicon struct {
	Keywords map[Role][]string

	// Boilerplate lines (slide titles, table of contents, ...) never start a section.
	Boilerplate []string

	// Confidential markers suppress Outcome content only.
	Confidential []string

	// Terminators let a short line count as content when it ends with one of them.
	Terminators []string
}

// DefaultLexicon returns the built-in Japanese/English lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Keywords: map[Role][]string{
			Problem: {
				"課題", "問題", "現状", "背景",
				"challenge", "problem", "issue", "background", "current situation",
			},
			Solution: {
				"提案", "解決策", "解決方法", "アプローチ",
				"solution", "proposal", "approach", "recommendation", "methodology",
			},
			Outcome: {
				"効果", "成果", "実績", "効果測定", "導入効果", "導入成果",
				"benefit", "result", "outcome", "achievement", "improvement", "impact", "kpi",
			},
		},
		Boilerplate: []string{
			"表紙", "目次",
			"table of contents", "contents", "cover page", "agenda",
			"summary", "conclusion", "appendix", "reference",
		},
		Confidential: []string{
			"confidential", "proprietary", "社外秘", "機密",
			"template", "サンプル", "sample",
		},
		Terminators: []string{"。", "、", ":"},
	}
}

// Matches reports whether the lower-cased line contains any of words.
func Matches(line string, words []string) bool {
	lower := strings.ToLower(line)
	for _, w := range words {
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// MatchesRole reports whether line contains a keyword of role.
func (l Lexicon) MatchesRole(line string, role Role) bool {
	return Matches(line, l.Keywords[role])
}

func (l Lexicon) IsBoilerplate(line string) bool {
	return Matches(line, l.Boilerplate)
}

func (l Lexicon) IsConfidential(line string) bool {
	return Matches(line, l.Confidential)
}

// SkipLine reports whether a line is too short or too generic to start a
// section in the primary pass. A line under 10 characters only survives when
// it ends with a terminator.
func (l Lexicon) SkipLine(line string) bool {
	if l.IsBoilerplate(line) {
		return true
	}
	n := utf8.RuneCountInString(line)
	if n < 3 {
		return true
	}
	return n < 10 && !l.endsWithTerminator(line)
}

func (l Lexicon) endsWithTerminator(line string) bool {
	for _, t := range l.Terminators {
		if t != "" && strings.HasSuffix(line, t) {
			return true
		}
	}
	return false
}

// lexiconFile is the YAML layout accepted by LoadLexicon.
type lexiconFile struct {
	Problem      []string `yaml:"problem"`
	Solution     []string `yaml:"solution"`
	Outcome      []string `yaml:"outcome"`
	Boilerplate  []string `yaml:"boilerplate"`
	Confidential []string `yaml:"confidential"`
	Terminators  []string `yaml:"terminators"`
}

// LoadLexicon reads YAML lexicon overrides. Lists missing from the document
// keep their default values.
func LoadLexicon(r io.Reader) (Lexicon, error) {
	var f lexiconFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return Lexicon{}, fmt.Errorf("decode lexicon: %w", err)
	}

	lex := DefaultLexicon()
	if f.Problem != nil {
		lex.Keywords[Problem] = lowerAll(f.Problem)
	}
	if f.Solution != nil {
		lex.Keywords[Solution] = lowerAll(f.Solution)
	}
	if f.Outcome != nil {
		lex.Keywords[Outcome] = lowerAll(f.Outcome)
	}
	if f.Boilerplate != nil {
		lex.Boilerplate = lowerAll(f.Boilerplate)
	}
	if f.Confidential != nil {
		lex.Confidential = lowerAll(f.Confidential)
	}
	if f.Terminators != nil {
		lex.Terminators = f.Terminators
	}

	for _, role := range Roles {
		if len(lex.Keywords[role]) == 0 {
			return Lexicon{}, fmt.Errorf("lexicon: %s keyword list is empty", role)
		}
	}
	return lex, nil
}

// LoadLexiconFile reads a YAML lexicon from path.
func LoadLexiconFile(path string) (Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	return LoadLexicon(f)
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
