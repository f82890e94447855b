// Package summary extracts problem / solution / outcome sections from plain
// document text using keyword lexicons and positional heuristics.
package summary

import (
	"strings"
	"unicode/utf8"
)

const (
	maxSectionLines  = 3   // header + continuations per section
	minContinuation  = 10  // continuation lines must be longer than this
	minRecoveredLine = 20  // recovered problem lines must be longer than this
	maxFallbackRunes = 200 // positional fallback truncation
)

// Result is an extracted summary. Each field is empty or up to three
// newline-joined lines.
type Result struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Outcome  string `json:"outcome"`
}

// Get returns the content for role.
func (r Result) Get(role Role) string {
	switch role {
	case Problem:
		return r.Problem
	case Solution:
		return r.Solution
	case Outcome:
		return r.Outcome
	}
	return ""
}

// Empty reports whether nothing was extracted.
func (r Result) Empty() bool {
	return r.Problem == "" && r.Solution == "" && r.Outcome == ""
}

// draft is the per-role state threaded through the passes. A filled role is
// never overwritten.
type draft [3]string

func (d *draft) filled(r Role) bool { return d[r] != "" }

func (d *draft) fill(r Role, content string) {
	if d[r] == "" {
		d[r] = content
	}
}

func (d *draft) complete() bool {
	for _, r := range Roles {
		if !d.filled(r) {
			return false
		}
	}
	return true
}

func (d *draft) result() Result {
	return Result{Problem: d[Problem], Solution: d[Solution], Outcome: d[Outcome]}
}

// headerRule describes how a header line for a role collects its
// continuation lines.
type headerRule struct {
	role   Role
	window int // lines examined after the header
	// confidential header and continuation lines are rejected
	excludeConfidential bool
}

// Primary pass rules, in priority order. Only Outcome filters confidential
// markers.
var primaryRules = []headerRule{
	{role: Problem, window: 3},
	{role: Solution, window: 3},
	{role: Outcome, window: 4, excludeConfidential: true},
}

// Recovery rules for Solution and Outcome. Problem recovery is positional.
var recoveryRules = []headerRule{
	{role: Solution, window: 2},
	{role: Outcome, window: 3, excludeConfidential: true},
}

// Extractor classifies document lines into summary sections.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	lex Lexicon
}

// New returns an Extractor using lex.
func New(lex Lexicon) *Extractor {
	return &Extractor{lex: lex}
}

var defaultExtractor = New(DefaultLexicon())

// Extract runs the default extractor over text.
func Extract(text string) Result {
	return defaultExtractor.Extract(text)
}

// Extract fills each section from text. It never fails: the result is
// all-empty only when text has no non-blank lines.
func (e *Extractor) Extract(text string) Result {
	lines := Normalize(text)
	if len(lines) == 0 {
		return Result{}
	}

	var d draft
	e.primaryPass(&d, lines)
	if !d.complete() {
		e.recoveryPass(&d, lines)
	}
	fallbackPass(&d, lines)
	return d.result()
}

// header is a line chosen to start a role's section.
type header struct {
	line int
	rule headerRule
}

// primaryPass walks the lines once, letting the first applicable rule claim
// each line as a section header.
func (e *Extractor) primaryPass(d *draft, lines []Line) {
	e.collect(d, lines, e.primaryHeaders(d, lines))
}

// primaryHeaders picks the primary header line of each empty role. Header
// choice does not depend on continuations, so it is settled up front.
func (e *Extractor) primaryHeaders(d *draft, lines []Line) []header {
	var claimed [3]bool
	for _, r := range Roles {
		claimed[r] = d.filled(r)
	}
	var hs []header
	for i, line := range lines {
		if e.lex.SkipLine(line.Text) {
			continue
		}
		for _, rule := range primaryRules {
			if claimed[rule.role] || !e.heads(line.Text, rule) {
				continue
			}
			claimed[rule.role] = true
			hs = append(hs, header{line: i, rule: rule})
			break
		}
	}
	return hs
}

// recoveryPass fills the roles the primary pass missed, each independently.
func (e *Extractor) recoveryPass(d *draft, lines []Line) {
	if !d.filled(Problem) {
		for _, line := range lines {
			if e.recoverableProblem(line.Text) {
				d.fill(Problem, line.Text)
				break
			}
		}
	}

	var hs []header
	for _, rule := range recoveryRules {
		if d.filled(rule.role) {
			continue
		}
		for i, line := range lines {
			if e.heads(line.Text, rule) {
				hs = append(hs, header{line: i, rule: rule})
				break
			}
		}
	}
	e.collect(d, lines, hs)
}

func (e *Extractor) recoverableProblem(text string) bool {
	return utf8.RuneCountInString(text) > minRecoveredLine &&
		!e.lex.IsBoilerplate(text) &&
		!e.lex.MatchesRole(text, Solution) &&
		!e.lex.MatchesRole(text, Outcome)
}

// heads reports whether text qualifies as a header for rule.
func (e *Extractor) heads(text string, rule headerRule) bool {
	if !e.lex.MatchesRole(text, rule.role) {
		return false
	}
	return !rule.excludeConfidential || !e.lex.IsConfidential(text)
}

// collect fills each header's role from the header line and its continuation
// window. A line heading a section in the same pass is never a continuation.
func (e *Extractor) collect(d *draft, lines []Line, hs []header) {
	isHeader := make(map[int]bool, len(hs))
	for _, h := range hs {
		isHeader[h.line] = true
	}

	for _, h := range hs {
		rule := h.rule
		content := []string{lines[h.line].Text}
		end := min(h.line+1+rule.window, len(lines))
		for j := h.line + 1; j < end && len(content) < maxSectionLines; j++ {
			next := lines[j].Text
			if isHeader[j] || utf8.RuneCountInString(next) <= minContinuation {
				continue
			}
			if rule.excludeConfidential && e.lex.IsConfidential(next) {
				continue
			}
			content = append(content, next)
		}
		d.fill(rule.role, strings.Join(content, "\n"))
	}
}

// fallbackPass assigns the first lines positionally to roles that are still
// empty: line 0 to Problem, line 1 to Solution, line 2 to Outcome.
func fallbackPass(d *draft, lines []Line) {
	for _, role := range Roles {
		if int(role) < len(lines) {
			d.fill(role, truncateRunes(lines[role].Text, maxFallbackRunes))
		}
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
