package summary

import (
	"strings"
	"testing"
)

func linesOf(texts ...string) []Line {
	return Normalize(strings.Join(texts, "\n"))
}

func TestPrimaryPass_FilledRoleNotOverwritten(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	d.fill(Problem, "kept")

	e.primaryPass(&d, linesOf("Issue: the batch job failed nightly."))
	if d[Problem] != "kept" {
		t.Errorf("expected filled problem to stay, got %q", d[Problem])
	}
}

func TestRecoveryPass_FilledRolesUntouched(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	d.fill(Problem, "p")
	d.fill(Solution, "s")
	d.fill(Outcome, "o")

	e.recoveryPass(&d, linesOf(
		"A long line that qualifies for recovery easily",
		"Solution: replace the queue",
		"Result: fewer incidents overall",
	))
	if d.result() != (Result{Problem: "p", Solution: "s", Outcome: "o"}) {
		t.Errorf("recovery must not alter filled roles, got %+v", d.result())
	}
}

func TestPrimaryPass_BoilerplateNeverHeader(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	e.primaryPass(&d, linesOf(
		"Appendix: problem background and results",
		"目次 課題 提案 効果",
	))
	if d != (draft{}) {
		t.Errorf("expected boilerplate lines to be ignored, got %+v", d.result())
	}
}

func TestPrimaryPass_PriorityOrder(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	// Matches both Problem and Solution; Problem wins.
	e.primaryPass(&d, linesOf("Problem and proposed solution overview"))
	if d[Problem] == "" {
		t.Error("expected problem to claim the line")
	}
	if d[Solution] != "" {
		t.Errorf("expected solution empty, got %q", d[Solution])
	}
}

func TestPrimaryPass_SecondRoleTakesLineWhenFirstFilled(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	d.fill(Problem, "p")
	e.primaryPass(&d, linesOf("Problem and proposed solution overview"))
	if d[Solution] != "Problem and proposed solution overview" {
		t.Errorf("expected solution to claim the line, got %q", d[Solution])
	}
}

func TestPrimaryPass_ConfidentialOutcomeHeaderSkipped(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	e.primaryPass(&d, linesOf(
		"Results template for the customer deck",
		"Results: downtime cut to zero last quarter",
	))
	if d[Outcome] != "Results: downtime cut to zero last quarter" {
		t.Errorf("expected second line as outcome header, got %q", d[Outcome])
	}
}

func TestRecoveryPass_OutcomeSkipsConfidentialHeader(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	e.recoveryPass(&d, linesOf(
		"KPI sample",
		"kpi",
		"continuation line long enough",
	))
	want := "kpi\ncontinuation line long enough"
	if d[Outcome] != want {
		t.Errorf("expected outcome %q, got %q", want, d[Outcome])
	}
}

func TestRecoveryPass_SolutionWindowIsTwo(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	e.recoveryPass(&d, linesOf(
		"solution",
		"tiny",
		"first continuation line",
		"second continuation line",
	))
	want := "solution\nfirst continuation line"
	if d[Solution] != want {
		t.Errorf("expected solution %q, got %q", want, d[Solution])
	}
}

func TestRecoveryPass_OutcomeHeaderNotSolutionContinuation(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	d.fill(Problem, "p")
	e.recoveryPass(&d, linesOf(
		"approach",
		"Results summary",
		"Shipping errors fell below one percent.",
	))
	if want := "approach\nShipping errors fell below one percent."; d[Solution] != want {
		t.Errorf("expected solution %q, got %q", want, d[Solution])
	}
	if want := "Results summary\nShipping errors fell below one percent."; d[Outcome] != want {
		t.Errorf("expected outcome %q, got %q", want, d[Outcome])
	}
}

func TestPrimaryPass_KeywordLineContinuesWhenNotAHeader(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	// The third line matches the Solution lexicon, but the second line
	// already heads Solution, so the third is free to continue both.
	e.primaryPass(&d, linesOf(
		"Challenge: invoices were printed by hand",
		"Approach: digital invoicing portal",
		"The old approach had failed twice before.",
	))
	want := "Challenge: invoices were printed by hand\nThe old approach had failed twice before."
	if d[Problem] != want {
		t.Errorf("expected problem %q, got %q", want, d[Problem])
	}
	want = "Approach: digital invoicing portal\nThe old approach had failed twice before."
	if d[Solution] != want {
		t.Errorf("expected solution %q, got %q", want, d[Solution])
	}
}

func TestPrimaryPass_HeaderExcludedFromEarlierWindow(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	e.primaryPass(&d, linesOf(
		"Approach: staged rollout across plants",
		"Challenge: downtime during the changeover",
		"Each plant switched over on a weekend shift.",
	))
	want := "Approach: staged rollout across plants\nEach plant switched over on a weekend shift."
	if d[Solution] != want {
		t.Errorf("expected solution %q, got %q", want, d[Solution])
	}
	want = "Challenge: downtime during the changeover\nEach plant switched over on a weekend shift."
	if d[Problem] != want {
		t.Errorf("expected problem %q, got %q", want, d[Problem])
	}
}

func TestRecoveryPass_ProblemExcludesOtherKeywords(t *testing.T) {
	e := New(DefaultLexicon())
	d := draft{}
	e.recoveryPass(&d, linesOf(
		"Our approach relied on weekly vendor meetings",
		"Vendors shipped parts late almost every week",
	))
	if d[Problem] != "Vendors shipped parts late almost every week" {
		t.Errorf("expected second line as recovered problem, got %q", d[Problem])
	}
}

func TestFallbackPass(t *testing.T) {
	d := draft{}
	d.fill(Solution, "s")
	fallbackPass(&d, linesOf("one", "two", "three"))
	want := Result{Problem: "one", Solution: "s", Outcome: "three"}
	if d.result() != want {
		t.Errorf("expected %+v, got %+v", want, d.result())
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc"},
		{"日本語テキスト", 3, "日本語"},
		{"", 3, ""},
	}
	for _, tc := range tests {
		if got := truncateRunes(tc.in, tc.n); got != tc.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
