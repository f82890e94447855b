// Package report renders a case summary as a downloadable PDF or DOCX.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/casefinder/internal/summary"
)

// Input is everything a report shows.
type Input struct {
	CaseID       int64
	Filename     string
	CustomerName string
	SystemName   string
	Summary      summary.Result
	Generated    time.Time
}

type section struct {
	heading string
	body    string
}

// labels holds the fixed report wording. Japanese is the default; the
// English set is used when the PDF has no font covering Japanese.
type labels struct {
	titlePrefix string
	filePrefix  string
	headings    [3]string
	empty       string
	generated   string
	timeLayout  string
}

var japaneseLabels = labels{
	titlePrefix: "事例要約: ",
	filePrefix:  "ファイル名: ",
	headings:    [3]string{"顧客の課題", "提供した解決策", "導入後の成果"},
	empty:       "要約がありません",
	generated:   "生成日時: ",
	timeLayout:  "2006年01月02日 15:04",
}

var englishLabels = labels{
	titlePrefix: "Case summary: ",
	filePrefix:  "File: ",
	headings:    [3]string{"Customer problem", "Solution provided", "Outcome after adoption"},
	empty:       "No summary available",
	generated:   "Generated: ",
	timeLayout:  "2006-01-02 15:04",
}

// hasNames reports whether both customer and system names are set.
func (in Input) hasNames() bool {
	return strings.TrimSpace(in.CustomerName) != "" && strings.TrimSpace(in.SystemName) != ""
}

// title is "<customer>_<system>" when both are known, else the filename.
func (in Input) title(l labels) string {
	if in.hasNames() {
		return strings.TrimSpace(in.CustomerName) + "_" + strings.TrimSpace(in.SystemName)
	}
	return l.titlePrefix + in.Filename
}

// subtitle names the source file when the title does not.
func (in Input) subtitle(l labels) string {
	if in.hasNames() {
		return l.filePrefix + in.Filename
	}
	return ""
}

func (in Input) sections(l labels) []section {
	out := make([]section, 0, len(summary.Roles))
	for i, role := range summary.Roles {
		body := strings.TrimSpace(in.Summary.Get(role))
		if body == "" {
			body = l.empty
		}
		out = append(out, section{heading: l.headings[i], body: body})
	}
	return out
}

func (in Input) footer(l labels) string {
	t := in.Generated
	if t.IsZero() {
		t = time.Now()
	}
	return l.generated + t.Format(l.timeLayout)
}

// Filename returns the download name, e.g. case_summary_12_20250131.pdf.
func Filename(caseID int64, ext string, t time.Time) string {
	return fmt.Sprintf("case_summary_%d_%s.%s", caseID, t.Format("20060102"), strings.TrimPrefix(ext, "."))
}
