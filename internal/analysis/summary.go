package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

const introBudget = 150

var (
	summarySection = regexp.MustCompile(`(?s)#{1,4}[^\n]*(?:요약|Summary)[^\n]*\n(.*?)(?:\n#{1,4} |\z)`)
	introSentence  = regexp.MustCompile(`[^.\n。]*(?:는|은)[^.\n。]*(?:기업|회사)(?:이다|입니다)[^.\n。]*[.。]?|[^.\n]*\bis an? [^.\n]*(?:company|firm)[^.\n]*\.?`)
	markup         = regexp.MustCompile("[*_`#>]+")
)

// Summarize derives a short synopsis from raw analysis text, trying in order:
// an embedded JSON summary field, a summary-labeled section, a company
// introduction sentence, and a sentence built from insights. It reports false
// when none of them yields anything.
func Summarize(raw string, insights model.JobInsights) (string, bool) {
	if s := jsonSummary(raw); s != "" {
		return s, true
	}
	if m := summarySection.FindStringSubmatch(raw); m != nil {
		if s := stripMarkup(m[1]); s != "" {
			return s, true
		}
	}
	if m := introSentence.FindString(raw); m != "" {
		if s := stripMarkup(m); s != "" {
			return truncateRunes(s, introBudget), true
		}
	}
	if s := synthesize(insights); s != "" {
		return s, true
	}
	return "", false
}

// jsonSummary decodes the first JSON object in raw that carries a summary
// field. Objects are tried at every opening brace, so braces in the
// surrounding prose do not hide a later object.
func jsonSummary(raw string) string {
	for i := strings.IndexByte(raw, '{'); i >= 0; {
		var doc struct {
			Summary          string `json:"summary"`
			ExecutiveSummary string `json:"executive_summary"`
		}
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&doc); err == nil {
			if doc.Summary != "" {
				return doc.Summary
			}
			if doc.ExecutiveSummary != "" {
				return doc.ExecutiveSummary
			}
		}
		next := strings.IndexByte(raw[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return ""
}

func stripMarkup(s string) string {
	lines := strings.Split(markup.ReplaceAllString(s, ""), "\n")
	var kept []string
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "-"))
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, " ")
}

func synthesize(in model.JobInsights) string {
	var parts []string
	if in.CompanyName != "" {
		parts = append(parts, in.CompanyName)
	}
	if in.Industry != "" {
		parts = append(parts, "("+in.Industry+")")
	}
	if in.Position != "" {
		parts = append(parts, in.Position+" 포지션")
	}
	if len(in.Keywords) > 0 {
		parts = append(parts, "핵심 키워드: "+strings.Join(in.Keywords, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
