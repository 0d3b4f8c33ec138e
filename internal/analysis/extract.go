package analysis

import (
	"regexp"
	"strings"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

var (
	companyPattern  = regexp.MustCompile(`\*\*(?:기업명|Company)\*\*:[ \t]*(.+)`)
	positionPattern = regexp.MustCompile(`\*\*(?:모집 직무|Position)\*\*:[ \t]*(.+)`)
	industryPattern = regexp.MustCompile(`\*\*(?:업종|Industry)\*\*:[ \t]*(.+)`)
	sizePattern     = regexp.MustCompile(`\*\*(?:기업 규모|Company Size)\*\*:[ \t]*(.+)`)
	issuesPattern   = regexp.MustCompile(`\*\*(?:최근 이슈|Recent Issues)\*\*:[ \t]*(.+)`)

	keywordSection = regexp.MustCompile(`(?s)###[^\n]*(?:핵심 키워드|Key Keywords)[^\n]*\n(.*?)(?:\n#{1,3} |###|\z)`)
	skillSection   = regexp.MustCompile(`(?s)###[^\n]*(?:필수 역량|Required Skills)[^\n]*\n(.*?)(?:\n\*\*|\n#{1,3} |###|\z)`)
	valueSection   = regexp.MustCompile(`(?s)\*\*(?:핵심 가치|Core Values)\*\*[^\n]*\n(.*?)(?:\*\*|\n#{1,3} |###|\z)`)

	numberedBold = regexp.MustCompile(`(?m)^\s*\d+\.\s*\*\*(.+?)\*\*`)
	dashItem     = regexp.MustCompile(`(?m)^\s*- (.+)$`)
)

// Extract pulls labeled fields and lists out of semi-structured analysis
// text. Each pattern is independent; one that does not match leaves its field
// empty. Extract never fails.
func Extract(raw string) model.JobInsights {
	in := model.NewJobInsights()
	in.CompanyName = firstGroup(companyPattern, raw)
	in.Position = firstGroup(positionPattern, raw)
	in.Industry = firstGroup(industryPattern, raw)

	if section := firstGroup(keywordSection, raw); section != "" {
		in.Keywords = allGroups(numberedBold, section)
	}
	if section := firstGroup(skillSection, raw); section != "" {
		in.RequiredSkills = allGroups(dashItem, section)
	}
	if section := firstGroup(valueSection, raw); section != "" {
		in.CompanyValues = allGroups(dashItem, section)
	}
	return in
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// allGroups never returns nil so list fields stay non-nil.
func allGroups(re *regexp.Regexp, s string) []string {
	out := []string{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			out = append(out, v)
		}
	}
	return out
}
