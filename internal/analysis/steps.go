package analysis

import (
	"fmt"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Step is one engine call in an analysis plan. Weights of a plan sum to 100.
type Step struct {
	Name   string
	Title  string
	Weight int
}

var plans = map[model.TaskKind][]Step{
	model.KindCoverLetter: {
		{Name: "first_impression", Title: "첫인상", Weight: 15},
		{Name: "strengths", Title: "강점", Weight: 25},
		{Name: "improvements", Title: "개선점", Weight: 25},
		{Name: "hidden_gems", Title: "숨은 보석", Weight: 20},
		{Name: "encouragement", Title: "응원 메시지", Weight: 15},
	},
	model.KindJobPosting: {
		{Name: "key_info", Title: "핵심 정보", Weight: 50},
		{Name: "strategy", Title: "지원 전략", Weight: 50},
	},
	model.KindCompany: {
		{Name: "overview", Title: "기업 개요", Weight: 30},
		{Name: "hiring", Title: "채용 경향", Weight: 25},
		{Name: "preparation", Title: "면접 준비", Weight: 25},
		{Name: "advice", Title: "컨설턴트 조언", Weight: 20},
	},
}

// PlanFor returns the ordered steps for kind.
func PlanFor(kind model.TaskKind) ([]Step, error) {
	steps, ok := plans[kind]
	if !ok {
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
	return steps, nil
}
