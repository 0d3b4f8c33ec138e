package analysis

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

func TestSummarize_FallbackChain(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		insights model.JobInsights
		want     string
		wantOK   bool
	}{
		{
			name:   "embedded json summary",
			raw:    "결과:\n```json\n{\"summary\": \"핵심만 정리\", \"score\": 3}\n```",
			want:   "핵심만 정리",
			wantOK: true,
		},
		{
			name:   "embedded executive summary",
			raw:    `{"executive_summary": "경영 요약"}`,
			want:   "경영 요약",
			wantOK: true,
		},
		{
			name:   "json after unrelated braces",
			raw:    "자기소개서 템플릿 {{이름}} 사용 주의, 예시 {a} 포함\n{\"summary\": \"요약 문장\"}",
			want:   "요약 문장",
			wantOK: true,
		},
		{
			name:   "json object without summary is skipped",
			raw:    "{\"score\": 3}\n{\"executive_summary\": \"두 번째 객체\"}",
			want:   "두 번째 객체",
			wantOK: true,
		},
		{
			name:   "summary section with markup stripped",
			raw:    "## 분석\n본문\n\n## 요약\n**성장하는** 기업입니다.\n- 추천\n\n## 다음\n기타",
			want:   "성장하는 기업입니다. 추천",
			wantOK: true,
		},
		{
			name:   "english summary heading",
			raw:    "### Summary\nA _strong_ fit.",
			want:   "A strong fit.",
			wantOK: true,
		},
		{
			name:   "company introduction sentence",
			raw:    "소개\n토스는 간편 송금으로 시작한 핀테크 기업입니다. 그 외 내용.",
			want:   "토스는 간편 송금으로 시작한 핀테크 기업입니다.",
			wantOK: true,
		},
		{
			name: "synthesized from insights",
			raw:  "형식 없음",
			insights: model.JobInsights{
				CompanyName: "카카오",
				Position:    "iOS 개발자",
				Keywords:    []string{"Swift", "협업"},
			},
			want:   "카카오 iOS 개발자 포지션 핵심 키워드: Swift, 협업",
			wantOK: true,
		},
		{
			name:     "nothing available",
			raw:      "형식 없음",
			insights: model.NewJobInsights(),
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Summarize(tt.raw, tt.insights)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (got %q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarize_IntroTruncated(t *testing.T) {
	raw := "삼성전자는 " + strings.Repeat("반도체와 가전을 ", 40) + "만드는 글로벌 기업입니다."
	got, ok := Summarize(raw, model.NewJobInsights())
	if !ok {
		t.Fatal("expected a summary")
	}
	if n := utf8.RuneCountInString(got); n != introBudget+3 {
		t.Errorf("length = %d runes, want %d", n, introBudget+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("got %q, want ellipsis", got)
	}
}
