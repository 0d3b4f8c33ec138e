package filter

import (
	"strings"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// KeywordFilter keeps crawled items whose title or summary mentions any of
// the keywords and none of the exclude keywords. Matching is case-insensitive.
// An empty keyword list matches all.
type KeywordFilter struct {
	keywords        []string
	excludeKeywords []string
}

// NewKeywordFilter returns a filter over lower-cased keywords.
func NewKeywordFilter(keywords, excludeKeywords []string) *KeywordFilter {
	return &KeywordFilter{
		keywords:        lowerAll(keywords),
		excludeKeywords: lowerAll(excludeKeywords),
	}
}

// ForSource builds the filter configured on a crawl source.
func ForSource(src model.Source) *KeywordFilter {
	return NewKeywordFilter(src.Keywords, src.ExcludeKeywords)
}

// Match implements model.ItemFilter.
func (f *KeywordFilter) Match(item model.CrawledItem) bool {
	text := strings.ToLower(item.Title + " " + item.Summary)

	for _, kw := range f.excludeKeywords {
		if strings.Contains(text, kw) {
			return false
		}
	}

	if len(f.keywords) == 0 {
		return true
	}
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}
