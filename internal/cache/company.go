package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// CompanyProfile is a cached company analysis with its structured fields.
type CompanyProfile struct {
	Name             string
	Analysis         string // full analysis text
	Industry         string
	CompanySize      string
	RecentIssues     string
	BusinessContext  string
	HiringPatterns   string
	ExecutiveSummary string
	CachedAt         time.Time
}

// CompanyCache caches company analyses by normalized company name.
type CompanyCache struct {
	*TTLCache
}

// NewCompanyCache creates the company-analysis cache class.
func NewCompanyCache(backend model.CacheBackend, ttl time.Duration, logger *slog.Logger) *CompanyCache {
	return &CompanyCache{TTLCache: New(backend, model.CacheCompanyAnalysis, ttl, logger)}
}

// CompanyKey normalizes a company name into a cache key.
func CompanyKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Get returns a still-valid profile for the company.
func (c *CompanyCache) Get(ctx context.Context, name string) (CompanyProfile, bool, error) {
	entry, ok, err := c.FetchEntry(ctx, CompanyKey(name))
	if err != nil || !ok {
		return CompanyProfile{}, false, err
	}
	f := entry.Fields
	return CompanyProfile{
		Name:             f["name"],
		Analysis:         entry.Content,
		Industry:         f["industry"],
		CompanySize:      f["company_size"],
		RecentIssues:     f["recent_issues"],
		BusinessContext:  f["business_context"],
		HiringPatterns:   f["hiring_patterns"],
		ExecutiveSummary: f["executive_summary"],
		CachedAt:         entry.CachedAt,
	}, true, nil
}

// Put caches the profile under its normalized name.
func (c *CompanyCache) Put(ctx context.Context, p CompanyProfile) error {
	fields := compact(map[string]string{
		"name":              p.Name,
		"industry":          p.Industry,
		"company_size":      p.CompanySize,
		"recent_issues":     p.RecentIssues,
		"business_context":  p.BusinessContext,
		"hiring_patterns":   p.HiringPatterns,
		"executive_summary": p.ExecutiveSummary,
	})
	return c.Store(ctx, CompanyKey(p.Name), p.Analysis, fields)
}
