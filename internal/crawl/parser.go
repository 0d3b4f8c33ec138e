package crawl

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Article body candidates, most specific first.
var contentSelectors = []string{"article", ".article-body", ".news-content", "#articleBody", ".content", "main"}

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const maxSummaryRunes = 300

// ParseArticle extracts article fields from an HTML page. Missing fields are
// left empty; the caller decides whether the item is usable.
func ParseArticle(pageURL string, body []byte) (model.CrawledItem, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return model.CrawledItem{}, fmt.Errorf("parsing page url %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return model.CrawledItem{}, fmt.Errorf("parsing html of %s: %w", pageURL, err)
	}
	doc.Find("script, style, noscript").Remove()

	item := model.CrawledItem{
		URL:      pageURL,
		Source:   strings.TrimPrefix(base.Hostname(), "www."),
		Title:    firstNonEmpty(meta(doc, "property", "og:title"), text(doc.Find("title")), text(doc.Find("h1"))),
		Author:   meta(doc, "name", "author"),
		Category: meta(doc, "property", "article:section"),
		Summary:  truncate(firstNonEmpty(meta(doc, "property", "og:description"), meta(doc, "name", "description")), maxSummaryRunes),
	}

	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if content := text(s); content != "" {
				item.Content = content
				break
			}
		}
	}

	image := meta(doc, "property", "og:image")
	if image == "" {
		image, _ = doc.Find("img[src]").First().Attr("src")
	}
	item.ImageURL = resolve(base, image)

	published := meta(doc, "property", "article:published_time")
	if published == "" {
		published, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}
	item.PublishedAt = parsePublished(published)

	return item, nil
}

// ExtractLinks returns absolute http(s) links from a listing page. With a
// selector, only matching elements (or anchors inside them) are used;
// otherwise every anchor pointing at the page's own host is returned.
func ExtractLinks(pageURL string, body []byte, selector string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page url %q: %w", pageURL, err)
	}
	if selector != "" {
		return selectLinks(base, body, selector)
	}
	return walkLinks(base, body)
}

func selectLinks(base *url.URL, body []byte, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing listing html: %w", err)
	}
	var links []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if !s.Is("a") {
			s = s.Find("a[href]").First()
		}
		if href, ok := s.Attr("href"); ok {
			if abs := resolve(base, href); abs != "" {
				links = append(links, abs)
			}
		}
	})
	return links, nil
}

func walkLinks(base *url.URL, body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing listing html: %w", err)
	}

	var links []string
	var walker func(*html.Node)
	walker = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				abs := resolve(base, attr.Val)
				if abs == "" {
					continue
				}
				if u, err := url.Parse(abs); err == nil && u.Host == base.Host && u.Path != base.Path {
					links = append(links, abs)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walker(c)
		}
	}
	walker(doc)
	return links, nil
}

// resolve makes href absolute against base and drops fragments. Non-http(s)
// links resolve to "".
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func meta(doc *goquery.Document, attr, name string) string {
	v, _ := doc.Find(fmt.Sprintf(`meta[%s="%s"]`, attr, name)).First().Attr("content")
	// Some publishers double-encode markup inside meta content.
	return extractText(v)
}

func text(s *goquery.Selection) string {
	return collapseWhitespace(s.First().Text())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parsePublished(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}
