package crawl

import (
	"testing"
	"time"
)

const articleHTML = `<!doctype html>
<html><head>
<title>Fallback Title</title>
<meta property="og:title" content="네이버, 하반기 공채 시작">
<meta property="og:description" content="네이버가 &lt;b&gt;하반기&lt;/b&gt; 신입 공채를 시작한다.">
<meta property="og:image" content="/img/cover.jpg">
<meta property="article:published_time" content="2026-03-02T09:30:00+09:00">
<meta property="article:section" content="IT">
<meta name="author" content="Kim Reporter">
<script>var tracking = "ignore me";</script>
</head><body>
<h1>Headline</h1>
<div class="article-body">
  네이버가   하반기 신입 개발자
  공채를 시작한다.
</div>
</body></html>`

func TestParseArticle_AllFields(t *testing.T) {
	item, err := ParseArticle("https://www.example.com/news/1", []byte(articleHTML))
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}
	if item.Title != "네이버, 하반기 공채 시작" {
		t.Errorf("Title = %q, want og:title", item.Title)
	}
	if item.Content != "네이버가 하반기 신입 개발자 공채를 시작한다." {
		t.Errorf("Content = %q", item.Content)
	}
	if item.Summary != "네이버가 하반기 신입 공채를 시작한다." {
		t.Errorf("Summary = %q", item.Summary)
	}
	if item.Source != "example.com" {
		t.Errorf("Source = %q, want host without www", item.Source)
	}
	if item.Author != "Kim Reporter" || item.Category != "IT" {
		t.Errorf("Author/Category = %q/%q", item.Author, item.Category)
	}
	if item.ImageURL != "https://www.example.com/img/cover.jpg" {
		t.Errorf("ImageURL = %q, want resolved absolute", item.ImageURL)
	}
	if item.PublishedAt == nil {
		t.Fatal("expected PublishedAt")
	}
	want := time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC)
	if !item.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", item.PublishedAt, want)
	}
}

func TestParseArticle_Fallbacks(t *testing.T) {
	page := `<html><head><meta name="description" content="plain description"></head>
<body><h1>Only H1</h1><main>Main body text</main><img src="https://cdn.example.com/a.png">
<time datetime="2026-01-15">Jan 15</time></body></html>`

	item, err := ParseArticle("https://example.com/a", []byte(page))
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}
	if item.Title != "Only H1" {
		t.Errorf("Title = %q, want h1 fallback", item.Title)
	}
	if item.Content != "Main body text" {
		t.Errorf("Content = %q, want main fallback", item.Content)
	}
	if item.Summary != "plain description" {
		t.Errorf("Summary = %q, want meta description", item.Summary)
	}
	if item.ImageURL != "https://cdn.example.com/a.png" {
		t.Errorf("ImageURL = %q, want first img", item.ImageURL)
	}
	if item.PublishedAt == nil || item.PublishedAt.Day() != 15 {
		t.Errorf("PublishedAt = %v, want time[datetime]", item.PublishedAt)
	}
}

func TestParseArticle_NoContentSelector(t *testing.T) {
	item, err := ParseArticle("https://example.com/a", []byte(`<html><head><title>T</title></head><body><p>loose text</p></body></html>`))
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}
	if item.Content != "" {
		t.Errorf("Content = %q, want empty when no content container exists", item.Content)
	}
	if item.PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil", item.PublishedAt)
	}
}

const listingHTML = `<html><body>
<ul class="headlines">
  <li><a class="tit" href="/news/1">One</a></li>
  <li><a class="tit" href="/news/2#comments">Two</a></li>
  <li><span class="tit"><a href="https://example.com/news/3">Three</a></span></li>
</ul>
<a href="https://other.com/ad">Ad</a>
<a href="mailto:desk@example.com">Mail</a>
<a href="/">Home</a>
</body></html>`

func TestExtractLinks_Selector(t *testing.T) {
	links, err := ExtractLinks("https://example.com/", []byte(listingHTML), ".tit")
	if err != nil {
		t.Fatalf("ExtractLinks: %v", err)
	}
	want := []string{"https://example.com/news/1", "https://example.com/news/2", "https://example.com/news/3"}
	if len(links) != len(want) {
		t.Fatalf("links = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %q, want %q", i, links[i], want[i])
		}
	}
}

func TestExtractLinks_SameHostWalk(t *testing.T) {
	links, err := ExtractLinks("https://example.com/", []byte(listingHTML), "")
	if err != nil {
		t.Fatalf("ExtractLinks: %v", err)
	}
	for _, l := range links {
		if l == "https://other.com/ad" {
			t.Error("expected off-host link to be dropped")
		}
		if l == "https://example.com/" {
			t.Error("expected self link to be dropped")
		}
	}
	if len(links) != 3 {
		t.Errorf("links = %v, want the 3 article links", links)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("짧은", 10); got != "짧은" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("가나다라마바사", 3); got != "가나다..." {
		t.Errorf("truncate = %q, want rune-aware cut", got)
	}
}
