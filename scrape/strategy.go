package scrape

// Rule is a single lookup location for a field. Selector is a CSS selector;
// when Attr is set the rule reads that attribute of the first match,
// otherwise it reads the match's text. Meta-tag lookups are plain rules
// with Attr "content".
type Rule struct {
	Selector string `yaml:"selector" json:"selector"`
	Attr     string `yaml:"attr,omitempty" json:"attr,omitempty"`
}

// Strategy maps each article field to an ordered list of lookup rules,
// tried first to last. Containers lists candidate selectors for the main
// body element; paragraph text inside the first matching container becomes
// the article content. Site markup changes are absorbed by swapping the
// strategy, not by touching the pipeline.
type Strategy struct {
	Title      []Rule   `yaml:"title" json:"title"`
	Author     []Rule   `yaml:"author" json:"author"`
	Date       []Rule   `yaml:"date" json:"date"`
	Containers []string `yaml:"containers" json:"containers"`
}

// DefaultStrategy returns the lookup rules for the target site's current
// markup: og:title then h1 for the title, meta author then visible bylines,
// article:published_time then time elements then date spans, and the usual
// body container candidates.
func DefaultStrategy() Strategy {
	return Strategy{
		Title: []Rule{
			{Selector: `meta[property="og:title"]`, Attr: "content"},
			{Selector: "h1"},
		},
		Author: []Rule{
			{Selector: `meta[name="author"]`, Attr: "content"},
			{Selector: ".author, .byline, .author-name, .article-author, a[rel='author']"},
		},
		Date: []Rule{
			{Selector: `meta[property="article:published_time"]`, Attr: "content"},
			{Selector: "time", Attr: "datetime"},
			{Selector: "time"},
			{Selector: ".date, .time, .publishing-date, .article-date"},
		},
		Containers: []string{
			"div.articleText",
			"div.articleContent",
			"div.article-desc",
			"div#content",
			"div#articleBody",
			"article",
		},
	}
}
