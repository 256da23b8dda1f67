// Package normalize converts raw extracted article fields into their
// canonical stored forms: collapsed whitespace, sentinel substitution,
// ISO-8601 dates, and absolute URLs.
package normalize

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/araddon/dateparse"

	"bizharvest"
)

// ISO8601 is the canonical timestamp layout for stored publication dates.
const ISO8601 = "2006-01-02T15:04:05"

// Collapse trims a string and squeezes every run of internal whitespace,
// newlines included, down to a single space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CollapseLines collapses whitespace within each line but keeps the
// newlines that separate paragraphs. Blank lines are dropped.
func CollapseLines(s string) string {
	var lines []string
	for line := range strings.SplitSeq(s, "\n") {
		if collapsed := Collapse(line); collapsed != "" {
			lines = append(lines, collapsed)
		}
	}
	return strings.Join(lines, "\n")
}

// Date parses free-form date text in whatever format the site used and
// returns it as an ISO-8601 string. Empty or unparseable input returns nil;
// a bad date is a degradation, never an error.
func Date(text string) *string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	t, err := dateparse.ParseAny(text)
	if err != nil {
		return nil
	}

	formatted := t.Format(ISO8601)
	return &formatted
}

// AbsoluteURL resolves rawURL against base and validates the result. Link
// collection already produces absolute URLs, but direct callers may hand in
// relative or unvetted ones.
func AbsoluteURL(rawURL, base string) (string, error) {
	baseParsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid article URL: %w", err)
	}

	abs := baseParsed.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", fmt.Errorf("article URL must use http or https scheme, got %q", abs.Scheme)
	}
	if abs.Host == "" {
		return "", fmt.Errorf("article URL has no host: %q", rawURL)
	}

	abs.Fragment = ""
	return abs.String(), nil
}

// Record converts a raw extraction result into a storable article. Missing
// or empty title and author degrade to their sentinels, an unparseable date
// degrades to nil, and content may legitimately end up empty. The record's
// ID stays zero until the store assigns one.
func Record(raw bizharvest.RawArticle, base string) (bizharvest.Article, error) {
	articleURL, err := AbsoluteURL(raw.URL, base)
	if err != nil {
		return bizharvest.Article{}, err
	}

	title := Collapse(raw.Title.Value)
	if title == "" {
		title = bizharvest.UntitledSentinel
	}

	author := Collapse(raw.Author.Value)
	if author == "" {
		author = bizharvest.UnknownAuthor
	}

	return bizharvest.Article{
		Title:       title,
		Author:      author,
		PublishedAt: Date(raw.DateText.Value),
		URL:         articleURL,
		Content:     CollapseLines(raw.Content.Value),
	}, nil
}
