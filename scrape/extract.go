package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bizharvest"
)

// Extract pulls raw title, author, date text, and content out of an article
// document using the given strategy. A field with no matching rule comes
// back absent, never as an error; the only error is a document with no
// usable structure at all.
func Extract(doc *goquery.Document, articleURL string, s Strategy) (bizharvest.RawArticle, error) {
	if doc == nil || doc.Selection == nil {
		return bizharvest.RawArticle{}, fmt.Errorf("document is unusable")
	}

	return bizharvest.RawArticle{
		URL:      articleURL,
		Title:    lookup(doc, s.Title),
		Author:   lookup(doc, s.Author),
		DateText: lookup(doc, s.Date),
		Content:  contentField(doc, s.Containers),
	}, nil
}

// lookup tries each rule in order and returns the first hit. An attribute
// rule whose attribute is missing falls through to the next rule, so
// "time@datetime" can degrade to the time element's display text.
func lookup(doc *goquery.Document, rules []Rule) bizharvest.Field {
	for _, rule := range rules {
		sel := doc.Find(rule.Selector).First()
		if sel.Length() == 0 {
			continue
		}
		if rule.Attr != "" {
			if val, ok := sel.Attr(rule.Attr); ok {
				return bizharvest.Present(val)
			}
			continue
		}
		return bizharvest.Present(sel.Text())
	}
	return bizharvest.Absent
}

// contentField finds the first matching body container and joins the text
// of its paragraph elements with newlines. If no container yields text it
// falls back to every paragraph in the document, matching how loosely the
// target site nests its article bodies.
func contentField(doc *goquery.Document, containers []string) bizharvest.Field {
	matched := false
	for _, selector := range containers {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		matched = true
		if text := paragraphText(node); text != "" {
			return bizharvest.Present(text)
		}
	}

	if text := paragraphText(doc.Selection); text != "" {
		return bizharvest.Present(text)
	}

	if matched {
		// Container exists but holds no paragraph text.
		return bizharvest.Present("")
	}
	return bizharvest.Absent
}

func paragraphText(sel *goquery.Selection) string {
	var chunks []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			chunks = append(chunks, text)
		}
	})
	return strings.Join(chunks, "\n")
}
