package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CollectLinks scans every hyperlink on a homepage document and returns the
// set of absolute same-site URLs whose path contains pathMarker. Relative
// hrefs are resolved against baseURL; fragments and query strings are
// stripped so variants of the same article collapse to one entry. Malformed
// hrefs (empty, javascript pseudo-links, fragment-only) are dropped
// silently. Iteration order over the result is unspecified.
func CollectLinks(doc *goquery.Document, baseURL, pathMarker string) map[string]struct{} {
	links := make(map[string]struct{})

	base, err := url.Parse(baseURL)
	if err != nil {
		return links
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)

		// Stay on the source site.
		if abs.Host != base.Host {
			return
		}
		if !strings.Contains(abs.Path, pathMarker) {
			return
		}

		abs.Fragment = ""
		abs.RawQuery = ""
		links[abs.String()] = struct{}{}
	})

	return links
}
