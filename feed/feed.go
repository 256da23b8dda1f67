// Package feed discovers candidate article links from an RSS or Atom
// section feed, for sites that publish one alongside their homepage.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Links fetches the feed at feedURL and returns the set of item links that
// belong to the target section: same host as baseURL, path containing
// pathMarker, fragments and query strings stripped. The gofeed parser
// handles RSS and Atom transparently.
func Links(ctx context.Context, feedURL, baseURL, pathMarker string) (map[string]struct{}, error) {
	fp := gofeed.NewParser()
	parsed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return FilterItems(parsed, baseURL, pathMarker)
}

// FilterItems applies the section filter to an already-parsed feed.
func FilterItems(parsed *gofeed.Feed, baseURL, pathMarker string) (map[string]struct{}, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	links := make(map[string]struct{})
	for _, item := range parsed.Items {
		ref, err := url.Parse(strings.TrimSpace(item.Link))
		if err != nil {
			continue
		}

		abs := base.ResolveReference(ref)
		if abs.Host != base.Host {
			continue
		}
		if !strings.Contains(abs.Path, pathMarker) {
			continue
		}

		abs.Fragment = ""
		abs.RawQuery = ""
		links[abs.String()] = struct{}{}
	}

	return links, nil
}
