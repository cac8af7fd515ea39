package jsonapikit

import (
	"context"
)

// NextPage fetches the page behind page's next link and returns page with
// it appended. When page was resolved, the new page is resolved before
// appending. On failure page is returned unchanged with the error;
// ErrNoNextPage means there is nothing more to fetch.
func NextPage[T any](ctx context.Context, c *Client, page Response[T]) (Response[T], error) {
	u, err := page.NextPageURL()
	if err != nil {
		return page, err
	}

	next, err := Do[Response[T]](ctx, c, NewGetRequest(u))
	if err != nil {
		return page, err
	}
	if page.IsResolved() {
		next = next.ResolvedWithDepth(c.maxResolveDepth)
	}

	if c.metrics != nil {
		c.metrics.RecordPageFetched(getEndpointFromURL(u))
	}
	if c.debugEnabled() {
		c.logger.Debug("Appended next page", "url", u.String(), "items", len(next.Data))
	}
	return page.Append(next), nil
}

// FetchAll follows next links from first, one page at a time, until there
// is no next page or maxPages pages have been fetched in total (first
// included). A maxPages of zero or less means no limit. The pages gathered
// so far are returned alongside any error.
func FetchAll[T any](ctx context.Context, c *Client, first Response[T], maxPages int) (Response[T], error) {
	all := first
	for pages := 1; maxPages <= 0 || pages < maxPages; pages++ {
		if !all.HasNextPage() {
			return all, nil
		}
		if err := ctx.Err(); err != nil {
			return all, err
		}

		var err error
		all, err = NextPage(ctx, c, all)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}
