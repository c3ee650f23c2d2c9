package catalog

import (
	"context"
	"errors"
)

// ErrPagerDone is returned by Next after the last page.
var ErrPagerDone = errors.New("no more pages")

// PageFunc fetches the page identified by token ("" for the first page).
type PageFunc func(ctx context.Context, token string) (Page, error)

// Pager walks a continuation-token listing: request with the current token,
// keep the returned token, stop when none comes back.
type Pager struct {
	fetch PageFunc
	token string
	done  bool
}

// NewPager starts at startToken, usually "".
func NewPager(fetch PageFunc, startToken string) *Pager {
	return &Pager{fetch: fetch, token: startToken}
}

// SearchPager pages through Search results for query.
func (c *Client) SearchPager(query string, maxResults int) *Pager {
	return NewPager(func(ctx context.Context, token string) (Page, error) {
		return c.Search(ctx, query, maxResults, token)
	}, "")
}

// ShortsPager pages through the shorts feed starting at token.
func (c *Client) ShortsPager(maxResults int, token string) *Pager {
	return NewPager(func(ctx context.Context, token string) (Page, error) {
		return c.Shorts(ctx, maxResults, token)
	}, token)
}

// Next fetches the next page. A failed fetch leaves the position unchanged so
// the call can be retried.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	if p.done {
		return Page{}, ErrPagerDone
	}
	page, err := p.fetch(ctx, p.token)
	if err != nil {
		return Page{}, err
	}
	p.token = page.NextPageToken
	p.done = page.NextPageToken == ""
	return page, nil
}

// Done reports whether the last page has been fetched.
func (p *Pager) Done() bool { return p.done }

// Token is the continuation token for the next page.
func (p *Pager) Token() string { return p.token }

// Collect appends pages until the listing ends or limit items are gathered
// (limit <= 0 means no limit).
func (p *Pager) Collect(ctx context.Context, limit int) ([]Video, error) {
	var out []Video
	for !p.done {
		page, err := p.Next(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, page.Items...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
	}
	return out, nil
}
