package instagram

import (
	"context"

	errs "igfeed/pkg/errors"
	"igfeed/pkg/logger"
)

// Scheme names how a feed addresses its next page
type Scheme string

const (
	// SchemeEdge feeds return an end_cursor token and has_next_page
	SchemeEdge Scheme = "edge"
	// SchemeMaxID feeds continue after the raw id of the last item and
	// report more_available
	SchemeMaxID Scheme = "max_id"
)

// Cursor is the position of a feed. The zero Cursor means "from the start".
// A cursor belongs to the scheme it was produced by; once HasMore is false
// nothing further is fetched with it.
type Cursor struct {
	Scheme  Scheme `json:"scheme" yaml:"scheme"`
	Value   string `json:"value" yaml:"value"`
	HasMore bool   `json:"has_more" yaml:"has_more"`
}

// IsZero reports whether c is the starting cursor
func (c Cursor) IsZero() bool {
	return c == Cursor{}
}

// Page is one fetched page of a feed
type Page[T any] struct {
	Items []T
	Next  Cursor
	// Total is the feed size the platform reports, when it reports one
	Total int64
}

// fetchFunc fetches the page at cursor value. want is how many more items
// the caller still needs; feeds with a fixed page size ignore it.
type fetchFunc[T any] func(ctx context.Context, value string, want int) (Page[T], error)

// pager drives one feed to a requested count
type pager[T any] struct {
	scheme Scheme
	fetch  fetchFunc[T]
	// key identifies an item for the cycle guard. nil disables the guard.
	key func(T) string
	// clamp lowers the requested count once the first page reports a total
	clamp bool
	log   logger.Logger
}

// maxPrealloc caps the up-front reservation; larger counts grow by append
const maxPrealloc = 64

// collect fetches pages from start until count items are gathered or the feed
// ends. Items of the last page beyond count are dropped and the returned
// cursor points past that page. Any fetch error discards everything gathered.
func (p pager[T]) collect(ctx context.Context, count int, start Cursor) ([]T, Cursor, error) {
	cur := start
	if cur.IsZero() {
		cur = Cursor{Scheme: p.scheme, HasMore: true}
	}
	if cur.Scheme != p.scheme {
		return nil, Cursor{}, errs.InvalidArgument("cursor of scheme %q used on a %q feed", cur.Scheme, p.scheme)
	}

	out := make([]T, 0, min(max(count, 0), maxPrealloc))
	var seen map[string]struct{}
	if p.key != nil {
		seen = make(map[string]struct{})
	}

	pages := 0
	for len(out) < count && cur.HasMore {
		page, err := p.fetch(ctx, cur.Value, count-len(out))
		if err != nil {
			return nil, Cursor{}, err
		}
		pages++

		if p.clamp && pages == 1 && int64(count) > page.Total {
			count = int(page.Total)
		}

		if len(page.Items) == 0 {
			cur = Cursor{Scheme: p.scheme, Value: cur.Value}
			break
		}

		for _, item := range page.Items {
			if len(out) == count {
				break
			}
			if seen != nil {
				k := p.key(item)
				if _, dup := seen[k]; dup {
					p.log.DebugWithFields("feed repeated an item, stopping", map[string]interface{}{
						"scheme": string(p.scheme),
						"pages":  pages,
					})
					return out, Cursor{Scheme: p.scheme, Value: page.Next.Value}, nil
				}
				seen[k] = struct{}{}
			}
			out = append(out, item)
		}

		cur = page.Next
		cur.Scheme = p.scheme
	}

	p.log.DebugWithFields("feed collected", map[string]interface{}{
		"scheme":   string(p.scheme),
		"pages":    pages,
		"items":    len(out),
		"has_more": cur.HasMore,
	})
	return out, cur, nil
}
