package instagram

import (
	"context"
	"encoding/json"
	"strings"

	errs "igfeed/pkg/errors"
)

func mediaKey(m Media) string { return m.ID }

// normalizeAll decodes a page of raw items of one shape
func normalizeAll(shape Shape, raws []json.RawMessage) ([]Media, error) {
	out := make([]Media, 0, len(raws))
	for _, raw := range raws {
		m, err := NormalizeMedia(shape, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// AccountMediaPage fetches one page of an account's legacy media feed. The
// next cursor is the raw id of the page's last item.
func (c *Client) AccountMediaPage(ctx context.Context, username string, cursor Cursor) (Page[Media], error) {
	if username == "" {
		return Page[Media]{}, errs.InvalidArgument("username is required")
	}
	value, err := cursorValue(cursor, SchemeMaxID)
	if err != nil {
		return Page[Media]{}, err
	}
	return c.fetchAccountMedia(ctx, username, value)
}

func (c *Client) fetchAccountMedia(ctx context.Context, username, maxID string) (Page[Media], error) {
	resp, err := c.get(ctx, "account media", AccountMediaURL(username, maxID), expectOK)
	if err != nil {
		return Page[Media]{}, err
	}

	var page legacyPage
	if err := decodeKey("account media", resp.code, resp.body, "items", &page.Items); err != nil {
		return Page[Media]{}, err
	}
	if err := json.Unmarshal(resp.body, &page); err != nil {
		return Page[Media]{}, errs.Wrap(errs.ErrorTypeMalformedResponse, err, "account media").WithResponse(resp.code, resp.body)
	}

	items, err := normalizeAll(ShapeLegacy, page.Items)
	if err != nil {
		return Page[Media]{}, err
	}

	next := Cursor{Scheme: SchemeMaxID, Value: maxID}
	if len(page.Items) > 0 {
		var last struct {
			ID jsonString `json:"id"`
		}
		if err := json.Unmarshal(page.Items[len(page.Items)-1], &last); err != nil {
			return Page[Media]{}, errs.Wrap(errs.ErrorTypeMalformedResponse, err, "account media: last item id")
		}
		next.Value = string(last.ID)
		next.HasMore = page.MoreAvailable
	}
	return Page[Media]{Items: items, Next: next}, nil
}

// AccountMedia collects up to count media of an account starting at cursor.
// This feed has no cycle guard: the legacy shape offers nothing to detect a
// repeated page with besides the ids themselves, and repeats have not been
// observed.
func (c *Client) AccountMedia(ctx context.Context, username string, count int, cursor Cursor) ([]Media, Cursor, error) {
	if username == "" {
		return nil, Cursor{}, errs.InvalidArgument("username is required")
	}
	p := pager[Media]{
		scheme: SchemeMaxID,
		fetch: func(ctx context.Context, value string, _ int) (Page[Media], error) {
			return c.fetchAccountMedia(ctx, username, value)
		},
		log: c.logger.WithField("feed", "account"),
	}
	return p.collect(ctx, count, cursor)
}

// TagMediaPage fetches one page of a hashtag feed
func (c *Client) TagMediaPage(ctx context.Context, tag string, cursor Cursor) (Page[Media], error) {
	tag = SanitizeTag(tag)
	if tag == "" {
		return Page[Media]{}, errs.InvalidArgument("tag is required")
	}
	value, err := cursorValue(cursor, SchemeEdge)
	if err != nil {
		return Page[Media]{}, err
	}
	return c.fetchTagMedia(ctx, tag, value)
}

func (c *Client) fetchTag(ctx context.Context, tag, endCursor string) (*tagPage, error) {
	resp, err := c.get(ctx, "tag media", TagMediaURL(tag, endCursor), expectOK)
	if err != nil {
		return nil, err
	}
	var page tagPage
	if err := decodeKey("tag media", resp.code, resp.body, "tag", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) fetchTagMedia(ctx context.Context, tag, endCursor string) (Page[Media], error) {
	page, err := c.fetchTag(ctx, tag, endCursor)
	if err != nil {
		return Page[Media]{}, err
	}
	return nodePage(page.Media)
}

// nodePage converts a node-style feed section into a Page
func nodePage(feed nodeFeed) (Page[Media], error) {
	items, err := normalizeAll(ShapeNode, feed.Nodes)
	if err != nil {
		return Page[Media]{}, err
	}
	return Page[Media]{
		Items: items,
		Next: Cursor{
			Scheme:  SchemeEdge,
			Value:   feed.PageInfo.EndCursor,
			HasMore: feed.PageInfo.HasNextPage && len(items) > 0,
		},
		Total: int64(feed.Count),
	}, nil
}

// TagMedia collects up to count media of a hashtag feed starting at cursor.
// Collection stops early if the feed repeats an item.
func (c *Client) TagMedia(ctx context.Context, tag string, count int, cursor Cursor) ([]Media, Cursor, error) {
	tag = SanitizeTag(tag)
	if tag == "" {
		return nil, Cursor{}, errs.InvalidArgument("tag is required")
	}
	p := pager[Media]{
		scheme: SchemeEdge,
		fetch: func(ctx context.Context, value string, _ int) (Page[Media], error) {
			return c.fetchTagMedia(ctx, tag, value)
		},
		key: mediaKey,
		log: c.logger.WithField("feed", "tag"),
	}
	return p.collect(ctx, count, cursor)
}

// TopTagMedia returns the top posts of a hashtag
func (c *Client) TopTagMedia(ctx context.Context, tag string) ([]Media, error) {
	tag = SanitizeTag(tag)
	if tag == "" {
		return nil, errs.InvalidArgument("tag is required")
	}
	page, err := c.fetchTag(ctx, tag, "")
	if err != nil {
		return nil, err
	}
	return normalizeAll(ShapeNode, page.TopPosts.Nodes)
}

func (c *Client) fetchLocation(ctx context.Context, locationID, endCursor string) (*locationPage, error) {
	if !isNumeric(locationID) {
		return nil, errs.InvalidArgument("location id %q is not numeric", locationID)
	}
	resp, err := c.get(ctx, "location", LocationMediaURL(locationID, endCursor), expectOK)
	if err != nil {
		return nil, err
	}
	var page locationPage
	if err := decodeKey("location", resp.code, resp.body, "location", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// LocationMedia collects up to count media of a location feed starting at
// cursor. Collection stops early if the feed repeats an item.
func (c *Client) LocationMedia(ctx context.Context, locationID string, count int, cursor Cursor) ([]Media, Cursor, error) {
	if !isNumeric(locationID) {
		return nil, Cursor{}, errs.InvalidArgument("location id %q is not numeric", locationID)
	}
	p := pager[Media]{
		scheme: SchemeEdge,
		fetch: func(ctx context.Context, value string, _ int) (Page[Media], error) {
			page, err := c.fetchLocation(ctx, locationID, value)
			if err != nil {
				return Page[Media]{}, err
			}
			return nodePage(page.Media)
		},
		key: mediaKey,
		log: c.logger.WithField("feed", "location"),
	}
	return p.collect(ctx, count, cursor)
}

// LocationTopMedia returns the top posts of a location
func (c *Client) LocationTopMedia(ctx context.Context, locationID string) ([]Media, error) {
	page, err := c.fetchLocation(ctx, locationID, "")
	if err != nil {
		return nil, err
	}
	return normalizeAll(ShapeNode, page.TopPosts.Nodes)
}

// GetLocation returns the location a location page describes
func (c *Client) GetLocation(ctx context.Context, locationID string) (*Location, error) {
	page, err := c.fetchLocation(ctx, locationID, "")
	if err != nil {
		return nil, err
	}
	loc := normalizeLocation(&page.rawLocation)
	if loc == nil {
		return nil, errs.New(errs.ErrorTypeMalformedResponse, "location %s: response has no id or name", locationID)
	}
	return loc, nil
}

// cursorValue checks a single-page cursor against the feed's scheme
func cursorValue(cursor Cursor, scheme Scheme) (string, error) {
	if cursor.IsZero() {
		return "", nil
	}
	if cursor.Scheme != scheme {
		return "", errs.InvalidArgument("cursor of scheme %q used on a %q feed", cursor.Scheme, scheme)
	}
	return cursor.Value, nil
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
