package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	errs "igfeed/pkg/errors"
	"igfeed/pkg/shortcode"
)

// GetAccount looks up an account by username. It needs no session: h may be
// nil for an anonymous request.
func GetAccount(ctx context.Context, d Doer, h http.Header, username string) (*Account, error) {
	username = SanitizeUsername(username)
	if !IsValidUsername(username) {
		return nil, errs.InvalidArgument("invalid username %q", username)
	}

	resp, err := send(ctx, d, http.MethodGet, AccountURL(username), h, nil)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus("account "+username, expectOK, resp.code, resp.body); err != nil {
		return nil, err
	}

	var raw rawAccount
	if err := decodeKey("account "+username, resp.code, resp.body, "user", &raw); err != nil {
		return nil, err
	}
	return normalizeAccount(&raw), nil
}

// Search runs a general search for accounts, hashtags and places. Like
// GetAccount it needs no session.
func Search(ctx context.Context, d Doer, h http.Header, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.InvalidArgument("search query is required")
	}

	resp, err := send(ctx, d, http.MethodGet, SearchURL(query), h, nil)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus("search", expectOK, resp.code, resp.body); err != nil {
		return nil, err
	}

	var page searchPage
	if err := decodeBody("search", resp.code, resp.body, &page); err != nil {
		return nil, err
	}
	if page.Status != "ok" {
		return nil, errs.New(errs.ErrorTypeMalformedResponse, "search: status %q", page.Status).WithResponse(resp.code, resp.body)
	}

	result := &SearchResult{
		Accounts:  make([]Account, 0, len(page.Users)),
		Tags:      make([]Tag, 0, len(page.Hashtags)),
		Locations: make([]Location, 0, len(page.Places)),
	}
	for i := range page.Users {
		result.Accounts = append(result.Accounts, *normalizeAccount(&page.Users[i].User))
	}
	for _, hit := range page.Hashtags {
		result.Tags = append(result.Tags, normalizeTag(hit.Hashtag))
	}
	for i := range page.Places {
		if loc := normalizeLocation(&page.Places[i].Place.Location); loc != nil {
			result.Locations = append(result.Locations, *loc)
		}
	}
	return result, nil
}

// GetAccount looks up an account by username without the session
func (c *Client) GetAccount(ctx context.Context, username string) (*Account, error) {
	return GetAccount(ctx, c.http, nil, username)
}

// GetAccountByID resolves an account id to its username through the follow
// redirect, then looks the account up
func (c *Client) GetAccountByID(ctx context.Context, id string) (*Account, error) {
	if !isNumeric(id) {
		return nil, errs.InvalidArgument("account id %q is not numeric", id)
	}

	resp, err := c.get(ctx, "account id "+id, FollowURL(id), expectRedirect)
	if err != nil {
		return nil, err
	}
	location := resp.header.Get("Location")
	username := UsernameFromLocation(location)
	if username == "" {
		return nil, errs.New(errs.ErrorTypeMalformedResponse, "account id %s: redirect has no target", id).WithResponse(resp.code, resp.body)
	}

	c.logger.DebugWithFields("resolved account id", map[string]interface{}{
		"id":       id,
		"username": username,
	})
	return c.GetAccount(ctx, username)
}

// Search runs a general search without the session
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	return Search(ctx, c.http, nil, query)
}

// SearchAccounts returns the accounts matching query
func (c *Client) SearchAccounts(ctx context.Context, query string) ([]Account, error) {
	result, err := c.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return result.Accounts, nil
}

// SearchTags returns the hashtags matching query
func (c *Client) SearchTags(ctx context.Context, query string) ([]Tag, error) {
	result, err := c.Search(ctx, SanitizeTag(query))
	if err != nil {
		return nil, err
	}
	return result.Tags, nil
}

// GetMediaByURL fetches a single media by its page URL
func (c *Client) GetMediaByURL(ctx context.Context, mediaURL string) (*Media, error) {
	u, err := url.Parse(mediaURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.InvalidArgument("malformed media url %q", mediaURL)
	}

	resp, err := c.get(ctx, "media", MediaJSONURL(mediaURL), expectOK)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := decodeKey("media", resp.code, resp.body, "graphql.shortcode_media", &raw); err != nil {
		return nil, err
	}
	m, err := NormalizeMedia(ShapeGraphQL, raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMediaByCode fetches a single media by short code
func (c *Client) GetMediaByCode(ctx context.Context, code string) (*Media, error) {
	if _, err := shortcode.Decode(code); err != nil || code == "" {
		return nil, errs.InvalidArgument("invalid short code %q", code)
	}
	return c.GetMediaByURL(ctx, MediaPageURL(code))
}

// GetMediaByID fetches a single media by numeric, possibly composite, id
func (c *Client) GetMediaByID(ctx context.Context, id string) (*Media, error) {
	code, err := shortcode.FromID(id)
	if err != nil {
		return nil, err
	}
	return c.GetMediaByCode(ctx, code)
}

// GetComments collects up to count comments of a media starting at cursor.
// Pages ask for at most MaxCommentsPerRequest comments and count is lowered
// to the media's total comment count.
func (c *Client) GetComments(ctx context.Context, code string, count int, cursor Cursor) ([]Comment, Cursor, error) {
	if _, err := shortcode.Decode(code); err != nil || code == "" {
		return nil, Cursor{}, errs.InvalidArgument("invalid short code %q", code)
	}

	p := pager[Comment]{
		scheme: SchemeEdge,
		fetch: func(ctx context.Context, value string, want int) (Page[Comment], error) {
			return c.fetchComments(ctx, code, min(want, MaxCommentsPerRequest), value)
		},
		key:   func(cm Comment) string { return cm.ID },
		clamp: true,
		log:   c.logger.WithField("feed", "comments"),
	}
	return p.collect(ctx, count, cursor)
}

// GetCommentsByMediaID is GetComments addressed by media id
func (c *Client) GetCommentsByMediaID(ctx context.Context, id string, count int, cursor Cursor) ([]Comment, Cursor, error) {
	code, err := shortcode.FromID(id)
	if err != nil {
		return nil, Cursor{}, err
	}
	return c.GetComments(ctx, code, count, cursor)
}

func (c *Client) fetchComments(ctx context.Context, code string, first int, after string) (Page[Comment], error) {
	resp, err := c.get(ctx, "comments", CommentsURL(code, first, after), expectOK)
	if err != nil {
		return Page[Comment]{}, err
	}

	var page commentsPage
	if err := decodeKey("comments", resp.code, resp.body, "data.shortcode_media", &page); err != nil {
		return Page[Comment]{}, err
	}

	edges := page.EdgeMediaToComment
	comments := make([]Comment, 0, len(edges.Edges))
	for _, e := range edges.Edges {
		comments = append(comments, normalizeComment(e.Node))
	}

	next := Cursor{Scheme: SchemeEdge, Value: edges.PageInfo.EndCursor}
	if len(comments) > 0 {
		if next.Value == "" {
			next.Value = comments[len(comments)-1].ID
		}
		next.HasMore = edges.PageInfo.HasNextPage
	}
	return Page[Comment]{Items: comments, Next: next, Total: int64(edges.Count)}, nil
}
