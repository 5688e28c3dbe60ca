package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	errs "igfeed/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient(30*time.Second, nil)

	assert.NotNil(t, client)
	assert.NotNil(t, client.http)
	assert.NotNil(t, client.noRedirect)
	assert.Nil(t, client.Session())
}

func TestGetAccountNotFound(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(nil))

	_, err := client.GetAccount(context.Background(), "ghost")
	require.Error(t, err)

	assert.True(t, errs.IsNotFound(err))
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusNotFound, e.Code)
	assert.Equal(t, []string{AccountURL("ghost")}, rec.urls())
}

func TestGetAccount(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		AccountURL("kevin"): jsonResponse(`{"user": {
			"id": "25025320", "username": "kevin", "full_name": "Kevin",
			"biography": "bio", "external_url": "https://example.com",
			"profile_pic_url": "https://p/s.jpg", "profile_pic_url_hd": "https://p/hd.jpg",
			"is_private": false, "is_verified": true,
			"followed_by": {"count": 100}, "follows": {"count": 50}, "media": {"count": 7}
		}}`),
	}))
	s := NewSession("me")
	s.Cookies["sessionid"] = "s1"
	client.SetSession(s)

	account, err := client.GetAccount(context.Background(), "@kevin")
	require.NoError(t, err)

	assert.Equal(t, &Account{
		ID:              "25025320",
		Username:        "kevin",
		FullName:        "Kevin",
		Biography:       "bio",
		ExternalURL:     "https://example.com",
		ProfilePicURL:   "https://p/s.jpg",
		ProfilePicURLHD: "https://p/hd.jpg",
		IsVerified:      true,
		FollowersCount:  100,
		FollowingCount:  50,
		MediaCount:      7,
	}, account)
	assert.Empty(t, rec.request(0).Header.Get("Cookie"), "account lookup is anonymous")
}

func TestGetAccountInvalidUsername(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(nil))

	_, err := client.GetAccount(context.Background(), "not a user!")
	assert.True(t, errs.IsInvalidArgument(err))
	assert.Zero(t, rec.count())
}

func TestResponseClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected errs.ErrorType
	}{
		{"non-JSON success body", http.StatusOK, "<!DOCTYPE html><html></html>", errs.ErrorTypeMalformedResponse},
		{"missing expected key", http.StatusOK, `{"graphql": {}}`, errs.ErrorTypeMalformedResponse},
		{"null expected key", http.StatusOK, `{"graphql": {"shortcode_media": null}}`, errs.ErrorTypeMalformedResponse},
		{"not found", http.StatusNotFound, "", errs.ErrorTypeNotFound},
		{"server error", http.StatusInternalServerError, "oops", errs.ErrorTypeTransient},
		{"rate limited", http.StatusTooManyRequests, "", errs.ErrorTypeTransient},
		{"login wall", http.StatusOK, `{"requires_to_login": true}`, errs.ErrorTypeAuthRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, func(*http.Request) (*http.Response, error) {
				return newResponse(tt.status, tt.body), nil
			})

			_, err := client.GetMediaByCode(context.Background(), "BRZlKsijN9J")
			require.Error(t, err)

			var e *errs.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.expected, e.Type)
			assert.Equal(t, tt.status, e.Code)
			assert.Equal(t, tt.body, e.Body)
		})
	}
}

func TestTransportFailureIsTransient(t *testing.T) {
	client, _, log := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})

	_, _, err := client.TagMedia(context.Background(), "golang", 5, Cursor{})
	require.Error(t, err)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.ErrorTypeTransient, e.Type)
	assert.Zero(t, e.Code)
	assert.True(t, log.HasMessage("HTTP request failed"))
}

func TestCancelledContextIsTransient(t *testing.T) {
	client, _, _ := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.AccountMedia(ctx, "kevin", 5, Cursor{})
	assert.Equal(t, errs.ErrorTypeTransient, errs.TypeOf(err))
}

func TestAccountMediaPaginates(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		AccountMediaURL("kevin", ""): jsonResponse(`{"items": [
			{"id": "3_25025320", "code": "D", "type": "image"},
			{"id": "2_25025320", "code": "C", "type": "image"}
		], "more_available": true}`),
		AccountMediaURL("kevin", "2_25025320"): jsonResponse(`{"items": [
			{"id": "1_25025320", "code": "B", "type": "image"}
		], "more_available": false}`),
	}))

	media, next, err := client.AccountMedia(context.Background(), "kevin", 10, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"3", "2", "1"}, ids(media))
	assert.Equal(t, []string{AccountMediaURL("kevin", ""), AccountMediaURL("kevin", "2_25025320")}, rec.urls())
	assert.Equal(t, Cursor{Scheme: SchemeMaxID, Value: "1_25025320", HasMore: false}, next)
}

func TestAccountMediaPage(t *testing.T) {
	client, _, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		AccountMediaURL("kevin", ""): jsonResponse(`{"items": [{"id": "3_1"}, {"id": "2_1"}], "more_available": true}`),
	}))

	page, err := client.AccountMediaPage(context.Background(), "kevin", Cursor{})
	require.NoError(t, err)

	assert.Len(t, page.Items, 2)
	assert.Equal(t, Cursor{Scheme: SchemeMaxID, Value: "2_1", HasMore: true}, page.Next)

	_, err = client.AccountMediaPage(context.Background(), "kevin", Cursor{Scheme: SchemeEdge, Value: "x", HasMore: true})
	assert.True(t, errs.IsInvalidArgument(err))
}

func TestAccountMediaEmptyFirstPage(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		AccountMediaURL("kevin", ""): jsonResponse(`{"items": [], "more_available": false}`),
	}))

	media, next, err := client.AccountMedia(context.Background(), "kevin", 10, Cursor{})
	require.NoError(t, err)

	assert.Empty(t, media)
	assert.False(t, next.HasMore)
	assert.Equal(t, 1, rec.count())
}

func nodesBody(key string, endCursor string, hasNext bool, ids ...int) string {
	nodes := make([]string, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, fmt.Sprintf(`{"id": "%d", "display_src": "https://i/%d.jpg", "date": 1490000000}`, id, id))
	}
	return fmt.Sprintf(`{%q: {"name": "x", "media": {"count": 1000, "nodes": [%s], "page_info": {"has_next_page": %t, "end_cursor": %q}},
		"top_posts": {"nodes": [{"id": "99", "display_src": "https://i/99.jpg"}]}}}`,
		key, strings.Join(nodes, ","), hasNext, endCursor)
}

func TestTagMediaFollowsEndCursor(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		TagMediaURL("golang", ""):   jsonResponse(nodesBody("tag", "c1", true, 1, 2)),
		TagMediaURL("golang", "c1"): jsonResponse(nodesBody("tag", "c2", true, 3, 4)),
	}))

	media, next, err := client.TagMedia(context.Background(), "#golang", 3, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, ids(media))
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, Cursor{Scheme: SchemeEdge, Value: "c2", HasMore: true}, next)

	// Resuming from the returned cursor continues after the second page
	_, _, err = client.TagMedia(context.Background(), "golang", 1, next)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, TagMediaURL("golang", "c2"), rec.urls()[2])
}

func TestTagMediaPage(t *testing.T) {
	client, _, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		TagMediaURL("golang", ""): jsonResponse(nodesBody("tag", "c1", true, 1, 2)),
	}))

	page, err := client.TagMediaPage(context.Background(), "golang", Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, ids(page.Items))
	assert.Equal(t, int64(1000), page.Total)
	assert.Equal(t, "c1", page.Next.Value)
}

func TestTopTagMedia(t *testing.T) {
	client, _, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		TagMediaURL("golang", ""): jsonResponse(nodesBody("tag", "c1", true, 1, 2)),
	}))

	top, err := client.TopTagMedia(context.Background(), "golang")
	require.NoError(t, err)

	assert.Equal(t, []string{"99"}, ids(top))

	_, err = client.TopTagMedia(context.Background(), " # ")
	assert.True(t, errs.IsInvalidArgument(err))
}

func TestLocationOperations(t *testing.T) {
	body := strings.Replace(nodesBody("location", "", false, 5, 6), `"name": "x"`,
		`"id": "17326249", "name": "Eiffel Tower", "slug": "eiffel-tower", "lat": 48.858, "lng": 2.294`, 1)
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		LocationMediaURL("17326249", ""): jsonResponse(body),
	}))

	media, next, err := client.LocationMedia(context.Background(), "17326249", 10, Cursor{})
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "6"}, ids(media))
	assert.False(t, next.HasMore)

	loc, err := client.GetLocation(context.Background(), "17326249")
	require.NoError(t, err)
	assert.Equal(t, "17326249", loc.ID)
	assert.Equal(t, "Eiffel Tower", loc.Name)
	require.NotNil(t, loc.Lng)
	assert.InDelta(t, 2.294, *loc.Lng, 1e-9)

	top, err := client.LocationTopMedia(context.Background(), "17326249")
	require.NoError(t, err)
	assert.Equal(t, []string{"99"}, ids(top))

	calls := rec.count()
	_, err = client.GetLocation(context.Background(), "paris")
	assert.True(t, errs.IsInvalidArgument(err))
	assert.Equal(t, calls, rec.count())
}

func redirectResponse(status int, location string) *http.Response {
	resp := newResponse(status, "")
	resp.Header.Set("Location", location)
	return resp
}

func TestGetAccountByID(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		FollowURL("25025320"): func() *http.Response {
			return redirectResponse(http.StatusFound, "https://www.instagram.com/kevin/")
		},
		AccountURL("kevin"): jsonResponse(`{"user": {"id": "25025320", "username": "kevin"}}`),
	}))

	account, err := client.GetAccountByID(context.Background(), "25025320")
	require.NoError(t, err)

	assert.Equal(t, "kevin", account.Username)
	assert.Equal(t, []string{FollowURL("25025320"), AccountURL("kevin")}, rec.urls(), "the redirect is read, not followed")
}

func TestGetAccountByIDFailures(t *testing.T) {
	t.Run("bad request is not found", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(*http.Request) (*http.Response, error) {
			return newResponse(http.StatusBadRequest, ""), nil
		})
		_, err := client.GetAccountByID(context.Background(), "1")
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("success instead of redirect", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(*http.Request) (*http.Response, error) {
			return newResponse(http.StatusOK, "{}"), nil
		})
		_, err := client.GetAccountByID(context.Background(), "1")
		assert.Equal(t, errs.ErrorTypeTransient, errs.TypeOf(err))
	})

	t.Run("non-numeric id", func(t *testing.T) {
		client, rec, _ := newTestClient(t, staticHandler(nil))
		_, err := client.GetAccountByID(context.Background(), "kevin")
		assert.True(t, errs.IsInvalidArgument(err))
		assert.Zero(t, rec.count())
	})
}

const shortcodeMediaBody = `{"graphql": {"shortcode_media": {
	"__typename": "GraphVideo", "id": "1466366616425783113", "shortcode": "BRZlKsijN9J",
	"display_url": "https://i/e35/a.jpg", "is_video": true, "video_url": "https://v/a.mp4",
	"video_view_count": 321, "edge_media_to_caption": {"edges": []},
	"location": {"id": "17326249", "name": "Eiffel Tower"}
}}}`

func TestGetMediaByIDAndCode(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		MediaJSONURL(MediaPageURL("BRZlKsijN9J")): jsonResponse(shortcodeMediaBody),
	}))

	byID, err := client.GetMediaByID(context.Background(), "1466366616425783113_25025320")
	require.NoError(t, err)
	byCode, err := client.GetMediaByCode(context.Background(), "BRZlKsijN9J")
	require.NoError(t, err)

	assert.Equal(t, byID, byCode)
	assert.Equal(t, MediaTypeVideo, byID.Type)
	require.NotNil(t, byID.Video)
	assert.Equal(t, int64(321), byID.Video.Views)
	assert.Equal(t, "Eiffel Tower", byID.Location.Name)
	assert.Equal(t, "https://www.instagram.com/p/BRZlKsijN9J/?__a=1", rec.urls()[0])
}

func TestGetMediaByURLRejectsMalformedURL(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(nil))

	for _, u := range []string{"", "not a url", "ftp://www.instagram.com/p/B/", "/p/BRZlKsijN9J/"} {
		_, err := client.GetMediaByURL(context.Background(), u)
		assert.True(t, errs.IsInvalidArgument(err), "url %q", u)
	}
	_, err := client.GetMediaByCode(context.Background(), "bad*code")
	assert.True(t, errs.IsInvalidArgument(err))
	_, err = client.GetMediaByID(context.Background(), "abc")
	assert.True(t, errs.IsInvalidArgument(err))

	assert.Zero(t, rec.count())
}

func commentsBody(first, n int, total int, endCursor string, hasNext bool) string {
	edges := make([]string, 0, n)
	for i := first; i < first+n; i++ {
		edges = append(edges, fmt.Sprintf(`{"node": {"id": "%d", "text": "comment %d", "created_at": 1490000000,
			"owner": {"id": "7", "username": "ann", "profile_pic_url": "https://p/a.jpg"}}}`, i, i))
	}
	return fmt.Sprintf(`{"data": {"shortcode_media": {"edge_media_to_comment": {"count": %d,
		"page_info": {"has_next_page": %t, "end_cursor": %q}, "edges": [%s]}}}, "status": "ok"}`,
		total, hasNext, endCursor, strings.Join(edges, ","))
}

func TestGetCommentsCapsToTotal(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		CommentsURL("BRZlKsijN9J", 10, ""): jsonResponse(commentsBody(1, 2, 2, "e1", true)),
	}))

	comments, _, err := client.GetComments(context.Background(), "BRZlKsijN9J", 10, Cursor{})
	require.NoError(t, err)

	require.Len(t, comments, 2)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, Comment{
		ID:          "1",
		Text:        "comment 1",
		CreatedTime: 1490000000,
		Author:      &Account{ID: "7", Username: "ann", ProfilePicURL: "https://p/a.jpg"},
	}, comments[0])
}

func TestGetCommentsPageSizeLimit(t *testing.T) {
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		CommentsURL("BRZlKsijN9J", MaxCommentsPerRequest, ""):   jsonResponse(commentsBody(1, 300, 1000, "e1", true)),
		CommentsURL("BRZlKsijN9J", 200, "e1"):                   jsonResponse(commentsBody(301, 200, 1000, "e2", true)),
		CommentsURL("BRZlKsijN9J", MaxCommentsPerRequest, "e2"): jsonResponse(commentsBody(501, 300, 1000, "e3", true)),
	}))

	comments, next, err := client.GetCommentsByMediaID(context.Background(), "1466366616425783113", 500, Cursor{})
	require.NoError(t, err)

	assert.Len(t, comments, 500)
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, "e2", next.Value)
}

func TestGetCommentsFallsBackToLastID(t *testing.T) {
	client, _, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		CommentsURL("BRZlKsijN9J", 2, ""): jsonResponse(commentsBody(1, 2, 10, "", true)),
	}))

	_, next, err := client.GetComments(context.Background(), "BRZlKsijN9J", 2, Cursor{})
	require.NoError(t, err)
	assert.Equal(t, Cursor{Scheme: SchemeEdge, Value: "2", HasMore: true}, next)
}

func TestSearch(t *testing.T) {
	client, _, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		SearchURL("kevin"): jsonResponse(`{"status": "ok",
			"users": [{"position": 0, "user": {"pk": "25025320", "username": "kevin", "is_verified": true, "follower_count": 12}}],
			"hashtags": [{"position": 1, "hashtag": {"name": "kevin", "media_count": 55}}],
			"places": [{"place": {"location": {"pk": "17326249", "name": "Kevin's"}}}]}`),
		SearchURL("broken"): jsonResponse(`{"status": "fail"}`),
	}))

	result, err := client.Search(context.Background(), "kevin")
	require.NoError(t, err)
	require.Len(t, result.Accounts, 1)
	assert.Equal(t, "25025320", result.Accounts[0].ID)
	assert.Equal(t, int64(12), result.Accounts[0].FollowersCount)
	assert.Equal(t, []Tag{{Name: "kevin", MediaCount: 55}}, result.Tags)
	require.Len(t, result.Locations, 1)
	assert.Equal(t, "17326249", result.Locations[0].ID)

	tags, err := client.SearchTags(context.Background(), "#kevin")
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	accounts, err := client.SearchAccounts(context.Background(), "kevin")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	_, err = client.Search(context.Background(), "broken")
	assert.True(t, errs.IsMalformed(err))

	_, err = client.Search(context.Background(), "  ")
	assert.True(t, errs.IsInvalidArgument(err))
}

func TestSessionCookiesAreRefreshedBetweenCalls(t *testing.T) {
	var calls int32
	client, rec, _ := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return newResponse(http.StatusOK, nodesBody("tag", "c1", true, 1), "csrftoken=new; Path=/"), nil
		}
		return newResponse(http.StatusOK, nodesBody("tag", "", false, 2)), nil
	})

	s := NewSession("kevin")
	s.Cookies = map[string]string{"csrftoken": "old", "sessionid": "s1"}
	client.SetSession(s)

	_, _, err := client.TagMedia(context.Background(), "golang", 5, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, "old", rec.request(0).Header.Get("X-CSRFToken"))
	assert.Equal(t, "new", rec.request(1).Header.Get("X-CSRFToken"))
	assert.Equal(t, "csrftoken=new; sessionid=s1", rec.request(1).Header.Get("Cookie"))
	assert.Equal(t, "new", client.Session().CSRFToken())
}

func TestAnonymousClientKeepsNoCookies(t *testing.T) {
	client, rec, _ := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, nodesBody("tag", "c1", true, 1), "csrftoken=abc"), nil
	})

	_, err := client.TagMediaPage(context.Background(), "golang", Cursor{})
	require.NoError(t, err)
	_, err = client.TagMediaPage(context.Background(), "golang", Cursor{})
	require.NoError(t, err)

	assert.Empty(t, rec.request(1).Header.Get("Cookie"))
	assert.Nil(t, client.Session())
}

// countingLimiter records how often requests were paced
type countingLimiter struct {
	waits int32
}

func (l *countingLimiter) Allow() bool { return true }
func (l *countingLimiter) Reset()      {}
func (l *countingLimiter) Wait(ctx context.Context) error {
	atomic.AddInt32(&l.waits, 1)
	return ctx.Err()
}

func TestTransportDecoratesRequests(t *testing.T) {
	limiter := &countingLimiter{}
	client, rec, log := newTestClient(t, staticHandler(map[string]func() *http.Response{
		TagMediaURL("golang", ""):   jsonResponse(nodesBody("tag", "c1", true, 1)),
		TagMediaURL("golang", "c1"): jsonResponse(nodesBody("tag", "", false, 2)),
	}), WithRateLimiter(limiter), WithUserAgent("igfeed-test"))

	_, _, err := client.TagMedia(context.Background(), "golang", 5, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&limiter.waits))
	assert.Equal(t, "igfeed-test", rec.request(0).Header.Get("User-Agent"))
	assert.Len(t, log.GetMessagesByLevel("DEBUG"), 3, "two round trips and one pagination summary")
}
