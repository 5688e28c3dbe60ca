package instagram

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	errs "igfeed/pkg/errors"
	"igfeed/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticFeed serves fixed pages in order, keyed by the cursor each page
// is requested with ("" for the first)
type syntheticFeed struct {
	pages   map[string]Page[Media]
	fetches []string
	failOn  string
}

func (f *syntheticFeed) fetch(_ context.Context, value string, _ int) (Page[Media], error) {
	f.fetches = append(f.fetches, value)
	if f.failOn != "" && value == f.failOn {
		return Page[Media]{}, errs.New(errs.ErrorTypeTransient, "boom")
	}
	page, ok := f.pages[value]
	if !ok {
		return Page[Media]{}, errors.New("unexpected cursor " + value)
	}
	return page, nil
}

func mediaPage(next string, hasMore bool, ids ...int) Page[Media] {
	items := make([]Media, 0, len(ids))
	for _, id := range ids {
		items = append(items, Media{ID: strconv.Itoa(id)})
	}
	return Page[Media]{Items: items, Next: Cursor{Scheme: SchemeEdge, Value: next, HasMore: hasMore}}
}

func ids(ms []Media) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func edgePager(f *syntheticFeed) pager[Media] {
	return pager[Media]{scheme: SchemeEdge, fetch: f.fetch, key: mediaKey, log: logger.NewTestLogger()}
}

func TestPaginateStopsWhenNoNextPage(t *testing.T) {
	feed := &syntheticFeed{pages: map[string]Page[Media]{
		"": mediaPage("c1", false, 1, 2, 3),
	}}

	got, next, err := edgePager(feed).collect(context.Background(), 10, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, ids(got))
	assert.Len(t, feed.fetches, 1)
	assert.False(t, next.HasMore)
}

func TestPaginateCountSmallerThanPage(t *testing.T) {
	feed := &syntheticFeed{pages: map[string]Page[Media]{
		"": mediaPage("c1", true, 1, 2, 3, 4, 5),
	}}

	got, next, err := edgePager(feed).collect(context.Background(), 2, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, ids(got))
	assert.Len(t, feed.fetches, 1)
	assert.Equal(t, Cursor{Scheme: SchemeEdge, Value: "c1", HasMore: true}, next)
}

func TestPaginateFetchesOnlyNeededPages(t *testing.T) {
	feed := &syntheticFeed{pages: map[string]Page[Media]{
		"":   mediaPage("c1", true, 1, 2),
		"c1": mediaPage("c2", true, 3, 4),
		"c2": mediaPage("c3", true, 5, 6),
	}}

	got, _, err := edgePager(feed).collect(context.Background(), 3, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, ids(got))
	assert.Equal(t, []string{"", "c1"}, feed.fetches)
}

func TestPaginateCycleGuard(t *testing.T) {
	feed := &syntheticFeed{pages: map[string]Page[Media]{
		"":   mediaPage("c1", true, 1, 2),
		"c1": mediaPage("c2", true, 3, 1, 4),
	}}

	got, next, err := edgePager(feed).collect(context.Background(), 10, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, ids(got))
	assert.Len(t, feed.fetches, 2)
	assert.False(t, next.HasMore)
}

func TestPaginateMaxIDHasNoCycleGuard(t *testing.T) {
	feed := &syntheticFeed{pages: map[string]Page[Media]{
		"":  {Items: []Media{{ID: "1"}, {ID: "2"}}, Next: Cursor{Scheme: SchemeMaxID, Value: "2", HasMore: true}},
		"2": {Items: []Media{{ID: "2"}, {ID: "3"}}, Next: Cursor{Scheme: SchemeMaxID, Value: "3", HasMore: false}},
	}}
	p := pager[Media]{scheme: SchemeMaxID, fetch: feed.fetch, log: logger.NewTestLogger()}

	got, _, err := p.collect(context.Background(), 10, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "2", "3"}, ids(got))
}

func TestPaginateEmptyFirstPage(t *testing.T) {
	feed := &syntheticFeed{pages: map[string]Page[Media]{
		"": mediaPage("", true),
	}}

	got, next, err := edgePager(feed).collect(context.Background(), 10, Cursor{})
	require.NoError(t, err)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Len(t, feed.fetches, 1)
	assert.False(t, next.HasMore)
}

func TestPaginateErrorDiscardsPartialResults(t *testing.T) {
	feed := &syntheticFeed{
		pages:  map[string]Page[Media]{"": mediaPage("c1", true, 1, 2)},
		failOn: "c1",
	}

	got, _, err := edgePager(feed).collect(context.Background(), 10, Cursor{})
	require.Error(t, err)

	assert.Nil(t, got)
	assert.Equal(t, errs.ErrorTypeTransient, errs.TypeOf(err))
}

func TestPaginateCursorRules(t *testing.T) {
	t.Run("exhausted cursor fetches nothing", func(t *testing.T) {
		feed := &syntheticFeed{}
		got, next, err := edgePager(feed).collect(context.Background(), 10, Cursor{Scheme: SchemeEdge, Value: "c9"})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, feed.fetches)
		assert.Equal(t, "c9", next.Value)
	})

	t.Run("foreign scheme is rejected", func(t *testing.T) {
		feed := &syntheticFeed{}
		_, _, err := edgePager(feed).collect(context.Background(), 10, Cursor{Scheme: SchemeMaxID, Value: "1", HasMore: true})
		assert.True(t, errs.IsInvalidArgument(err))
		assert.Empty(t, feed.fetches)
	})

	t.Run("non-positive count fetches nothing", func(t *testing.T) {
		feed := &syntheticFeed{}
		got, _, err := edgePager(feed).collect(context.Background(), 0, Cursor{})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, feed.fetches)
	})

	t.Run("resume continues from cursor", func(t *testing.T) {
		feed := &syntheticFeed{pages: map[string]Page[Media]{
			"c1": mediaPage("c2", false, 3, 4),
		}}
		got, _, err := edgePager(feed).collect(context.Background(), 10, Cursor{Scheme: SchemeEdge, Value: "c1", HasMore: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "4"}, ids(got))
		assert.Equal(t, []string{"c1"}, feed.fetches)
	})
}

func TestPaginateClampsToReportedTotal(t *testing.T) {
	first := mediaPage("c1", true, 1, 2)
	first.Total = 3
	second := mediaPage("c2", true, 3, 4)
	feed := &syntheticFeed{pages: map[string]Page[Media]{"": first, "c1": second}}

	p := edgePager(feed)
	p.clamp = true
	got, _, err := p.collect(context.Background(), 10, Cursor{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, ids(got))
	assert.Len(t, feed.fetches, 2)
}

func TestPaginateHugeCountDoesNotPreallocate(t *testing.T) {
	feed := &syntheticFeed{pages: map[string]Page[Media]{
		"": mediaPage("c1", false, 1, 2),
	}}

	for _, count := range []int{math.MaxInt, 1 << 40} {
		got, next, err := edgePager(feed).collect(context.Background(), count, Cursor{})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, ids(got))
		assert.False(t, next.HasMore)
	}
}
