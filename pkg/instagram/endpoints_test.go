package instagram

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointBuilders(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"account", AccountURL("kevin"), "https://www.instagram.com/kevin/?__a=1"},
		{"account media first page", AccountMediaURL("kevin", ""), "https://www.instagram.com/kevin/media/?max_id="},
		{"account media with cursor", AccountMediaURL("kevin", "1466_25025320"), "https://www.instagram.com/kevin/media/?max_id=1466_25025320"},
		{"tag", TagMediaURL("go", "QVFE"), "https://www.instagram.com/explore/tags/go/?__a=1&max_id=QVFE"},
		{"tag needs escaping", TagMediaURL("café au", ""), "https://www.instagram.com/explore/tags/caf%C3%A9%20au/?__a=1&max_id="},
		{"location", LocationMediaURL("17326249", "abc"), "https://www.instagram.com/explore/locations/17326249/?__a=1&max_id=abc"},
		{"media page", MediaPageURL("BRZlKsijN9J"), "https://www.instagram.com/p/BRZlKsijN9J/"},
		{"media page empty", MediaPageURL(""), ""},
		{"media json", MediaJSONURL("https://www.instagram.com/p/BRZlKsijN9J/"), "https://www.instagram.com/p/BRZlKsijN9J/?__a=1"},
		{"media json without slash", MediaJSONURL("https://www.instagram.com/p/BRZlKsijN9J"), "https://www.instagram.com/p/BRZlKsijN9J/?__a=1"},
		{"search", SearchURL("go lang&x"), "https://www.instagram.com/web/search/topsearch/?query=go+lang%26x"},
		{"follow", FollowURL("25025320"), "https://www.instagram.com/web/friendships/25025320/follow/"},
		{"login page", LoginPageURL(), "https://www.instagram.com/"},
		{"profile", ProfileURL("kevin"), "https://www.instagram.com/kevin/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestCommentsURL(t *testing.T) {
	raw := CommentsURL("BRZlKsijN9J", 50, "cursor==")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/graphql/query/", u.Path)

	q := u.Query()
	assert.Equal(t, CommentsQueryID, q.Get("query_id"))
	assert.Equal(t, "BRZlKsijN9J", q.Get("shortcode"))
	assert.Equal(t, "50", q.Get("first"))
	assert.Equal(t, "cursor==", q.Get("after"))
}

func TestUsernameFromLocation(t *testing.T) {
	assert.Equal(t, "kevin", UsernameFromLocation("https://www.instagram.com/kevin/"))
	assert.Equal(t, "kevin", UsernameFromLocation("/kevin"))
	assert.Equal(t, "kevin", UsernameFromLocation("https://www.instagram.com/kevin/?hl=en"))
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"testuser", true},
		{"test_user.123", true},
		{"", false},
		{"this_username_is_way_too_long_for_instagram", false},
		{"test-user", false},
		{"test@user", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidUsername(tt.username))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "kevin", SanitizeUsername("@kevin/ "))
	assert.Equal(t, "golang", SanitizeTag(" #golang"))
}
