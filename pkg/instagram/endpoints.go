package instagram

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// CDNURL is the image CDN the legacy image rewrite targets
	CDNURL = "https://scontent.cdninstagram.com/"

	// LoginURL is the credential submission endpoint
	LoginURL = BaseURL + "/accounts/login/ajax/"

	// CommentsQueryID is the GraphQL query id for paging comments by short code
	CommentsQueryID = "17852405266163336"

	// MaxCommentsPerRequest is the largest page the comments query accepts
	MaxCommentsPerRequest = 300
)

// LoginPageURL returns the landing page used for the anonymous bootstrap request
func LoginPageURL() string {
	return BaseURL + "/"
}

// AccountURL constructs the JSON lookup URL for an account
func AccountURL(username string) string {
	return fmt.Sprintf("%s/%s/?__a=1", BaseURL, url.PathEscape(username))
}

// AccountMediaURL constructs the legacy media feed URL for an account. maxID is
// the raw id of the last item of the previous page, or empty for the first page.
func AccountMediaURL(username, maxID string) string {
	return fmt.Sprintf("%s/%s/media/?max_id=%s", BaseURL, url.PathEscape(username), url.QueryEscape(maxID))
}

// TagMediaURL constructs the hashtag feed URL
func TagMediaURL(tag, endCursor string) string {
	return fmt.Sprintf("%s/explore/tags/%s/?__a=1&max_id=%s", BaseURL, url.PathEscape(tag), url.QueryEscape(endCursor))
}

// LocationMediaURL constructs the location feed URL
func LocationMediaURL(locationID, endCursor string) string {
	return fmt.Sprintf("%s/explore/locations/%s/?__a=1&max_id=%s", BaseURL, url.PathEscape(locationID), url.QueryEscape(endCursor))
}

// MediaPageURL constructs the public page URL for a short code
func MediaPageURL(shortCode string) string {
	if shortCode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortCode)
}

// MediaJSONURL returns the JSON variant of a media page URL
func MediaJSONURL(mediaURL string) string {
	return strings.TrimRight(mediaURL, "/") + "/?__a=1"
}

// CommentsURL constructs the comments query for up to first comments after
// the given cursor
func CommentsURL(shortCode string, first int, after string) string {
	params := url.Values{}
	params.Set("query_id", CommentsQueryID)
	params.Set("shortcode", shortCode)
	params.Set("first", strconv.Itoa(first))
	params.Set("after", after)

	return fmt.Sprintf("%s/graphql/query/?%s", BaseURL, params.Encode())
}

// SearchURL constructs the general search URL
func SearchURL(query string) string {
	return fmt.Sprintf("%s/web/search/topsearch/?query=%s", BaseURL, url.QueryEscape(query))
}

// FollowURL constructs the follow probe for an account id. The platform
// answers it with a redirect to the account's profile page.
func FollowURL(accountID string) string {
	return fmt.Sprintf("%s/web/friendships/%s/follow/", BaseURL, url.PathEscape(accountID))
}

// ProfileURL constructs the public profile URL for a user
func ProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// UsernameFromLocation extracts the last path segment of a redirect target
func UsernameFromLocation(location string) string {
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		location = u.Path
	}
	trimmed := strings.TrimRight(location, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}

// SanitizeTag strips a leading # and surrounding whitespace
func SanitizeTag(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "#")
}
