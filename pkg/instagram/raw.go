package instagram

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// jsonString accepts a JSON string or number. Ids arrive as either depending
// on the endpoint.
type jsonString string

func (s *jsonString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = jsonString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = jsonString(n.String())
	return nil
}

// jsonInt accepts a JSON number or a numeric string. An empty string is 0.
type jsonInt int64

func (n *jsonInt) UnmarshalJSON(b []byte) error {
	var s jsonString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*n = jsonInt(v)
	return nil
}

// rawCaption accepts the legacy {"text": "..."} object or a bare string
type rawCaption string

func (c *rawCaption) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var v struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*c = rawCaption(v.Text)
		return nil
	}
	var s jsonString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*c = rawCaption(s)
	return nil
}

type rawCount struct {
	Count jsonInt `json:"count"`
}

type rawURL struct {
	URL string `json:"url"`
}

type rawPageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// rawAccount covers the account keys of every endpoint: the profile lookup,
// media owners, comment authors and search hits.
type rawAccount struct {
	ID              jsonString `json:"id"`
	PK              jsonString `json:"pk"`
	Username        string     `json:"username"`
	FullName        string     `json:"full_name"`
	Biography       string     `json:"biography"`
	ExternalURL     string     `json:"external_url"`
	ProfilePicURL   string     `json:"profile_pic_url"`
	ProfilePicURLHD string     `json:"profile_pic_url_hd"`
	IsPrivate       bool       `json:"is_private"`
	IsVerified      bool       `json:"is_verified"`

	FollowedBy     *rawCount `json:"followed_by"`
	Follows        *rawCount `json:"follows"`
	Media          *rawCount `json:"media"`
	EdgeFollow     *rawCount `json:"edge_follow"`
	EdgeFollowedBy *rawCount `json:"edge_followed_by"`
	EdgeMedia      *rawCount `json:"edge_owner_to_timeline_media"`

	FollowerCount *jsonInt `json:"follower_count"`
}

type rawLocation struct {
	ID   jsonString `json:"id"`
	PK   jsonString `json:"pk"`
	Name string     `json:"name"`
	Slug string     `json:"slug"`
	Lat  *float64   `json:"lat"`
	Lng  *float64   `json:"lng"`
}

type rawTag struct {
	Name       string  `json:"name"`
	MediaCount jsonInt `json:"media_count"`
}

// Legacy flat api shape (account media feed)

type legacyImages struct {
	Thumbnail          rawURL `json:"thumbnail"`
	LowResolution      rawURL `json:"low_resolution"`
	StandardResolution rawURL `json:"standard_resolution"`
}

type legacyVideos struct {
	LowResolution      rawURL `json:"low_resolution"`
	StandardResolution rawURL `json:"standard_resolution"`
	LowBandwidth       rawURL `json:"low_bandwidth"`
}

type legacyCarouselItem struct {
	Type       string        `json:"type"`
	Images     *legacyImages `json:"images"`
	Videos     *legacyVideos `json:"videos"`
	VideoViews jsonInt       `json:"video_views"`
}

type legacyItem struct {
	ID              jsonString           `json:"id"`
	Code            string               `json:"code"`
	Type            string               `json:"type"`
	CreatedTime     jsonInt              `json:"created_time"`
	Link            string               `json:"link"`
	Caption         rawCaption           `json:"caption"`
	CaptionIsEdited bool                 `json:"caption_is_edited"`
	IsAd            bool                 `json:"is_ad"`
	Likes           rawCount             `json:"likes"`
	Comments        rawCount             `json:"comments"`
	Images          *legacyImages        `json:"images"`
	Videos          *legacyVideos        `json:"videos"`
	VideoViews      jsonInt              `json:"video_views"`
	CarouselMedia   []legacyCarouselItem `json:"carousel_media"`
	Location        *rawLocation         `json:"location"`
	User            *rawAccount          `json:"user"`
}

type legacyPage struct {
	Items         []json.RawMessage `json:"items"`
	MoreAvailable bool              `json:"more_available"`
}

// GraphQL shortcode_media / edge shape (single media lookup)

type graphEdges[T any] struct {
	Count    jsonInt     `json:"count"`
	PageInfo rawPageInfo `json:"page_info"`
	Edges    []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

type graphText struct {
	Text string `json:"text"`
}

type graphChild struct {
	TypeName       string  `json:"__typename"`
	DisplayURL     string  `json:"display_url"`
	IsVideo        bool    `json:"is_video"`
	VideoURL       string  `json:"video_url"`
	VideoViewCount jsonInt `json:"video_view_count"`
}

type graphMedia struct {
	ID                   jsonString             `json:"id"`
	ShortCode            string                 `json:"shortcode"`
	TypeName             string                 `json:"__typename"`
	DisplayURL           string                 `json:"display_url"`
	IsVideo              bool                   `json:"is_video"`
	VideoURL             string                 `json:"video_url"`
	VideoViewCount       jsonInt                `json:"video_view_count"`
	TakenAtTimestamp     jsonInt                `json:"taken_at_timestamp"`
	CaptionIsEdited      bool                   `json:"caption_is_edited"`
	IsAd                 bool                   `json:"is_ad"`
	EdgeMediaToCaption   graphEdges[graphText]  `json:"edge_media_to_caption"`
	EdgeMediaToComment   rawCount               `json:"edge_media_to_comment"`
	EdgeMediaPreviewLike *rawCount              `json:"edge_media_preview_like"`
	EdgeLikedBy          *rawCount              `json:"edge_liked_by"`
	EdgeSidecarChildren  graphEdges[graphChild] `json:"edge_sidecar_to_children"`
	Owner                *rawAccount            `json:"owner"`
	Location             *rawLocation           `json:"location"`
}

// Hashtag / location "node" shape (tag and location feeds)

type nodeMedia struct {
	ID         jsonString  `json:"id"`
	Code       string      `json:"code"`
	Date       jsonInt     `json:"date"`
	DisplaySrc string      `json:"display_src"`
	Caption    rawCaption  `json:"caption"`
	Comments   rawCount    `json:"comments"`
	Likes      rawCount    `json:"likes"`
	Owner      *rawAccount `json:"owner"`
	IsVideo    bool        `json:"is_video"`
	VideoURL   string      `json:"video_url"`
	VideoViews jsonInt     `json:"video_views"`
	IsAd       bool        `json:"is_ad"`
}

type nodeFeed struct {
	Count    jsonInt           `json:"count"`
	Nodes    []json.RawMessage `json:"nodes"`
	PageInfo rawPageInfo       `json:"page_info"`
}

type tagPage struct {
	Name     string   `json:"name"`
	Media    nodeFeed `json:"media"`
	TopPosts nodeFeed `json:"top_posts"`
}

type locationPage struct {
	rawLocation
	Media    nodeFeed `json:"media"`
	TopPosts nodeFeed `json:"top_posts"`
}

// Comments query

type rawComment struct {
	ID        jsonString  `json:"id"`
	Text      string      `json:"text"`
	CreatedAt jsonInt     `json:"created_at"`
	Owner     *rawAccount `json:"owner"`
}

type commentsPage struct {
	EdgeMediaToComment graphEdges[rawComment] `json:"edge_media_to_comment"`
}

// General search

type searchPage struct {
	Status string `json:"status"`
	Users  []struct {
		User rawAccount `json:"user"`
	} `json:"users"`
	Hashtags []struct {
		Hashtag rawTag `json:"hashtag"`
	} `json:"hashtags"`
	Places []struct {
		Place struct {
			Location rawLocation `json:"location"`
		} `json:"place"`
	} `json:"places"`
}
