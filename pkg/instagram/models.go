package instagram

// MediaType tags which field set of a Media is populated
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeSidecar  MediaType = "sidecar"
	MediaTypeCarousel MediaType = "carousel"
)

// Images holds the four image resolutions every media carries
type Images struct {
	Thumbnail string `json:"thumbnail" yaml:"thumbnail"`
	Low       string `json:"low" yaml:"low"`
	Standard  string `json:"standard" yaml:"standard"`
	High      string `json:"high" yaml:"high"`
}

// Video holds the video-only fields of a media
type Video struct {
	LowResolutionURL      string `json:"low_resolution_url,omitempty" yaml:"low_resolution_url,omitempty"`
	StandardResolutionURL string `json:"standard_resolution_url,omitempty" yaml:"standard_resolution_url,omitempty"`
	LowBandwidthURL       string `json:"low_bandwidth_url,omitempty" yaml:"low_bandwidth_url,omitempty"`
	Views                 int64  `json:"views" yaml:"views"`
}

// Media is a single post, whichever endpoint it was read from
type Media struct {
	ID              string          `json:"id" yaml:"id"`
	ShortCode       string          `json:"short_code" yaml:"short_code"`
	Type            MediaType       `json:"type" yaml:"type"`
	CreatedTime     int64           `json:"created_time" yaml:"created_time"`
	Link            string          `json:"link" yaml:"link"`
	Caption         string          `json:"caption,omitempty" yaml:"caption,omitempty"`
	CaptionIsEdited bool            `json:"caption_is_edited,omitempty" yaml:"caption_is_edited,omitempty"`
	IsAd            bool            `json:"is_ad,omitempty" yaml:"is_ad,omitempty"`
	Images          Images          `json:"images" yaml:"images"`
	Video           *Video          `json:"video,omitempty" yaml:"video,omitempty"`
	LikesCount      int64           `json:"likes_count" yaml:"likes_count"`
	CommentsCount   int64           `json:"comments_count" yaml:"comments_count"`
	OwnerID         string          `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	Owner           *Account        `json:"owner,omitempty" yaml:"owner,omitempty"`
	Location        *Location       `json:"location,omitempty" yaml:"location,omitempty"`
	Carousel        []CarouselMedia `json:"carousel,omitempty" yaml:"carousel,omitempty"`
}

// CarouselMedia is one child of a carousel post
type CarouselMedia struct {
	Type   MediaType `json:"type" yaml:"type"`
	Images Images    `json:"images" yaml:"images"`
	Video  *Video    `json:"video,omitempty" yaml:"video,omitempty"`
}

// Account is a user profile. Accounts embedded in a Media or Comment carry
// only the fields that payload included.
type Account struct {
	ID              string `json:"id" yaml:"id"`
	Username        string `json:"username" yaml:"username"`
	FullName        string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Biography       string `json:"biography,omitempty" yaml:"biography,omitempty"`
	ExternalURL     string `json:"external_url,omitempty" yaml:"external_url,omitempty"`
	ProfilePicURL   string `json:"profile_pic_url,omitempty" yaml:"profile_pic_url,omitempty"`
	ProfilePicURLHD string `json:"profile_pic_url_hd,omitempty" yaml:"profile_pic_url_hd,omitempty"`
	IsPrivate       bool   `json:"is_private" yaml:"is_private"`
	IsVerified      bool   `json:"is_verified" yaml:"is_verified"`
	FollowersCount  int64  `json:"followers_count" yaml:"followers_count"`
	FollowingCount  int64  `json:"following_count" yaml:"following_count"`
	MediaCount      int64  `json:"media_count" yaml:"media_count"`
}

// Comment is a single comment on a media
type Comment struct {
	ID          string   `json:"id" yaml:"id"`
	Text        string   `json:"text" yaml:"text"`
	CreatedTime int64    `json:"created_time" yaml:"created_time"`
	Author      *Account `json:"author,omitempty" yaml:"author,omitempty"`
}

// Location is a place media can be tagged with
type Location struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
	Slug string   `json:"slug,omitempty" yaml:"slug,omitempty"`
	Lat  *float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty" yaml:"lng,omitempty"`
}

// Tag is a hashtag with its post count
type Tag struct {
	Name       string `json:"name" yaml:"name"`
	MediaCount int64  `json:"media_count" yaml:"media_count"`
}

// SearchResult groups the hits of a general search
type SearchResult struct {
	Accounts  []Account  `json:"accounts" yaml:"accounts"`
	Tags      []Tag      `json:"tags" yaml:"tags"`
	Locations []Location `json:"locations" yaml:"locations"`
}
