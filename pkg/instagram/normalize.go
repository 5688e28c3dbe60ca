package instagram

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"

	errs "igfeed/pkg/errors"
	"igfeed/pkg/shortcode"
)

// Shape identifies which of the raw item layouts a payload uses
type Shape int

const (
	// ShapeLegacy is the flat api item of the account media feed
	ShapeLegacy Shape = iota
	// ShapeGraphQL is the shortcode_media object of a single media lookup
	ShapeGraphQL
	// ShapeNode is the node object of the hashtag and location feeds
	ShapeNode
)

func (s Shape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	case ShapeGraphQL:
		return "graphql"
	case ShapeNode:
		return "node"
	default:
		return "shape(" + strconv.Itoa(int(s)) + ")"
	}
}

// NormalizeMedia decodes one raw item of the given shape into a Media.
// Unknown keys are ignored. A payload that is not a JSON object, or whose id
// or short code cannot be decoded, is a malformed_response error.
func NormalizeMedia(shape Shape, raw json.RawMessage) (Media, error) {
	switch shape {
	case ShapeLegacy:
		var item legacyItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return Media{}, errs.Wrap(errs.ErrorTypeMalformedResponse, err, "decoding legacy media item")
		}
		return fromLegacy(item)
	case ShapeGraphQL:
		var item graphMedia
		if err := json.Unmarshal(raw, &item); err != nil {
			return Media{}, errs.Wrap(errs.ErrorTypeMalformedResponse, err, "decoding graphql media")
		}
		return fromGraphQL(item)
	case ShapeNode:
		var item nodeMedia
		if err := json.Unmarshal(raw, &item); err != nil {
			return Media{}, errs.Wrap(errs.ErrorTypeMalformedResponse, err, "decoding media node")
		}
		return fromNode(item)
	default:
		return Media{}, errs.InvalidArgument("unknown media shape %s", shape)
	}
}

// typeSignals collects the type-implying fields of a payload. resolve applies
// them in this fixed order, later ones overriding earlier ones:
//
//	explicit type tag (type / __typename)
//	display_src present          -> image
//	is_video true                -> video
//	non-empty carousel children  -> carousel
//
// Without any signal the media is an image.
type typeSignals struct {
	explicit   MediaType
	displaySrc bool
	isVideo    bool
	carousel   bool
}

func (ts typeSignals) resolve() MediaType {
	t := ts.explicit
	if ts.displaySrc {
		t = MediaTypeImage
	}
	if ts.isVideo {
		t = MediaTypeVideo
	}
	if ts.carousel {
		t = MediaTypeCarousel
	}
	if t == "" {
		t = MediaTypeImage
	}
	return t
}

func explicitType(tag string) MediaType {
	switch strings.ToLower(tag) {
	case "image", "graphimage":
		return MediaTypeImage
	case "video", "graphvideo":
		return MediaTypeVideo
	case "carousel":
		return MediaTypeCarousel
	case "sidecar", "graphsidecar":
		return MediaTypeSidecar
	default:
		return ""
	}
}

// finish applies the invariants shared by every shape: the type tag decides
// which of the video and carousel field sets survive, and id, short code and
// link agree with each other.
func finish(m Media, ts typeSignals, rawID, code string, video *Video, children []CarouselMedia) (Media, error) {
	m.Type = ts.resolve()
	if m.Type == MediaTypeVideo {
		if video == nil {
			video = &Video{}
		}
		m.Video = video
	}
	if m.Type == MediaTypeCarousel || m.Type == MediaTypeSidecar {
		m.Carousel = children
	}

	id, sc, err := identity(rawID, code)
	if err != nil {
		return Media{}, err
	}
	m.ID, m.ShortCode = id, sc
	if m.Link == "" {
		m.Link = MediaPageURL(m.ShortCode)
	}
	if m.OwnerID == "" && m.Owner != nil {
		m.OwnerID = m.Owner.ID
	}
	return m, nil
}

// identity derives the numeric id and short code from whichever the payload
// carries. When the id is present the short code is always its encoding.
func identity(rawID, code string) (string, string, error) {
	if rawID != "" {
		n, err := shortcode.ParseID(rawID)
		if err != nil {
			return "", "", errs.Wrap(errs.ErrorTypeMalformedResponse, err, "media id")
		}
		return strconv.FormatUint(n, 10), shortcode.Encode(n), nil
	}
	if code != "" {
		n, err := shortcode.Decode(code)
		if err != nil {
			return "", "", errs.Wrap(errs.ErrorTypeMalformedResponse, err, "media short code")
		}
		return strconv.FormatUint(n, 10), code, nil
	}
	return "", "", errs.New(errs.ErrorTypeMalformedResponse, "media has neither id nor short code")
}

// imageSet rewrites any url of an image into the four CDN size variants
func imageSet(src string) Images {
	if src == "" {
		return Images{}
	}
	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return Images{}
	}
	return Images{
		Thumbnail: CDNURL + "t/s150x150/" + name,
		Low:       CDNURL + "t/s320x320/" + name,
		Standard:  CDNURL + "t/s640x640/" + name,
		High:      CDNURL + "t/" + name,
	}
}

func fromLegacy(item legacyItem) (Media, error) {
	m := Media{
		CreatedTime:     int64(item.CreatedTime),
		Link:            item.Link,
		Caption:         string(item.Caption),
		CaptionIsEdited: item.CaptionIsEdited,
		IsAd:            item.IsAd,
		LikesCount:      int64(item.Likes.Count),
		CommentsCount:   int64(item.Comments.Count),
		Owner:           normalizeAccount(item.User),
		Location:        normalizeLocation(item.Location),
	}
	if item.Images != nil {
		m.Images = imageSet(item.Images.StandardResolution.URL)
	}

	children := make([]CarouselMedia, 0, len(item.CarouselMedia))
	for _, c := range item.CarouselMedia {
		child := CarouselMedia{Type: explicitType(c.Type)}
		if child.Type == "" {
			child.Type = MediaTypeImage
		}
		if c.Images != nil {
			child.Images = imageSet(c.Images.StandardResolution.URL)
		}
		if child.Type == MediaTypeVideo {
			child.Video = legacyVideo(c.Videos, c.VideoViews)
		}
		children = append(children, child)
	}

	ts := typeSignals{
		explicit: explicitType(item.Type),
		carousel: len(item.CarouselMedia) > 0,
	}
	return finish(m, ts, string(item.ID), item.Code, legacyVideo(item.Videos, item.VideoViews), children)
}

func legacyVideo(v *legacyVideos, views jsonInt) *Video {
	out := &Video{Views: int64(views)}
	if v != nil {
		out.LowResolutionURL = v.LowResolution.URL
		out.StandardResolutionURL = v.StandardResolution.URL
		out.LowBandwidthURL = v.LowBandwidth.URL
	}
	return out
}

func fromGraphQL(item graphMedia) (Media, error) {
	m := Media{
		CreatedTime:     int64(item.TakenAtTimestamp),
		CaptionIsEdited: item.CaptionIsEdited,
		IsAd:            item.IsAd,
		Images:          imageSet(item.DisplayURL),
		CommentsCount:   int64(item.EdgeMediaToComment.Count),
		Owner:           normalizeAccount(item.Owner),
		Location:        normalizeLocation(item.Location),
	}
	if len(item.EdgeMediaToCaption.Edges) > 0 {
		m.Caption = item.EdgeMediaToCaption.Edges[0].Node.Text
	}
	switch {
	case item.EdgeMediaPreviewLike != nil:
		m.LikesCount = int64(item.EdgeMediaPreviewLike.Count)
	case item.EdgeLikedBy != nil:
		m.LikesCount = int64(item.EdgeLikedBy.Count)
	}

	children := make([]CarouselMedia, 0, len(item.EdgeSidecarChildren.Edges))
	for _, e := range item.EdgeSidecarChildren.Edges {
		child := CarouselMedia{
			Type:   typeSignals{explicit: explicitType(e.Node.TypeName), isVideo: e.Node.IsVideo}.resolve(),
			Images: imageSet(e.Node.DisplayURL),
		}
		if child.Type == MediaTypeVideo {
			child.Video = &Video{StandardResolutionURL: e.Node.VideoURL, Views: int64(e.Node.VideoViewCount)}
		}
		children = append(children, child)
	}

	ts := typeSignals{
		explicit: explicitType(item.TypeName),
		isVideo:  item.IsVideo,
		carousel: len(children) > 0,
	}
	video := &Video{StandardResolutionURL: item.VideoURL, Views: int64(item.VideoViewCount)}
	return finish(m, ts, string(item.ID), item.ShortCode, video, children)
}

func fromNode(item nodeMedia) (Media, error) {
	m := Media{
		CreatedTime:   int64(item.Date),
		Caption:       string(item.Caption),
		IsAd:          item.IsAd,
		Images:        imageSet(item.DisplaySrc),
		LikesCount:    int64(item.Likes.Count),
		CommentsCount: int64(item.Comments.Count),
		Owner:         normalizeAccount(item.Owner),
	}
	ts := typeSignals{
		displaySrc: item.DisplaySrc != "",
		isVideo:    item.IsVideo,
	}
	video := &Video{StandardResolutionURL: item.VideoURL, Views: int64(item.VideoViews)}
	return finish(m, ts, string(item.ID), item.Code, video, nil)
}

func normalizeAccount(r *rawAccount) *Account {
	if r == nil {
		return nil
	}
	a := &Account{
		ID:              string(r.ID),
		Username:        r.Username,
		FullName:        r.FullName,
		Biography:       r.Biography,
		ExternalURL:     r.ExternalURL,
		ProfilePicURL:   r.ProfilePicURL,
		ProfilePicURLHD: r.ProfilePicURLHD,
		IsPrivate:       r.IsPrivate,
		IsVerified:      r.IsVerified,
		FollowersCount:  firstCount(r.FollowedBy, r.EdgeFollowedBy),
		FollowingCount:  firstCount(r.Follows, r.EdgeFollow),
		MediaCount:      firstCount(r.Media, r.EdgeMedia),
	}
	if a.ID == "" {
		a.ID = string(r.PK)
	}
	if r.FollowerCount != nil && a.FollowersCount == 0 {
		a.FollowersCount = int64(*r.FollowerCount)
	}
	return a
}

func firstCount(counts ...*rawCount) int64 {
	for _, c := range counts {
		if c != nil {
			return int64(c.Count)
		}
	}
	return 0
}

func normalizeLocation(r *rawLocation) *Location {
	if r == nil {
		return nil
	}
	l := &Location{
		ID:   string(r.ID),
		Name: r.Name,
		Slug: r.Slug,
		Lat:  r.Lat,
		Lng:  r.Lng,
	}
	if l.ID == "" {
		l.ID = string(r.PK)
	}
	if l.ID == "" && l.Name == "" {
		return nil
	}
	return l
}

func normalizeComment(r rawComment) Comment {
	return Comment{
		ID:          string(r.ID),
		Text:        r.Text,
		CreatedTime: int64(r.CreatedAt),
		Author:      normalizeAccount(r.Owner),
	}
}

func normalizeTag(r rawTag) Tag {
	return Tag{Name: r.Name, MediaCount: int64(r.MediaCount)}
}
