package instagram

import (
	"context"
	"net/http"
	"net/url"

	errs "igfeed/pkg/errors"
)

// FetchAsset downloads the bytes of a media file (an image or video URL taken
// from a Media). CDN requests carry no session cookies but are paced and
// decorated like every other request.
func (c *Client) FetchAsset(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.InvalidArgument("asset URL %q is not an absolute http(s) URL", rawURL)
	}

	resp, err := send(ctx, c.http, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus("fetch asset", expectOK, resp.code, nil); err != nil {
		return nil, err
	}
	return resp.body, nil
}
