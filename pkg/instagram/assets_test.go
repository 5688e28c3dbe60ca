package instagram

import (
	"context"
	"net/http"
	"testing"

	errs "igfeed/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAsset(t *testing.T) {
	const asset = "https://scontent.cdninstagram.com/v/t51/1_n.jpg?stp=dst"
	client, rec, _ := newTestClient(t, staticHandler(map[string]func() *http.Response{
		asset: jsonResponse("\xff\xd8jpeg-bytes"),
	}))
	s := NewSession("kevin")
	s.Cookies["sessionid"] = "s1"
	client.SetSession(s)

	data, err := client.FetchAsset(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, []byte("\xff\xd8jpeg-bytes"), data)

	require.Equal(t, 1, rec.count())
	assert.Empty(t, rec.request(0).Header.Get("Cookie"), "CDN requests carry no session")
	assert.Equal(t, DefaultUserAgent, rec.request(0).Header.Get("User-Agent"))
}

func TestFetchAssetFailures(t *testing.T) {
	client, rec, _ := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/gone.jpg" {
			return newResponse(http.StatusNotFound, "missing"), nil
		}
		return newResponse(http.StatusForbidden, "URL signature expired"), nil
	})

	_, err := client.FetchAsset(context.Background(), "https://cdn.example.com/gone.jpg")
	assert.True(t, errs.IsNotFound(err))

	_, err = client.FetchAsset(context.Background(), "https://cdn.example.com/expired.jpg")
	assert.Equal(t, errs.ErrorTypeTransient, errs.TypeOf(err))

	for _, bad := range []string{"", "/relative.jpg", "ftp://cdn.example.com/a.jpg", "https://"} {
		_, err = client.FetchAsset(context.Background(), bad)
		assert.True(t, errs.IsInvalidArgument(err), bad)
	}
	assert.Equal(t, 2, rec.count())
}
