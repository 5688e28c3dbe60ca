// Package instagram is a client for the platform's internal web endpoints.
//
// It emulates a browser session (cookies, CSRF token, login handshake),
// builds the endpoint URLs, pages through the account, hashtag, location and
// comment feeds and normalizes the three raw item layouts those endpoints
// return into one Media model.
//
// Every failure is a *errors.Error from igfeed/pkg/errors classified as
// not_found, auth_required, malformed_response, transient_or_unknown or
// invalid_argument. The client never retries.
//
// Example usage:
//
//	client := instagram.NewClient(30*time.Second, log,
//	    instagram.WithIdentity(user, pass),
//	    instagram.WithSessionCache(store),
//	)
//	if err := client.Login(ctx, false); err != nil {
//	    return err
//	}
//
//	media, next, err := client.TagMedia(ctx, "golang", 20, instagram.Cursor{})
//	if errors.IsNotFound(err) {
//	    // Handle missing tag
//	}
//	// Resume later from next
package instagram
