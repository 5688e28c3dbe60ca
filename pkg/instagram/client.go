package instagram

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	errs "igfeed/pkg/errors"
	"igfeed/pkg/logger"
	"igfeed/pkg/ratelimit"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Doer performs one HTTP round trip. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// response is a fully read HTTP response
type response struct {
	code   int
	header http.Header
	body   []byte
}

// send performs one request and reads the whole body. A non-nil form is sent
// url-encoded as a POST body. Transport failures, including a cancelled ctx,
// are transient_or_unknown errors with code 0.
func send(ctx context.Context, d Doer, method, rawURL string, h http.Header, form url.Values) (*response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeInvalidArgument, err, "building request for %s", rawURL)
	}
	for key, values := range h {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := d.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeTransient, err, "%s %s", method, rawURL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeTransient, err, "reading response body").WithResponse(resp.StatusCode, nil)
	}

	header := resp.Header
	if header == nil {
		header = make(http.Header)
	}
	return &response{code: resp.StatusCode, header: header, body: data}, nil
}

// transport paces, decorates and logs every request the client sends
type transport struct {
	next      Doer
	limiter   ratelimit.Limiter
	userAgent string
	log       logger.Logger
}

func (t *transport) Do(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}

	start := time.Now()
	resp, err := t.next.Do(req)
	duration := time.Since(start)

	if err != nil {
		t.log.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, err
	}

	t.log.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// Client is the feed client. One Client holds the session of one identity;
// its methods may be called concurrently but page fetches within a call are
// strictly sequential.
type Client struct {
	http       Doer
	noRedirect Doer
	identity   Identity
	sessions   *SessionManager
	logger     logger.Logger

	mu      sync.Mutex
	session *Session
}

// Option configures a Client
type Option func(*options)

type options struct {
	httpClient *http.Client
	cache      SessionCache
	identity   Identity
	limiter    ratelimit.Limiter
	ttl        time.Duration
	userAgent  string
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithSessionCache persists login sessions in cache
func WithSessionCache(cache SessionCache) Option {
	return func(o *options) { o.cache = cache }
}

// WithIdentity sets the credentials Login uses
func WithIdentity(username, password string) Option {
	return func(o *options) { o.identity = Identity{Username: username, Password: password} }
}

// WithRateLimiter paces every request through limiter
func WithRateLimiter(limiter ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = limiter }
}

// WithSessionTTL treats cached sessions older than ttl as absent
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithUserAgent overrides the default browser user agent
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// NewClient creates a new feed client
func NewClient(timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	// Use default logger if none provided
	if log == nil {
		log = logger.GetLogger()
	}

	o := options{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	nr := *hc
	nr.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	log = log.WithField("component", "instagram")
	follow := &transport{next: hc, limiter: o.limiter, userAgent: o.userAgent, log: log}
	stay := &transport{next: &nr, limiter: o.limiter, userAgent: o.userAgent, log: log}

	return &Client{
		http:       follow,
		noRedirect: stay,
		identity:   o.identity,
		sessions:   NewSessionManager(follow, o.cache, o.ttl, log),
		logger:     log,
	}
}

// Login authenticates the configured identity and makes its session current
func (c *Client) Login(ctx context.Context, force bool) error {
	s, err := c.sessions.Login(ctx, c.identity, force)
	if err != nil {
		return err
	}
	c.SetSession(s)
	return nil
}

// IsLoggedIn probes whether the current session is still authenticated
func (c *Client) IsLoggedIn(ctx context.Context) (bool, error) {
	s := c.Session()
	ok, h, err := c.sessions.probe(ctx, s)
	if h != nil {
		c.absorbFor(s.Username, h)
	}
	return ok, err
}

// Session returns a copy of the current session, or nil when anonymous
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// SetSession replaces the current session. nil makes the client anonymous.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s.Clone()
}

// absorbFor folds response cookies into the current session, unless it was
// replaced by another user's session in the meantime
func (c *Client) absorbFor(username string, h http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Username == username {
		c.session.Absorb(h)
	}
}

func (c *Client) headers() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DeriveHeaders(c.session)
}

// absorb folds response cookies into the current session. Anonymous clients
// keep no cookie state.
func (c *Client) absorb(h http.Header) {
	if len(h.Values("Set-Cookie")) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Absorb(h)
	}
}

// get issues a session-bound GET and classifies the status
func (c *Client) get(ctx context.Context, op, rawURL string, want expectation) (*response, error) {
	d := c.http
	if want == expectRedirect {
		d = c.noRedirect
	}

	resp, err := send(ctx, d, http.MethodGet, rawURL, c.headers(), nil)
	if err != nil {
		return nil, err
	}
	c.absorb(resp.header)

	if err := classifyStatus(op, want, resp.code, resp.body); err != nil {
		c.logger.WarnWithFields("request failed", map[string]interface{}{
			"operation": op,
			"status":    resp.code,
			"kind":      string(errs.TypeOf(err)),
		})
		return nil, err
	}
	return resp, nil
}
