package instagram

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"igfeed/pkg/logger"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

// Helper function to create a response, with optional Set-Cookie values
func newResponse(statusCode int, body string, cookies ...string) *http.Response {
	h := make(http.Header)
	for _, c := range cookies {
		h.Add("Set-Cookie", c)
	}
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     h,
	}
}

// recorder records every request that reaches the transport
type recorder struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func (r *recorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, body)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recorder) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, req.URL.String())
	}
	return out
}

func (r *recorder) request(i int) *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[i]
}

func (r *recorder) body(i int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[i]
}

// newTestClient returns a client whose transport is handler
func newTestClient(t *testing.T, handler func(req *http.Request) (*http.Response, error), opts ...Option) (*Client, *recorder, *logger.TestLogger) {
	t.Helper()
	rec := &recorder{}
	log := logger.NewTestLogger()
	hc := &http.Client{
		Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			rec.record(req)
			return handler(req)
		}},
		Timeout: 5 * time.Second,
	}
	opts = append([]Option{WithHTTPClient(hc)}, opts...)
	return NewClient(5*time.Second, log, opts...), rec, log
}

// staticHandler serves responses keyed by URL and 404 for anything else
func staticHandler(routes map[string]func() *http.Response) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		if route, ok := routes[req.URL.String()]; ok {
			return route(), nil
		}
		return newResponse(http.StatusNotFound, ""), nil
	}
}

func jsonResponse(body string, cookies ...string) func() *http.Response {
	return func() *http.Response {
		return newResponse(http.StatusOK, body, cookies...)
	}
}
