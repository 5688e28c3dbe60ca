package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	errs "igfeed/pkg/errors"
	"igfeed/pkg/logger"
	"igfeed/pkg/sessions"
)

// Cookie names the client reads
const (
	CookieCSRFToken = "csrftoken"
	CookieSessionID = "sessionid"
	CookieMID       = "mid"
	CookieUserID    = "ds_user_id"
)

// Identity is the account a session logs in as
type Identity struct {
	Username string
	Password string `json:"-"`
}

// SessionCache persists sessions by username. sessions.Store satisfies it.
type SessionCache interface {
	Get(ctx context.Context, username string) (*sessions.Record, error)
	Put(ctx context.Context, record *sessions.Record) error
}

// Session is the cookie state of one identity
type Session struct {
	Username string
	Cookies  map[string]string
	SavedAt  time.Time
}

// NewSession returns an empty session for username
func NewSession(username string) *Session {
	return &Session{Username: username, Cookies: make(map[string]string)}
}

// Get returns the value of a cookie, or "" when unset
func (s *Session) Get(name string) string {
	if s == nil {
		return ""
	}
	return s.Cookies[name]
}

// CSRFToken returns the session's anti-forgery token
func (s *Session) CSRFToken() string {
	return s.Get(CookieCSRFToken)
}

// HasSessionID reports whether the session carries a login cookie
func (s *Session) HasSessionID() bool {
	return s.Get(CookieSessionID) != ""
}

// Absorb merges every Set-Cookie of a response into the session. Attributes
// are ignored and a repeated name overwrites the previous value. An empty
// value, bare or quoted, removes the cookie.
func (s *Session) Absorb(h http.Header) {
	if s.Cookies == nil {
		s.Cookies = make(map[string]string)
	}
	for name, value := range ParseSetCookies(h.Values("Set-Cookie")) {
		if value == "" {
			delete(s.Cookies, name)
			continue
		}
		s.Cookies[name] = value
	}
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	return fromRecord(s.record())
}

func (s *Session) record() *sessions.Record {
	r := &sessions.Record{Username: s.Username, SavedAt: s.SavedAt, Cookies: s.Cookies}
	return r.Clone()
}

func fromRecord(r *sessions.Record) *Session {
	r = r.Clone()
	if r.Cookies == nil {
		r.Cookies = make(map[string]string)
	}
	return &Session{Username: r.Username, Cookies: r.Cookies, SavedAt: r.SavedAt}
}

// ParseSetCookies extracts the name=value pair of each raw Set-Cookie value
func ParseSetCookies(values []string) map[string]string {
	cookies := make(map[string]string, len(values))
	for _, raw := range values {
		pair, _, _ := strings.Cut(raw, ";")
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if value == `""` {
			value = ""
		}
		cookies[name] = value
	}
	return cookies
}

// DeriveHeaders builds the cookie, referer and x-csrftoken headers for a
// session. A nil or empty session yields an empty header set.
func DeriveHeaders(s *Session) http.Header {
	h := make(http.Header)
	if s == nil || len(s.Cookies) == 0 {
		return h
	}

	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+s.Cookies[name])
	}

	h.Set("Cookie", strings.Join(pairs, "; "))
	h.Set("Referer", BaseURL+"/")
	h.Set("X-CSRFToken", s.CSRFToken())
	return h
}

// SessionManager drives the login handshake for one client and keeps the
// resulting sessions in an optional cache
type SessionManager struct {
	doer  Doer
	cache SessionCache
	ttl   time.Duration
	now   func() time.Time
	log   logger.Logger
}

// NewSessionManager creates a manager that sends requests through doer. cache
// may be nil, in which case sessions live only in memory.
func NewSessionManager(doer Doer, cache SessionCache, ttl time.Duration, log logger.Logger) *SessionManager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &SessionManager{doer: doer, cache: cache, ttl: ttl, now: time.Now, log: log}
}

// Login returns an authenticated session for id. Unless force is set, a
// cached unexpired session that still passes IsLoggedIn is reused without
// logging in again.
func (m *SessionManager) Login(ctx context.Context, id Identity, force bool) (*Session, error) {
	if id.Username == "" || id.Password == "" {
		return nil, errs.Wrap(errs.ErrorTypeInvalidArgument, errs.ErrMissingCredentials, "login")
	}

	log := m.log.WithField("username", id.Username)

	if !force {
		cached, err := m.cached(ctx, id.Username)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			ok, err := m.IsLoggedIn(ctx, cached)
			if err != nil {
				return nil, err
			}
			if ok {
				log.Debug("reusing cached session")
				return cached, nil
			}
			log.Debug("cached session is no longer valid")
		}
	}

	session := NewSession(id.Username)

	resp, err := send(ctx, m.doer, http.MethodGet, LoginPageURL(), nil, nil)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus("login bootstrap", expectOK, resp.code, resp.body); err != nil {
		return nil, err
	}
	session.Absorb(resp.header)
	mid := session.Get(CookieMID)

	form := url.Values{}
	form.Set("username", id.Username)
	form.Set("password", id.Password)

	resp, err = send(ctx, m.doer, http.MethodPost, LoginURL, DeriveHeaders(session), form)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus("login", expectLogin, resp.code, resp.body); err != nil {
		log.WarnWithFields("login rejected", map[string]interface{}{"status": resp.code})
		return nil, err
	}

	var result struct {
		Authenticated *bool `json:"authenticated"`
	}
	if json.Unmarshal(resp.body, &result) == nil && result.Authenticated != nil && !*result.Authenticated {
		log.Warn("login rejected: not authenticated")
		return nil, errs.New(errs.ErrorTypeAuthRequired, "login: credentials were not accepted").WithResponse(resp.code, resp.body)
	}

	session.Absorb(resp.header)
	if mid != "" {
		session.Cookies[CookieMID] = mid
	}
	session.SavedAt = m.now()

	if m.cache != nil {
		if err := m.cache.Put(ctx, session.record()); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeTransient, err, "saving session")
		}
	}

	log.Info("logged in")
	return session, nil
}

// cached returns the unexpired cached session for username, or nil
func (m *SessionManager) cached(ctx context.Context, username string) (*Session, error) {
	if m.cache == nil {
		return nil, nil
	}
	record, err := m.cache.Get(ctx, username)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeTransient, err, "loading cached session")
	}
	if record == nil || record.Expired(m.ttl, m.now()) {
		return nil, nil
	}
	return fromRecord(record), nil
}

// IsLoggedIn probes the landing page with the session's cookies. It returns
// false without a request when the session has no login cookie, and true only
// when the probe succeeds and sets an authenticated user id cookie. Cookies
// set by the probe are absorbed into s.
func (m *SessionManager) IsLoggedIn(ctx context.Context, s *Session) (bool, error) {
	ok, h, err := m.probe(ctx, s)
	if h != nil {
		s.Absorb(h)
	}
	return ok, err
}

// probe asks the login page whether s is authenticated without touching s.
// The response header is returned only for a 2xx answer.
func (m *SessionManager) probe(ctx context.Context, s *Session) (bool, http.Header, error) {
	if s == nil || !s.HasSessionID() {
		return false, nil, nil
	}

	resp, err := send(ctx, m.doer, http.MethodGet, LoginPageURL(), DeriveHeaders(s), nil)
	if err != nil {
		return false, nil, err
	}
	if resp.code < 200 || resp.code >= 300 {
		return false, nil, nil
	}
	return ParseSetCookies(resp.header.Values("Set-Cookie"))[CookieUserID] != "", resp.header, nil
}
