package spotilocal

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Signer turns a logical request path into a fully qualified, timestamped
// and authenticated URL. It performs no I/O.
type Signer struct {
	baseURL string
	now     func() time.Time

	mu   sync.Mutex
	last int64 // last timestamp handed out, in Unix milliseconds
}

// NewSigner creates a Signer for the given base URL, e.g.
// "https://localhost.spotilocal.com:4371".
func NewSigner(baseURL string) *Signer {
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Sign builds the URL for path. The ref, cors and cache-busting "_"
// parameters are always appended; oauth and csrf only when requested.
//
// Timestamps are Unix milliseconds and strictly increase across calls on the
// same Signer, so two calls never yield the same URL.
func (s *Signer) Sign(session *Session, path string, includeCredential, includeCSRF bool) (string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", ErrEmptyPath
	}
	if (includeCredential || includeCSRF) && session == nil {
		return "", ErrNotBootstrapped
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	var sb strings.Builder
	sb.WriteString(s.baseURL)
	sb.WriteByte('/')
	sb.WriteString(path)
	sb.WriteString(sep)
	sb.WriteString("ref=&cors=&_=")
	sb.WriteString(strconv.FormatInt(s.timestamp(), 10))
	if includeCredential {
		sb.WriteString("&oauth=")
		sb.WriteString(url.QueryEscape(session.OAuthToken))
	}
	if includeCSRF {
		sb.WriteString("&csrf=")
		sb.WriteString(url.QueryEscape(session.CSRFToken))
	}
	return sb.String(), nil
}

// timestamp returns the current time in milliseconds, bumped past the
// previous value if the clock has not advanced.
func (s *Signer) timestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}
