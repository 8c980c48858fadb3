package spotilocal

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultHost resolves to 127.0.0.1 and matches the certificate the
	// desktop client serves.
	DefaultHost = "localhost.spotilocal.com"

	// DefaultPort is the port the local endpoint listens on.
	DefaultPort = 4371

	// DefaultTokenURL is the public endpoint handing out OAuth tokens.
	DefaultTokenURL = "https://open.spotify.com/token"

	// DefaultOrigin is sent as Origin header; the endpoint rejects requests
	// from other origins.
	DefaultOrigin = "https://open.spotify.com"

	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Config holds client configuration.
type Config struct {
	Host              string       // Optional: target host (defaults to DefaultHost)
	Port              int          // Optional: target port (defaults to DefaultPort)
	BaseURL           string       // Optional: full base URL, overrides Host/Port (used for testing)
	TokenURL          string       // Optional: OAuth token endpoint (defaults to DefaultTokenURL)
	OAuthToken        string       // Optional: skip the token endpoint and use this credential
	TrustLoopbackCert bool         // Optional: skip certificate verification for loopback hosts
	HTTPClient        *http.Client // Optional: HTTP client (built from the fields above if nil)
	Logger            Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is a bootstrapped connection to the local endpoint. It is safe for
// concurrent use; the session it carries never changes.
type Client struct {
	httpClient *http.Client
	tokenURL   string
	signer     *Signer
	session    *Session
	logger     Logger
}

// NewClient builds a Client and bootstraps its session. A failed bootstrap
// returns a nil Client; there is no partially usable client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://" + net.JoinHostPort(host, strconv.Itoa(port))
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(host, cfg.TrustLoopbackCert)
	}

	c := &Client{
		httpClient: httpClient,
		tokenURL:   tokenURL,
		signer:     NewSigner(baseURL),
		logger:     cfg.Logger,
	}

	session, err := c.bootstrap(ctx, host, cfg.OAuthToken)
	if err != nil {
		httpClient.CloseIdleConnections()
		return nil, err
	}
	c.session = session

	return c, nil
}

// Session returns the bootstrapped session.
func (c *Client) Session() *Session {
	return c.session
}

// CloseIdleConnections releases pooled connections held by the client.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// newHTTPClient builds the default transport. Certificate verification is
// only relaxed for hosts that point at this machine.
func newHTTPClient(host string, trustLoopback bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if trustLoopback && isLoopbackHost(host) {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // loopback only
	}
	return &http.Client{
		Timeout:   defaultTimeout,
		Transport: transport,
	}
}

// isLoopbackHost reports whether host is a loopback literal, "localhost",
// or a spotilocal.com name (which resolves to 127.0.0.1).
func isLoopbackHost(host string) bool {
	h := strings.ToLower(strings.TrimSuffix(host, "."))
	if h == "localhost" || h == "spotilocal.com" || strings.HasSuffix(h, ".spotilocal.com") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("spotilocal.Client{base=%s}", c.signer.baseURL)
}
