package spotilocal

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const csrfPath = "simplecsrf/token.json"

// Session is the credential pair every authenticated request carries.
// It is immutable once bootstrapped.
type Session struct {
	OAuthToken string // Access credential from the public token endpoint
	CSRFToken  string // Anti-forgery token issued by the local endpoint
	Host       string // Target host the session is bound to

	Version       string // Helper protocol version reported with the CSRF token
	ClientVersion string // Desktop client version reported with the CSRF token
	Running       bool   // Whether the desktop client was running at bootstrap
}

// bootstrap obtains the OAuth credential (unless one is preset) and then the
// CSRF token. Each step fails independently; nothing is retried.
func (c *Client) bootstrap(ctx context.Context, host, presetOAuth string) (*Session, error) {
	oauth := strings.TrimSpace(presetOAuth)
	if oauth == "" {
		var err error
		oauth, err = c.fetchOAuthToken(ctx)
		if err != nil {
			return nil, err
		}
	}

	doc, err := c.fetchCSRF(ctx)
	if err != nil {
		return nil, err
	}

	c.logDebugf("spotilocal: session ready (client %s)", doc.ClientVersion)
	return &Session{
		OAuthToken:    oauth,
		CSRFToken:     doc.Token,
		Host:          host,
		Version:       doc.Version,
		ClientVersion: doc.ClientVersion,
		Running:       doc.Running,
	}, nil
}

// fetchOAuthToken reads the "t" field from the public token endpoint.
func (c *Client) fetchOAuthToken(ctx context.Context) (string, error) {
	c.logDebugf("spotilocal: oauth: GET %s", c.tokenURL)

	header := http.Header{}
	header.Set("User-Agent", defaultUserAgent)
	body, err := c.get(ctx, "oauth", c.tokenURL, header)
	if err != nil {
		return "", err
	}

	var doc oauthDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", &CredentialError{Reason: "malformed token document", Err: err}
	}
	if doc.T == nil || strings.TrimSpace(*doc.T) == "" {
		return "", &CredentialError{Reason: "could not find the OAuth token"}
	}
	return *doc.T, nil
}

// fetchCSRF requests the anti-forgery token. The request is signed without
// credential and without CSRF parameters.
func (c *Client) fetchCSRF(ctx context.Context) (*csrfDocument, error) {
	body, err := c.call(ctx, "csrf", csrfPath, false, false)
	if err != nil {
		return nil, err
	}

	doc, err := decodeSingle[csrfDocument]("csrf", "tokens", body)
	if err != nil {
		return nil, err
	}
	if doc.Error != nil {
		return nil, remoteErr("csrf", doc.Error)
	}
	if strings.TrimSpace(doc.Token) == "" {
		return nil, &ProtocolError{Op: "csrf", Reason: "the token field was empty"}
	}
	return doc, nil
}
