package spotilocal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeHelper serves the token endpoint and the local helper endpoints from a
// single httptest server.
type fakeHelper struct {
	token  string // body of /token
	csrf   string // body of /simplecsrf/token.json
	status string // body of /remote/status.json
	other  func(w http.ResponseWriter, r *http.Request)

	statusQuery string // raw query of the last status request
}

func (f *fakeHelper) start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_, _ = w.Write([]byte(f.token))
		case "/simplecsrf/token.json":
			_, _ = w.Write([]byte(f.csrf))
		case "/remote/status.json":
			f.statusQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(f.status))
		default:
			if f.other != nil {
				f.other(w, r)
				return
			}
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, f *fakeHelper) (*Client, error) {
	t.Helper()
	server := f.start(t)
	return NewClient(context.Background(), Config{
		BaseURL:  server.URL,
		TokenURL: server.URL + "/token",
	})
}

func TestNewClient_Bootstrap(t *testing.T) {
	client, err := newTestClient(t, &fakeHelper{
		token: `{"t": "oauth-123"}`,
		csrf:  `{"token": "csrf-456", "version": "1", "client_version": "1.0.0.1", "running": true}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := client.Session()
	if s.OAuthToken != "oauth-123" {
		t.Errorf("expected oauth token %q, got %q", "oauth-123", s.OAuthToken)
	}
	if s.CSRFToken != "csrf-456" {
		t.Errorf("expected csrf token %q, got %q", "csrf-456", s.CSRFToken)
	}
	if s.ClientVersion != "1.0.0.1" || !s.Running {
		t.Errorf("unexpected session metadata: %+v", s)
	}
}

func TestNewClient_CSRFRequestIsUnauthenticated(t *testing.T) {
	var query string
	f := &fakeHelper{token: `{"t": "oauth-123"}`}
	_ = f
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			_, _ = w.Write([]byte(`{"t": "oauth"}`))
			return
		}
		query = r.URL.RawQuery
		if origin := r.Header.Get("Origin"); origin != DefaultOrigin {
			t.Errorf("expected Origin %q, got %q", DefaultOrigin, origin)
		}
		_, _ = w.Write([]byte(`{"token": "csrf"}`))
	}))
	defer server.Close()

	_, err := NewClient(context.Background(), Config{BaseURL: server.URL, TokenURL: server.URL + "/token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(query, "oauth=") || strings.Contains(query, "csrf=") {
		t.Errorf("csrf request must not carry tokens, got query %q", query)
	}
	if !strings.HasPrefix(query, "ref=&cors=&_=") {
		t.Errorf("expected signed query, got %q", query)
	}
}

func TestNewClient_PresetOAuthSkipsTokenEndpoint(t *testing.T) {
	client, err := NewClient(context.Background(), Config{
		BaseURL:    (&fakeHelper{csrf: `{"token": "csrf"}`}).start(t).URL,
		TokenURL:   "http://127.0.0.1:1/unreachable",
		OAuthToken: "preset",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Session().OAuthToken != "preset" {
		t.Errorf("expected preset oauth token, got %q", client.Session().OAuthToken)
	}
}

func TestNewClient_BootstrapErrors(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		csrf        string
		check       func(t *testing.T, err error)
		errContains string
	}{
		{
			name:  "missing t field",
			token: `{"other": "x"}`,
			csrf:  `{"token": "csrf"}`,
			check: func(t *testing.T, err error) {
				var target *CredentialError
				if !errors.As(err, &target) {
					t.Errorf("expected CredentialError, got %T", err)
				}
			},
		},
		{
			name:  "token endpoint returns garbage",
			token: `<html>`,
			csrf:  `{"token": "csrf"}`,
			check: func(t *testing.T, err error) {
				var target *CredentialError
				if !errors.As(err, &target) {
					t.Errorf("expected CredentialError, got %T", err)
				}
			},
		},
		{
			name:  "empty csrf array",
			token: `{"t": "oauth"}`,
			csrf:  `[]`,
			check: func(t *testing.T, err error) {
				var target *ProtocolError
				if !errors.As(err, &target) {
					t.Errorf("expected ProtocolError, got %T", err)
				}
			},
			errContains: "multiple or no tokens",
		},
		{
			name:  "two csrf records",
			token: `{"t": "oauth"}`,
			csrf:  `[{"token": "a"}, {"token": "b"}]`,
			check: func(t *testing.T, err error) {
				var target *ProtocolError
				if !errors.As(err, &target) {
					t.Errorf("expected ProtocolError, got %T", err)
				}
			},
			errContains: "got 2",
		},
		{
			name:  "csrf error object",
			token: `{"t": "oauth"}`,
			csrf:  `{"error": {"type": "4107", "message": "No user logged in"}}`,
			check: func(t *testing.T, err error) {
				var target *RemoteError
				if !errors.As(err, &target) {
					t.Fatalf("expected RemoteError, got %T", err)
				}
				if target.Type != "4107" || target.Message != "No user logged in" {
					t.Errorf("expected verbatim error fields, got %+v", target)
				}
			},
		},
		{
			name:  "blank csrf token",
			token: `{"t": "oauth"}`,
			csrf:  `{"token": "   "}`,
			check: func(t *testing.T, err error) {
				var target *ProtocolError
				if !errors.As(err, &target) {
					t.Errorf("expected ProtocolError, got %T", err)
				}
			},
			errContains: "token field was empty",
		},
		{
			name:  "empty csrf body",
			token: `{"t": "oauth"}`,
			csrf:  ``,
			check: func(t *testing.T, err error) {
				var target *EmptyResponseError
				if !errors.As(err, &target) {
					t.Errorf("expected EmptyResponseError, got %T", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newTestClient(t, &fakeHelper{token: tt.token, csrf: tt.csrf})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if client != nil {
				t.Error("expected nil client on bootstrap failure")
			}
			tt.check(t, err)
			if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error to contain %q, got %q", tt.errContains, err.Error())
			}
		})
	}
}

func TestNewClient_NestedCSRFDocument(t *testing.T) {
	client, err := newTestClient(t, &fakeHelper{
		token: `{"t": "oauth"}`,
		csrf:  `["{\"token\": \"nested\"}"]`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Session().CSRFToken != "nested" {
		t.Errorf("expected nested token, got %q", client.Session().CSRFToken)
	}
}

func TestNewClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(context.Background(), Config{BaseURL: server.URL, TokenURL: server.URL + "/token"})
	var target *TransportError
	if !errors.As(err, &target) {
		t.Fatalf("expected TransportError, got %T (%v)", err, err)
	}
	if target.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, target.StatusCode)
	}
}

func TestNewClient_TokenEndpointErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"type": "401", "message": "no token"}}`))
	}))
	defer server.Close()

	_, err := NewClient(context.Background(), Config{BaseURL: server.URL, TokenURL: server.URL + "/token"})

	var remote *RemoteError
	if errors.As(err, &remote) {
		t.Fatalf("token endpoint failure surfaced as RemoteError: %v", err)
	}
	var target *TransportError
	if !errors.As(err, &target) {
		t.Fatalf("expected TransportError, got %T (%v)", err, err)
	}
	if target.Op != "oauth" || target.StatusCode != http.StatusUnauthorized {
		t.Errorf("unexpected transport error %+v", target)
	}
}

func TestNewClient_LocalEndpointErrorDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			_, _ = w.Write([]byte(`{"t": "oauth"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"type": "4107", "message": "Invalid origin"}}`))
	}))
	defer server.Close()

	_, err := NewClient(context.Background(), Config{BaseURL: server.URL, TokenURL: server.URL + "/token"})

	var target *RemoteError
	if !errors.As(err, &target) {
		t.Fatalf("expected RemoteError, got %T (%v)", err, err)
	}
	if target.Op != "csrf" || target.Type != "4107" || target.Message != "Invalid origin" {
		t.Errorf("unexpected remote error %+v", target)
	}
}

func TestIsLoopbackHost(t *testing.T) {
	tests := map[string]bool{
		"127.0.0.1":                true,
		"::1":                      true,
		"localhost":                true,
		"localhost.spotilocal.com": true,
		"example.com":              false,
		"10.0.0.1":                 false,
		"spotilocal.com.evil.net":  false,
	}
	for host, want := range tests {
		if got := isLoopbackHost(host); got != want {
			t.Errorf("isLoopbackHost(%q) = %v, want %v", host, got, want)
		}
	}
}
