package spotilocal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBodySize = 1 << 20

// envelope is decoded first from every local endpoint document so the
// server-reported error object can be checked independently of the payload.
type envelope struct {
	Error *APIError `json:"error"`
}

// call signs path and performs a GET against the local endpoint. It returns
// the raw response body; envelope checks are left to the caller.
//
// There is no retry: every failure is surfaced to the caller.
func (c *Client) call(ctx context.Context, op, path string, includeCredential, includeCSRF bool) ([]byte, error) {
	reqURL, err := c.signer.Sign(c.session, path, includeCredential, includeCSRF)
	if err != nil {
		return nil, err
	}
	c.logDebugf("spotilocal: %s: GET %s", op, path)

	header := http.Header{}
	header.Set("Origin", DefaultOrigin)
	header.Set("Referer", DefaultOrigin+"/")
	body, err := c.get(ctx, op, reqURL, header)
	if err != nil {
		// The local endpoint answers some failures with a proper error
		// document.
		var terr *TransportError
		if errors.As(err, &terr) && terr.StatusCode >= 400 && len(body) > 0 {
			if doc, derr := decodeSingle[envelope](op, op, body); derr == nil && doc.Error != nil {
				return nil, remoteErr(op, doc.Error)
			}
		}
		return nil, err
	}
	return body, nil
}

// get performs the HTTP request and reads the body. On an HTTP error status
// it returns a *TransportError together with the body, so callers that know
// the endpoint's error documents can inspect it.
func (c *Client) get(ctx context.Context, op, reqURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return body, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	c.logDebugf("spotilocal: %s: %d bytes", op, len(body))
	return body, nil
}

// decodeSingle decodes a response that must contain exactly one document.
//
// A bare object is wrapped in a single-element array first. An element that
// is itself a JSON string is decoded once more, since some helper versions
// return the document string-encoded.
func decodeSingle[T any](op, noun string, body []byte) (*T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &EmptyResponseError{Op: op}
	}
	if trimmed[0] != '[' {
		wrapped := make([]byte, 0, len(trimmed)+4)
		wrapped = append(wrapped, "[ "...)
		wrapped = append(wrapped, trimmed...)
		wrapped = append(wrapped, " ]"...)
		trimmed = wrapped
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(trimmed, &docs); err != nil {
		return nil, &ProtocolError{Op: op, Reason: "malformed response wrapper", Err: err}
	}
	if len(docs) != 1 {
		return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("multiple or no %s (got %d)", noun, len(docs))}
	}

	doc := bytes.TrimSpace(docs[0])
	if len(doc) > 0 && doc[0] == '"' {
		var inner string
		if err := json.Unmarshal(doc, &inner); err != nil {
			return nil, &ProtocolError{Op: op, Reason: "malformed nested document", Err: err}
		}
		doc = bytes.TrimSpace([]byte(inner))
	}
	if len(doc) == 0 || bytes.Equal(doc, []byte("null")) {
		return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("null %s document", noun)}
	}

	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("malformed %s document", noun), Err: err}
	}
	return &v, nil
}
