package spotilocal

import (
	"context"
)

const statusPath = "remote/status.json"

// StatusFetcher is implemented by *Client and can be replaced in tests.
type StatusFetcher interface {
	Status(ctx context.Context) (*Status, error)
}

// Ensure Client implements StatusFetcher at compile time.
var _ StatusFetcher = (*Client)(nil)

// Status fetches the current player state. Every call performs network I/O;
// nothing is cached.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	if c == nil || c.session == nil {
		return nil, ErrNotBootstrapped
	}

	body, err := c.call(ctx, "status", statusPath, true, true)
	if err != nil {
		return nil, err
	}

	payload, err := decodeSingle[statusPayload]("status", "statuses", body)
	if err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, remoteErr("status", payload.Error)
	}

	return payload.toStatus(), nil
}
