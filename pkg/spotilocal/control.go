package spotilocal

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify"
)

// Play starts playing uri. The uri doubles as the playback context so that
// album and playlist URIs play through.
func (c *Client) Play(ctx context.Context, uri spotify.URI) error {
	if strings.TrimSpace(string(uri)) == "" {
		return fmt.Errorf("spotilocal: play requires a uri")
	}
	q := url.Values{}
	q.Set("uri", string(uri))
	q.Set("context", string(uri))
	return c.command(ctx, "play", "remote/play.json?"+q.Encode())
}

// Queue appends uri to the play queue.
func (c *Client) Queue(ctx context.Context, uri spotify.URI) error {
	if strings.TrimSpace(string(uri)) == "" {
		return fmt.Errorf("spotilocal: queue requires a uri")
	}
	q := url.Values{}
	q.Set("uri", string(uri))
	q.Set("action", "queue")
	return c.command(ctx, "queue", "remote/play.json?"+q.Encode())
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.command(ctx, "pause", "remote/pause.json?pause=true")
}

// Resume resumes playback of the current track.
func (c *Client) Resume(ctx context.Context) error {
	return c.command(ctx, "resume", "remote/pause.json?pause=false")
}

// command issues a fire-and-forget request. Only the generic envelope is
// checked: a blank body is accepted, an error object is not.
func (c *Client) command(ctx context.Context, op, path string) error {
	if c == nil || c.session == nil {
		return ErrNotBootstrapped
	}

	body, err := c.call(ctx, op, path, true, true)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}

	doc, err := decodeSingle[envelope](op, "responses", body)
	if err != nil {
		return err
	}
	return remoteErr(op, doc.Error)
}
