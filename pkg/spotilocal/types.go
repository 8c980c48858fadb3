package spotilocal

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/zmb3/spotify"
)

// APIError is the error object the local endpoint embeds in a response.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Resource identifies an album, artist or track.
type Resource struct {
	Name string      // Display name
	URI  spotify.URI // Internal locator, e.g. spotify:track:6rqhFgbbKwnb9MLmUQDhG6
}

// Equal reports whether both resources have the same name and URI.
// Two nil resources are equal.
func (r *Resource) Equal(o *Resource) bool {
	if r == nil || o == nil {
		return r == nil && o == nil
	}
	return r.Name == o.Name && r.URI == o.URI
}

// String returns the resource name, or "" for a nil resource.
func (r *Resource) String() string {
	if r == nil {
		return ""
	}
	return r.Name
}

// Track describes the track the player currently holds.
type Track struct {
	TrackResource  *Resource
	ArtistResource *Resource
	AlbumResource  *Resource
	Length         time.Duration
	Type           string // "normal", "ad", ...
}

// Name returns the track name.
func (t *Track) Name() string { return t.TrackResource.String() }

// Artist returns the artist name.
func (t *Track) Artist() string { return t.ArtistResource.String() }

// Album returns the album name.
func (t *Track) Album() string { return t.AlbumResource.String() }

// Equal compares two tracks structurally over every field.
//
// A track without a track resource has no identity and is never equal to
// anything, itself included. Two nil tracks are equal: "no track" followed
// by "no track" is not a change.
func (t *Track) Equal(o *Track) bool {
	if t == nil || o == nil {
		return t == nil && o == nil
	}
	if t.TrackResource == nil || o.TrackResource == nil {
		return false
	}
	return t.TrackResource.Equal(o.TrackResource) &&
		t.ArtistResource.Equal(o.ArtistResource) &&
		t.AlbumResource.Equal(o.AlbumResource) &&
		t.Length == o.Length &&
		t.Type == o.Type
}

func (t *Track) String() string {
	if t == nil {
		return "<no track>"
	}
	return fmt.Sprintf("%s - %s (%s)", t.Artist(), t.Name(), t.Album())
}

// Status is one snapshot of the player's observable state.
type Status struct {
	Version         int
	ClientVersion   string
	Playing         bool
	Shuffle         bool
	Repeat          bool
	PlayEnabled     bool
	PrevEnabled     bool
	NextEnabled     bool
	Track           *Track
	PlayingPosition time.Duration
	ServerTime      time.Time
	Volume          float64 // 0.0-1.0
	Online          bool
	Running         bool
	Error           *APIError
}

// Equal compares two snapshots by value. Two nil snapshots are equal.
func (s *Status) Equal(o *Status) bool {
	if s == nil || o == nil {
		return s == nil && o == nil
	}
	if (s.Error == nil) != (o.Error == nil) {
		return false
	}
	if s.Error != nil && *s.Error != *o.Error {
		return false
	}
	return s.Version == o.Version &&
		s.ClientVersion == o.ClientVersion &&
		s.Playing == o.Playing &&
		s.Shuffle == o.Shuffle &&
		s.Repeat == o.Repeat &&
		s.PlayEnabled == o.PlayEnabled &&
		s.PrevEnabled == o.PrevEnabled &&
		s.NextEnabled == o.NextEnabled &&
		s.Track.Equal(o.Track) &&
		s.PlayingPosition == o.PlayingPosition &&
		s.ServerTime.Equal(o.ServerTime) &&
		s.Volume == o.Volume &&
		s.Online == o.Online &&
		s.Running == o.Running
}

// csrfDocument is the body of simplecsrf/token.json.
type csrfDocument struct {
	Error         *APIError `json:"error"`
	Token         string    `json:"token"`
	Version       string    `json:"version"`
	ClientVersion string    `json:"client_version"`
	Running       bool      `json:"running"`
}

// oauthDocument is the body of the public token endpoint.
type oauthDocument struct {
	T *string `json:"t"`
}

type resourcePayload struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type trackPayload struct {
	TrackResource  *resourcePayload `json:"track_resource"`
	ArtistResource *resourcePayload `json:"artist_resource"`
	AlbumResource  *resourcePayload `json:"album_resource"`
	Length         float64          `json:"length"`
	TrackType      string           `json:"track_type"`
}

// statusPayload is the wire form of remote/status.json.
type statusPayload struct {
	Version         int           `json:"version"`
	ClientVersion   string        `json:"client_version"`
	Playing         bool          `json:"playing"`
	Shuffle         bool          `json:"shuffle"`
	Repeat          bool          `json:"repeat"`
	PlayEnabled     bool          `json:"play_enabled"`
	PrevEnabled     bool          `json:"prev_enabled"`
	NextEnabled     bool          `json:"next_enabled"`
	Track           *trackPayload `json:"track"`
	PlayingPosition float64       `json:"playing_position"`
	ServerTime      int64         `json:"server_time"`
	Volume          float64       `json:"volume"`
	Online          bool          `json:"online"`
	Running         bool          `json:"running"`
	Error           *APIError     `json:"error"`
}

func (p *resourcePayload) toResource() *Resource {
	if p == nil {
		return nil
	}
	return &Resource{Name: p.Name, URI: spotify.URI(p.URI)}
}

func (p *trackPayload) toTrack() *Track {
	if p == nil {
		return nil
	}
	return &Track{
		TrackResource:  p.TrackResource.toResource(),
		ArtistResource: p.ArtistResource.toResource(),
		AlbumResource:  p.AlbumResource.toResource(),
		Length:         secondsToDuration(p.Length),
		Type:           p.TrackType,
	}
}

func (p *statusPayload) toStatus() *Status {
	s := &Status{
		Version:         p.Version,
		ClientVersion:   p.ClientVersion,
		Playing:         p.Playing,
		Shuffle:         p.Shuffle,
		Repeat:          p.Repeat,
		PlayEnabled:     p.PlayEnabled,
		PrevEnabled:     p.PrevEnabled,
		NextEnabled:     p.NextEnabled,
		Track:           p.Track.toTrack(),
		PlayingPosition: secondsToDuration(p.PlayingPosition),
		Volume:          p.Volume,
		Online:          p.Online,
		Running:         p.Running,
		Error:           p.Error,
	}
	if p.ServerTime > 0 {
		s.ServerTime = time.Unix(p.ServerTime, 0).UTC()
	}
	return s
}

// secondsToDuration converts seconds (as float) to time.Duration
func secondsToDuration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// MarshalJSON renders the snapshot in the same field names the endpoint uses,
// with durations in seconds.
func (s *Status) MarshalJSON() ([]byte, error) {
	p := statusPayload{
		Version:         s.Version,
		ClientVersion:   s.ClientVersion,
		Playing:         s.Playing,
		Shuffle:         s.Shuffle,
		Repeat:          s.Repeat,
		PlayEnabled:     s.PlayEnabled,
		PrevEnabled:     s.PrevEnabled,
		NextEnabled:     s.NextEnabled,
		Track:           s.Track.payload(),
		PlayingPosition: s.PlayingPosition.Seconds(),
		Volume:          s.Volume,
		Online:          s.Online,
		Running:         s.Running,
		Error:           s.Error,
	}
	if !s.ServerTime.IsZero() {
		p.ServerTime = s.ServerTime.Unix()
	}
	return json.Marshal(p)
}

// MarshalJSON renders the track in wire form.
func (t *Track) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.payload())
}

func (t *Track) payload() *trackPayload {
	if t == nil {
		return nil
	}
	return &trackPayload{
		TrackResource:  t.TrackResource.payload(),
		ArtistResource: t.ArtistResource.payload(),
		AlbumResource:  t.AlbumResource.payload(),
		Length:         t.Length.Seconds(),
		TrackType:      t.Type,
	}
}

func (r *Resource) payload() *resourcePayload {
	if r == nil {
		return nil
	}
	return &resourcePayload{Name: r.Name, URI: string(r.URI)}
}
