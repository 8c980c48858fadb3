package daemon

import (
	"github.com/jfmyers9/spotilocal/pkg/spotilocal"
)

// EventKind names an event for logs and wire encodings.
type EventKind string

const (
	KindUpdated          EventKind = "updated"
	KindTrackChanged     EventKind = "track_changed"
	KindVolumeChanged    EventKind = "volume_changed"
	KindPlayStateChanged EventKind = "play_state_changed"
)

// Event is a change notification produced by one poll cycle.
type Event interface {
	Kind() EventKind
}

// Updated is emitted after every successful poll. Previous is nil on the
// first poll.
type Updated struct {
	Previous *spotilocal.Status `json:"previous"`
	Current  *spotilocal.Status `json:"current"`
}

// TrackChanged is emitted when the track differs between two snapshots.
type TrackChanged struct {
	Previous *spotilocal.Track `json:"previous"`
	Current  *spotilocal.Track `json:"current"`
}

// VolumeChanged is emitted when the volume differs between two snapshots.
type VolumeChanged struct {
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
}

// PlayStateChanged is emitted when playback starts or stops.
type PlayStateChanged struct {
	Playing bool `json:"playing"`
}

func (Updated) Kind() EventKind          { return KindUpdated }
func (TrackChanged) Kind() EventKind     { return KindTrackChanged }
func (VolumeChanged) Kind() EventKind    { return KindVolumeChanged }
func (PlayStateChanged) Kind() EventKind { return KindPlayStateChanged }

// Diff compares two consecutive snapshots.
//
// Updated is always first. The typed events follow in fixed order (track,
// volume, play state) and only when both snapshots are present, so the first
// poll after start never reports a change.
func Diff(previous, current *spotilocal.Status) []Event {
	events := []Event{Updated{Previous: previous, Current: current}}
	if previous == nil || current == nil {
		return events
	}

	if !previous.Track.Equal(current.Track) {
		events = append(events, TrackChanged{Previous: previous.Track, Current: current.Track})
	}
	if previous.Volume != current.Volume {
		events = append(events, VolumeChanged{Previous: previous.Volume, Current: current.Volume})
	}
	if previous.Playing != current.Playing {
		events = append(events, PlayStateChanged{Playing: current.Playing})
	}
	return events
}

// Listener receives events in the order a cycle produced them.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnEvent calls f(e).
func (f ListenerFunc) OnEvent(e Event) { f(e) }
