// Package spotilocal provides a client for the Spotify desktop client's
// local HTTP control endpoint.
//
// # Overview
//
// The desktop client runs a small helper that listens on
// https://*.spotilocal.com:4371 (the name resolves to 127.0.0.1). Before the
// helper answers any data request, a client needs two tokens:
//
//  1. An OAuth token, obtained from a public token endpoint
//  2. A CSRF token, obtained from the helper itself
//
// Both are appended to every authenticated request together with a
// cache-busting timestamp. This package performs that handshake once, in
// NewClient, and signs every later request with the resulting Session.
//
// # Quick Start
//
//	import "github.com/jfmyers9/spotilocal/pkg/spotilocal"
//
//	client, err := spotilocal.NewClient(ctx, spotilocal.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	status, err := client.Status(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if status.Track != nil {
//	    fmt.Println("Now playing:", status.Track.Name())
//	}
//
// # Commands
//
// Playback can be controlled through the same signed transport:
//
//	err := client.Play(ctx, "spotify:track:6rqhFgbbKwnb9MLmUQDhG6")
//	err = client.Pause(ctx)
//	err = client.Resume(ctx)
//	err = client.Queue(ctx, "spotify:track:4uLU6hMCjMI75M1A2tKUQC")
//
// # Error Handling
//
// Every failure is returned to the caller; the package never retries.
// Failures are typed so callers can tell them apart with errors.As:
//
//	var remote *spotilocal.RemoteError
//	if errors.As(err, &remote) {
//	    fmt.Println("helper said:", remote.Type, remote.Message)
//	}
//
// The types are:
//
//   - CredentialError: the OAuth token could not be obtained
//   - ProtocolError: the response envelope had the wrong shape
//   - RemoteError: the helper returned an error object
//   - EmptyResponseError: the helper returned a blank body
//   - TransportError: network, TLS or HTTP status failure
//
// # TLS
//
// The helper serves a certificate for *.spotilocal.com. With the default
// host, platform verification succeeds. Set Config.TrustLoopbackCert to skip
// verification when connecting to a loopback address directly; it has no
// effect for other hosts.
//
// # Thread Safety
//
// A Client is safe for concurrent use. Its Session never changes after
// NewClient returns, so several pollers may share one Client.
package spotilocal
