// Package soundcloud talks to SoundCloud's web player API.
//
// Turning a track page into an audio stream takes three steps:
//
//  1. Discover a client_id from the web player's script bundles
//  2. Resolve the track page URL into track metadata
//  3. Activate one of the track's transcodings into a stream URL
//
// # Credentials
//
// The client_id is discovered once per Session and shared by every request:
//
//	session := soundcloud.NewSession(soundcloud.NewCredentialResolver(client, "", logger))
//	clientID, err := session.Credential(ctx)
//
// # Resolving
//
//	api := soundcloud.NewAPI(client, soundcloud.DefaultAPIBaseURL, logger, nil)
//	track, err := api.Resolve(ctx, "https://soundcloud.com/artist/track", clientID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stream, err := api.SelectStream(ctx, track.Transcodings, clientID)
//
// # Stream Selection
//
// Only audio/mpeg transcodings are used. Progressive transcodings are
// preferred over HLS; within a protocol the API's order is kept.
package soundcloud
