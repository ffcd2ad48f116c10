// Package download orchestrates the track resolution pipeline.
//
// # Manager
//
// The Manager coordinates a resolution end to end:
//
//  1. Normalize the track locator
//  2. Obtain the session's client_id
//  3. Resolve the track metadata
//  4. Select and assemble the audio stream, fetching artwork alongside
//  5. Tag the MP3 with ID3 metadata
//  6. Save the file (and, for batches, an optional playlist)
//
// # Basic Usage
//
//	manager := download.NewManager(settings, logger, nil, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	path, err := manager.ResolveAndSave(ctx, "https://soundcloud.com/artist/track")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Failure Policy
//
// Every failure except a missing cover aborts the resolution and nothing is
// written. Nothing is retried; callers bound the run with their context.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	    State   State         // Resolving, SelectingStream, ... Saved, Failed
//	    Locator string
//	}
//
// In a batch the callback is invoked from several goroutines.
package download
