package soundcloud

import "errors"

var (
	// ErrCredentialNotFound is returned when none of the page's script
	// assets contains a client_id. This usually means SoundCloud changed
	// its build output.
	ErrCredentialNotFound = errors.New("client_id not found in page assets")

	// ErrResolveFailed is returned when the resolver API refuses a locator.
	ErrResolveFailed = errors.New("resolve failed")

	// ErrNoUsableStream is returned when no audio/mpeg transcoding could be
	// activated.
	ErrNoUsableStream = errors.New("no usable stream")
)
