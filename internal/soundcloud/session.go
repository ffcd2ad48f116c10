package soundcloud

import (
	"context"
	"errors"
	"sync"
)

// CredentialSource produces a client_id.
type CredentialSource interface {
	Resolve(ctx context.Context) (string, error)
}

// Session owns the client_id for the lifetime of the process.
//
// The credential is discovered on first use and then shared read-only by
// every resolution. It is never re-derived: if SoundCloud rotates it, all
// later API calls fail until a new Session is created. The outcome of a
// discovery attempt (success or ErrCredentialNotFound) is remembered;
// only a cancelled attempt is retried on the next call.
type Session struct {
	source CredentialSource

	mu         sync.Mutex
	credential string
	err        error
	done       bool
}

// NewSession creates a session that discovers its credential from source.
func NewSession(source CredentialSource) *Session {
	return &Session{source: source}
}

// NewStaticSession creates a session with a known credential.
func NewStaticSession(credential string) *Session {
	return &Session{credential: credential, done: true}
}

// Credential returns the session's client_id, discovering it if needed.
func (s *Session) Credential(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return s.credential, s.err
	}

	credential, err := s.source.Resolve(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	s.credential, s.err, s.done = credential, err, true
	return credential, err
}

// Cached reports the credential if discovery has already succeeded.
func (s *Session) Cached() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential, s.done && s.err == nil
}
