package auth

import "sync"

// Session holds the client-side identity and notifies observers when it
// changes. The zero value is a signed-out session.
type Session struct {
	mu       sync.RWMutex
	current  *Identity
	nextID   int
	watchers map[int]func(Identity, bool)
}

// NewSession returns a session, signed in when id has a user ID.
func NewSession(id Identity) *Session {
	s := &Session{}
	if id.UserID != "" {
		s.current = &id
	}
	return s
}

// Current returns the signed-in identity.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

// SignIn replaces the identity. An identity with a malformed user ID is
// refused.
func (s *Session) SignIn(id Identity) error {
	if !ValidUserID(id.UserID) {
		return &Error{Code: CodeInvalidCredential}
	}
	s.mu.Lock()
	s.current = &id
	s.mu.Unlock()
	s.notify(id, true)
	return nil
}

// SignOut clears the identity.
func (s *Session) SignOut() {
	s.mu.Lock()
	was := s.current != nil
	s.current = nil
	s.mu.Unlock()
	if was {
		s.notify(Identity{}, false)
	}
}

// Subscribe registers fn to be called on every sign-in and sign-out. The
// returned function unsubscribes.
func (s *Session) Subscribe(fn func(id Identity, signedIn bool)) func() {
	s.mu.Lock()
	if s.watchers == nil {
		s.watchers = make(map[int]func(Identity, bool))
	}
	key := s.nextID
	s.nextID++
	s.watchers[key] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, key)
		s.mu.Unlock()
	}
}

func (s *Session) notify(id Identity, signedIn bool) {
	s.mu.RLock()
	fns := make([]func(Identity, bool), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(id, signedIn)
	}
}
