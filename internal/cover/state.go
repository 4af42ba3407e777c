package cover

import (
	"sync"
	"time"

	"bookcover-studio/internal/i18n"
)

// Session is one user's pipeline state. Images are opaque data URLs; the
// video is raw MP4 bytes. Loading gates the interactive operations so only
// one pipeline step runs per session at a time.
type Session struct {
	ID       string
	Language string

	Metadata  BookMetadata
	Grounding GroundingData

	Stage         Stage
	Images        []string
	SelectedIndex int
	Video         []byte

	Loading   bool
	UpdatedAt time.Time
}

// SelectedImage returns the current cover, "last explicitly chosen or
// edited wins". Empty string when nothing has been generated yet.
func (s Session) SelectedImage() string {
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Images) {
		return ""
	}
	return s.Images[s.SelectedIndex]
}

// snapshot detaches the slices that Update mutates in place, so a returned
// Session can be read while later updates land on the stored one.
func (s *Session) snapshot() Session {
	out := *s
	if s.Images != nil {
		out.Images = append([]string(nil), s.Images...)
	}
	if s.Video != nil {
		out.Video = append([]byte(nil), s.Video...)
	}
	return out
}

// Store is the in-memory session map shared by the web and bot surfaces.
type Store struct {
	mu sync.Mutex
	m  map[string]*Session
}

func NewStore() *Store {
	return &Store{m: make(map[string]*Session)}
}

// Get returns a snapshot of the session, creating it on first use.
func (s *Store) Get(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id).snapshot()
}

// Update applies fn to the session under the lock and returns a snapshot.
func (s *Store) Update(id string, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	if fn != nil {
		fn(sess)
	}
	sess.UpdatedAt = time.Now()
	return sess.snapshot()
}

// BeginWork atomically claims the loading flag. A false return means
// another pipeline step is already running for this session.
func (s *Store) BeginWork(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	if sess.Loading {
		return false
	}
	sess.Loading = true
	sess.UpdatedAt = time.Now()
	return true
}

// EndWork clears the loading flag. Called on every path out of a step.
func (s *Store) EndWork(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.m[id]; ok {
		sess.Loading = false
		sess.UpdatedAt = time.Now()
	}
}

// Reset returns the session to the Details stage, keeping only language.
func (s *Store) Reset(id string) Session {
	return s.Update(id, func(sess *Session) {
		lang := sess.Language
		*sess = newSession(id)
		sess.Language = lang
	})
}

func (s *Store) getOrCreateLocked(id string) *Session {
	if sess, ok := s.m[id]; ok {
		return sess
	}
	sess := newSession(id)
	s.m[id] = &sess
	return s.m[id]
}

func newSession(id string) Session {
	return Session{
		ID:            id,
		Language:      i18n.DefaultLanguage,
		Stage:         StageDetails,
		SelectedIndex: 0,
		UpdatedAt:     time.Now(),
	}
}
