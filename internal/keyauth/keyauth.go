// Package keyauth guards privileged remote calls behind a host-provided
// key-selection surface and owns the single recovery mechanism for
// permission failures: one forced re-selection, one retry.
package keyauth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Selector is the host authorization surface. A nil Selector on the Guard
// means the surface is absent, which is tolerated and treated as already
// authorized.
type Selector interface {
	HasSelectedKey() bool
	OpenSelectKey(ctx context.Context) error
}

type Guard struct {
	selector Selector
	log      *slog.Logger
}

func NewGuard(selector Selector, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Guard{selector: selector, log: logger}
}

// EnsureKey makes sure a usable credential is selected before a privileged
// call. With force it re-opens the selection surface even if a key is
// already selected.
func (g *Guard) EnsureKey(ctx context.Context, force bool) error {
	if g == nil || g.selector == nil {
		return nil
	}
	if !force && g.selector.HasSelectedKey() {
		return nil
	}
	return g.selector.OpenSelectKey(ctx)
}

// Run executes op with the shared retry policy: a failure classified as a
// permission denial triggers exactly one forced re-selection and exactly
// one retry. Any second failure, or a non-permission failure, propagates.
func (g *Guard) Run(ctx context.Context, op func(context.Context) error) error {
	if err := g.EnsureKey(ctx, false); err != nil {
		return err
	}

	err := op(ctx)
	if err == nil || !IsPermissionDenied(err) {
		return err
	}

	if g != nil && g.log != nil {
		g.log.Warn("permission denied, re-selecting key", "err", err)
	}
	if selErr := g.EnsureKey(ctx, true); selErr != nil {
		return err
	}
	return op(ctx)
}

// statusCoder is implemented by errors carrying an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// IsPermissionDenied classifies an error as a permission failure, by
// status code when available and by message shape otherwise.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode() == 403
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission_denied") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, " 403 ") ||
		strings.HasSuffix(msg, " 403") ||
		strings.Contains(msg, "403 forbidden")
}

// KeyStore holds the runtime credential. It is read fresh on every remote
// call so a key selected mid-session takes effect on the next call.
type KeyStore struct {
	mu      sync.Mutex
	key     string
	changed chan struct{}
}

func NewKeyStore(initial string) *KeyStore {
	return &KeyStore{
		key:     strings.TrimSpace(initial),
		changed: make(chan struct{}),
	}
}

func (s *KeyStore) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Set replaces the credential and wakes everyone awaiting a selection.
func (s *KeyStore) Set(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.key = strings.TrimSpace(key)
	close(s.changed)
	s.changed = make(chan struct{})
}

// AwaitChange blocks until the credential changes or ctx ends.
func (s *KeyStore) AwaitChange(ctx context.Context) error {
	s.mu.Lock()
	ch := s.changed
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StoreSelector adapts a KeyStore plus an interactive prompt into the
// Selector contract: opening the selection surface shows the prompt and
// awaits the user's choice.
type StoreSelector struct {
	Store  *KeyStore
	Prompt func(ctx context.Context) error
}

func (s *StoreSelector) HasSelectedKey() bool {
	return s.Store != nil && s.Store.Key() != ""
}

func (s *StoreSelector) OpenSelectKey(ctx context.Context) error {
	if s.Store == nil {
		return errors.New("no key store configured")
	}
	if s.Prompt != nil {
		if err := s.Prompt(ctx); err != nil {
			return err
		}
	}
	return s.Store.AwaitChange(ctx)
}
