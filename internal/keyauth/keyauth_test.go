package keyauth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSelector struct {
	hasKey  bool
	opened  int
	openErr error
	onOpen  func()
}

func (f *fakeSelector) HasSelectedKey() bool { return f.hasKey }

func (f *fakeSelector) OpenSelectKey(ctx context.Context) error {
	f.opened++
	if f.onOpen != nil {
		f.onOpen()
	}
	return f.openErr
}

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) StatusCode() int { return e.code }

func TestRunRetriesOnceOnPermissionDenial(t *testing.T) {
	sel := &fakeSelector{hasKey: true}
	guard := NewGuard(sel, nil)

	calls := 0
	err := guard.Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &statusErr{code: 403}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, sel.opened)
}

func TestRunSecondDenialPropagates(t *testing.T) {
	sel := &fakeSelector{hasKey: true}
	guard := NewGuard(sel, nil)

	calls := 0
	err := guard.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return &statusErr{code: 403}
	})

	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))
	assert.Equal(t, 2, calls, "exactly one retry")
	assert.Equal(t, 1, sel.opened, "exactly one forced re-selection")
}

func TestRunDoesNotRetryOtherErrors(t *testing.T) {
	sel := &fakeSelector{hasKey: true}
	guard := NewGuard(sel, nil)

	calls := 0
	boom := errors.New("boom")
	err := guard.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, sel.opened)
}

func TestRunSelectsKeyUpfrontWhenMissing(t *testing.T) {
	sel := &fakeSelector{hasKey: false}
	guard := NewGuard(sel, nil)

	err := guard.Run(context.Background(), func(ctx context.Context) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, 1, sel.opened)
}

func TestRunFailedReselectionReturnsOriginalError(t *testing.T) {
	sel := &fakeSelector{hasKey: true}
	guard := NewGuard(sel, nil)

	denial := &statusErr{code: 403}
	calls := 0
	sel.onOpen = func() { sel.openErr = errors.New("selection closed") }

	err := guard.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return denial
	})

	require.ErrorIs(t, err, denial)
	assert.Equal(t, 1, calls, "op must not retry when re-selection fails")
}

func TestNilGuardIsAuthorized(t *testing.T) {
	var guard *Guard
	err := guard.Run(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
}

func TestIsPermissionDenied(t *testing.T) {
	assert.False(t, IsPermissionDenied(nil))
	assert.True(t, IsPermissionDenied(&statusErr{code: 403}))
	assert.False(t, IsPermissionDenied(&statusErr{code: 500}))
	assert.True(t, IsPermissionDenied(errors.New("rpc error: PERMISSION_DENIED")))
	assert.True(t, IsPermissionDenied(errors.New("got 403 Forbidden")))
	assert.False(t, IsPermissionDenied(errors.New("status 404: not found")))
}

func TestKeyStoreAwaitChange(t *testing.T) {
	store := NewKeyStore("old")

	done := make(chan error, 1)
	go func() { done <- store.AwaitChange(context.Background()) }()

	// Give the waiter a moment to block before the change lands.
	time.Sleep(10 * time.Millisecond)
	store.Set("new")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AwaitChange did not wake on Set")
	}

	assert.Equal(t, "new", store.Key())
}

func TestKeyStoreAwaitChangeHonorsContext(t *testing.T) {
	store := NewKeyStore("")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := store.AwaitChange(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreSelector(t *testing.T) {
	store := NewKeyStore("")
	sel := &StoreSelector{Store: store}

	assert.False(t, sel.HasSelectedKey())
	store.Set("k")
	assert.True(t, sel.HasSelectedKey())

	prompted := false
	sel.Prompt = func(ctx context.Context) error {
		prompted = true
		go func() {
			time.Sleep(10 * time.Millisecond)
			store.Set("k2")
		}()
		return nil
	}

	require.NoError(t, sel.OpenSelectKey(context.Background()))
	assert.True(t, prompted)
	assert.Equal(t, "k2", store.Key())
}
