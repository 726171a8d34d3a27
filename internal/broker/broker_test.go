package broker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchouli-app/patchouli-server/internal/domain"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
)

func newTestBroker() *Broker {
	return New(10*time.Minute, time.Minute)
}

func TestStateRoundTrip(t *testing.T) {
	b := newTestBroker()

	state, err := b.NewState(StateData{Registration: true, InviteCode: "code-abc"})
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	data, err := b.ConsumeState(state)
	require.NoError(t, err)
	assert.True(t, data.Registration)
	assert.Equal(t, "code-abc", data.InviteCode)
}

func TestConsumeState_Once(t *testing.T) {
	b := newTestBroker()

	state, err := b.NewState(StateData{})
	require.NoError(t, err)

	_, err = b.ConsumeState(state)
	require.NoError(t, err)

	// Replay is rejected.
	_, err = b.ConsumeState(state)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidState))
}

func TestConsumeState_Unknown(t *testing.T) {
	b := newTestBroker()

	_, err := b.ConsumeState("never-issued")
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidState))
}

func TestConsumeState_Expired(t *testing.T) {
	b := New(-time.Second, time.Minute)

	state, err := b.NewState(StateData{})
	require.NoError(t, err)

	_, err = b.ConsumeState(state)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidState))
}

func TestStateValues_Unique(t *testing.T) {
	b := newTestBroker()

	a, err := b.NewState(StateData{})
	require.NoError(t, err)
	c, err := b.NewState(StateData{})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestHandleLifecycle_Completed(t *testing.T) {
	b := newTestBroker()

	handle, err := b.NewHandle()
	require.NoError(t, err)
	assert.Equal(t, domain.HandleStatusPending, handle.Status)

	// Pending polls do not consume the handle.
	for i := 0; i < 2; i++ {
		view, err := b.Poll(handle.Handle)
		require.NoError(t, err)
		assert.Equal(t, domain.HandleStatusPending, view.Status)
	}

	b.Complete(handle.Handle, "v4.local.token", domain.Summary{ID: "user-1", Email: "a@example.com"})

	view, err := b.Poll(handle.Handle)
	require.NoError(t, err)
	assert.Equal(t, domain.HandleStatusCompleted, view.Status)
	assert.Equal(t, "v4.local.token", view.Token)
	require.NotNil(t, view.User)
	assert.Equal(t, "user-1", view.User.ID)

	// Terminal results are delivered exactly once.
	_, err = b.Poll(handle.Handle)
	require.Error(t, err)

	var derr *domainerrors.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domainerrors.CodeNotFound, derr.Code)
}

func TestHandleLifecycle_Failed(t *testing.T) {
	b := newTestBroker()

	handle, err := b.NewHandle()
	require.NoError(t, err)

	b.Fail(handle.Handle, string(domainerrors.CodeNotRegistered))

	view, err := b.Poll(handle.Handle)
	require.NoError(t, err)
	assert.Equal(t, domain.HandleStatusError, view.Status)
	assert.Equal(t, string(domainerrors.CodeNotRegistered), view.ErrorCode)
	assert.Empty(t, view.Token)

	// Gone after the first observation.
	_, err = b.Poll(handle.Handle)
	assert.Error(t, err)
}

func TestHandle_TerminalStateSticks(t *testing.T) {
	b := newTestBroker()

	handle, err := b.NewHandle()
	require.NoError(t, err)

	b.Fail(handle.Handle, string(domainerrors.CodeProviderError))
	// A late success must not overwrite the failure.
	b.Complete(handle.Handle, "v4.local.token", domain.Summary{ID: "user-1"})

	view, err := b.Poll(handle.Handle)
	require.NoError(t, err)
	assert.Equal(t, domain.HandleStatusError, view.Status)
	assert.Empty(t, view.Token)
}

func TestHandle_Expired(t *testing.T) {
	b := New(10*time.Minute, -time.Second)

	handle, err := b.NewHandle()
	require.NoError(t, err)

	_, err = b.Poll(handle.Handle)
	require.Error(t, err)

	// Completing an expired-and-purged handle is a no-op.
	b.Complete(handle.Handle, "v4.local.token", domain.Summary{ID: "user-1"})
	_, err = b.Poll(handle.Handle)
	assert.Error(t, err)
}

func TestHandle_Unknown(t *testing.T) {
	b := newTestBroker()

	_, err := b.Poll("handle-missing")
	assert.Error(t, err)

	// Unknown handles are ignored by transitions.
	b.Complete("handle-missing", "tok", domain.Summary{})
	b.Fail("handle-missing", "X")
}

func TestPoll_ReturnsCopy(t *testing.T) {
	b := newTestBroker()

	handle, err := b.NewHandle()
	require.NoError(t, err)

	view, err := b.Poll(handle.Handle)
	require.NoError(t, err)

	// Mutating the view must not affect the stored record.
	view.Status = domain.HandleStatusError

	again, err := b.Poll(handle.Handle)
	require.NoError(t, err)
	assert.Equal(t, domain.HandleStatusPending, again.Status)
}
