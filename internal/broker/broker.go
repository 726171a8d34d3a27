// Package broker holds the in-memory handshake records for the OAuth
// bridge: the one-time correlation states bound into authorization URLs,
// and the polling handles handed to non-browser clients.
//
// Nothing here is persisted. Records expire on a wall clock and the maps
// are purged opportunistically on writes; there is no sweeper goroutine.
package broker

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/patchouli-app/patchouli-server/internal/domain"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
	"github.com/patchouli-app/patchouli-server/internal/id"
)

const stateBytes = 32

// StateData is the intent captured when a handshake starts, keyed by the
// opaque state value until the provider calls back.
type StateData struct {
	Registration bool
	InviteCode   string
	Handle       string // bound auth handle, empty for browser-only flows
	ExpiresAt    time.Time
}

// Broker stores correlation states and auth handles in memory.
type Broker struct {
	mu      sync.Mutex
	states  map[string]*StateData
	handles map[string]*domain.AuthHandle

	stateTTL  time.Duration
	handleTTL time.Duration
}

// New creates a broker with the given state and handle lifetimes.
func New(stateTTL, handleTTL time.Duration) *Broker {
	return &Broker{
		states:    make(map[string]*StateData),
		handles:   make(map[string]*domain.AuthHandle),
		stateTTL:  stateTTL,
		handleTTL: handleTTL,
	}
}

// NewState binds the given intent to a fresh random state value and
// returns it. The state is consumable exactly once.
func (b *Broker) NewState(data StateData) (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.purgeLocked()

	data.ExpiresAt = time.Now().Add(b.stateTTL)
	b.states[state] = &data
	return state, nil
}

// ConsumeState removes and returns the intent bound to the state value.
// Unknown, already-consumed, and expired states are indistinguishable to
// the caller; all report an invalid state.
func (b *Broker) ConsumeState(state string) (*StateData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.states[state]
	if !ok {
		return nil, domainerrors.ErrInvalidState
	}
	delete(b.states, state)

	if time.Now().After(data.ExpiresAt) {
		return nil, domainerrors.ErrInvalidState
	}
	return data, nil
}

// NewHandle creates a pending auth handle for a non-browser client to poll.
func (b *Broker) NewHandle() (*domain.AuthHandle, error) {
	handleID, err := id.Generate("handle")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	handle := &domain.AuthHandle{
		Handle:    handleID,
		Status:    domain.HandleStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(b.handleTTL),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.purgeLocked()

	b.handles[handleID] = handle
	return copyHandle(handle), nil
}

// Complete transitions the handle to completed with the issued token.
// Transitions out of a terminal state are ignored.
func (b *Broker) Complete(handleID, token string, user domain.Summary) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handle, ok := b.handles[handleID]
	if !ok || handle.IsTerminal() {
		return
	}
	handle.Status = domain.HandleStatusCompleted
	handle.Token = token
	handle.User = &user
}

// Fail transitions the handle to the error state with a machine-readable
// reason. Transitions out of a terminal state are ignored.
func (b *Broker) Fail(handleID, errorCode string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handle, ok := b.handles[handleID]
	if !ok || handle.IsTerminal() {
		return
	}
	handle.Status = domain.HandleStatusError
	handle.ErrorCode = errorCode
}

// Poll returns the current view of the handle. The first observation of a
// terminal state removes the handle, so a completed token is delivered at
// most once. Expired and unknown handles both report not found.
func (b *Broker) Poll(handleID string) (*domain.AuthHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handle, ok := b.handles[handleID]
	if !ok {
		return nil, domainerrors.NotFound("unknown auth handle")
	}
	if handle.IsExpired() {
		delete(b.handles, handleID)
		return nil, domainerrors.NotFound("auth handle expired")
	}

	view := copyHandle(handle)
	if handle.IsTerminal() {
		delete(b.handles, handleID)
	}
	return view, nil
}

// purgeLocked drops expired states and handles. Callers must hold b.mu.
func (b *Broker) purgeLocked() {
	now := time.Now()
	for state, data := range b.states {
		if now.After(data.ExpiresAt) {
			delete(b.states, state)
		}
	}
	for id, handle := range b.handles {
		if now.After(handle.ExpiresAt) {
			delete(b.handles, id)
		}
	}
}

// copyHandle returns a defensive copy so callers never share the stored record.
func copyHandle(h *domain.AuthHandle) *domain.AuthHandle {
	out := *h
	if h.User != nil {
		user := *h.User
		out.User = &user
	}
	return &out
}
