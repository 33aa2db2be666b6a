// Package store is the single persistence entry point for the club platform.
// It exposes one Store interface with two implementations: a remote gateway
// backed by the hosted Supabase project, and a local mock store backed by the
// embedded database. Which one serves a process is decided exactly once, at
// composition time, by the configuration gate.
package store

import (
	"context"
	"net/http"
	"sync"

	"github.com/Retroinn/MotoCrew/config"
	"github.com/Retroinn/MotoCrew/database/model"
)

type SessionEventType string

const (
	EventSignedIn       SessionEventType = "SIGNED_IN"
	EventTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
	EventSignedOut      SessionEventType = "SIGNED_OUT"
)

// SessionEvent is re-emitted by the store whenever the session lifecycle
// changes, so callers never observe the provider's own event shape.
type SessionEvent struct {
	Type SessionEventType
	User *model.User // nil on sign-out
}

// AuthResult is the normalized outcome of an auth-shaped operation. Expected
// user-facing failures and the pending-confirmation notice travel in Message;
// they are never surfaced as errors.
type AuthResult struct {
	User    *model.User `json:"user"`
	Message string      `json:"message,omitempty"`
}

// OAuthResult is the outcome of starting a provider OAuth flow. In remote
// mode RedirectURL is set and User is always nil: the session materializes
// later, when session restoration runs after the redirect completes.
type OAuthResult struct {
	User        *model.User `json:"user"`
	RedirectURL string      `json:"redirectUrl,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// ProfileUpdate carries only the fields to change. Nil fields are left
// untouched by both storage modes.
type ProfileUpdate struct {
	Name            *string                `json:"name"`
	Nickname        *string                `json:"nickname"`
	MotorcycleModel *string                `json:"motorcycleModel"`
	Bio             *string                `json:"bio"`
	Avatar          *string                `json:"avatar"`
	ExperienceLevel *model.ExperienceLevel `json:"experienceLevel"`
}

// Store is the only surface the rest of the application may call for session,
// profile and notification persistence. Both implementations honor the same
// behavioral contract; errors are reserved for unexpected faults.
type Store interface {
	// GetSession returns the current user, or nil without error when no
	// session is active.
	GetSession(ctx context.Context) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (AuthResult, error)
	SignUp(ctx context.Context, email, password, name string) (AuthResult, error)
	// SignOut never fails: remote errors are logged and swallowed, and the
	// local mock user key is cleared regardless of mode.
	SignOut(ctx context.Context)
	// ResetPassword returns a user-facing failure message, empty on success.
	ResetPassword(ctx context.Context, email string) (string, error)
	SignInWithGoogle(ctx context.Context) (OAuthResult, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (AuthResult, error)

	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Broadcast(ctx context.Context, title, message string, typ model.NotificationType) (*model.Notification, error)

	// Subscribe registers a session-change listener and returns its
	// unsubscribe function.
	Subscribe(fn func(SessionEvent)) func()
}

// New selects the storage mode for this process. The gate is consulted once;
// the returned Store is meant to live for the process lifetime.
func New() Store {
	if IsRemoteConfigured() {
		return NewRemoteStore(config.GetRemoteURL(), config.GetRemoteKey(), &http.Client{Timeout: opTimeout})
	}
	return NewLocalStore()
}

// emitter fans session events out to subscribers. Both implementations embed
// it so callers subscribe through the Store interface alone.
type emitter struct {
	mu   sync.Mutex
	next int
	subs map[int]func(SessionEvent)
}

func (e *emitter) Subscribe(fn func(SessionEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[int]func(SessionEvent))
	}
	id := e.next
	e.next++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

func (e *emitter) emit(ev SessionEvent) {
	e.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
