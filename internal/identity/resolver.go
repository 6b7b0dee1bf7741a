// Package identity determines the acting identity for a request:
// authenticated user, returning guest, or freshly minted guest.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/better-gpt/gateway/internal/auth"
	"github.com/better-gpt/gateway/internal/logger"
	"github.com/better-gpt/gateway/internal/store"
)

// GuestCookieName is the long-lived cookie carrying a guest id.
const GuestCookieName = "guest-user-id"

// guestCookieMaxAge is one year in seconds.
const guestCookieMaxAge = 31536000

// Kind tags how the identity was resolved so callers branch
// exhaustively instead of testing optional fields.
type Kind int

const (
	// Authenticated means the auth provider vouched for the user.
	Authenticated Kind = iota
	// Guest means a previously minted guest id arrived on the cookie.
	Guest
	// NewGuest means a guest id was minted during this request and
	// must be propagated back to the client.
	NewGuest
)

// Identity is the resolved acting identity of a request.
type Identity struct {
	UserID string
	Kind   Kind
}

// IsAuthenticated reports whether the identity came from a session.
func (i Identity) IsAuthenticated() bool {
	return i.Kind == Authenticated
}

// Resolver runs the ordered resolution pipeline: session lookup, guest
// cookie, mint.
type Resolver struct {
	sessions auth.SessionResolver
	store    store.Store
	logger   *logger.Logger
}

func NewResolver(sessions auth.SessionResolver, st store.Store, log *logger.Logger) *Resolver {
	return &Resolver{
		sessions: sessions,
		store:    st,
		logger:   log.WithComponent("identity"),
	}
}

// Resolve never fails a request solely because no session exists; the
// only error path is the store refusing to mint a guest user row.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (Identity, error) {
	if userID, found := r.lookupSession(ctx, req); found {
		return Identity{UserID: userID, Kind: Authenticated}, nil
	}

	if cookie, err := req.Cookie(GuestCookieName); err == nil && cookie.Value != "" {
		return Identity{UserID: cookie.Value, Kind: Guest}, nil
	}

	guestID, err := r.mintGuest(ctx)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: guestID, Kind: NewGuest}, nil
}

// Peek resolves the identity without minting a guest. Used by read
// endpoints where an anonymous caller simply owns nothing.
func (r *Resolver) Peek(ctx context.Context, req *http.Request) (Identity, bool) {
	if userID, found := r.lookupSession(ctx, req); found {
		return Identity{UserID: userID, Kind: Authenticated}, true
	}
	if cookie, err := req.Cookie(GuestCookieName); err == nil && cookie.Value != "" {
		return Identity{UserID: cookie.Value, Kind: Guest}, true
	}
	return Identity{}, false
}

func (r *Resolver) lookupSession(ctx context.Context, req *http.Request) (string, bool) {
	if r.sessions == nil {
		return "", false
	}

	userID, found, err := r.sessions.Resolve(ctx, req.Header)
	if err != nil {
		// A broken auth collaborator degrades to guest access.
		r.logger.WithContext(ctx).Warn("session lookup failed, falling back to guest",
			slog.String("error", err.Error()))
		return "", false
	}
	return userID, found
}

func (r *Resolver) mintGuest(ctx context.Context) (string, error) {
	id := uuid.New().String()

	// The user row must exist before chats reference it.
	err := r.store.CreateUser(ctx, store.User{
		ID:        id,
		Name:      "Guest",
		Email:     fmt.Sprintf("guest_%s@better-gpt.guest", id),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("identity: mint guest user: %w", err)
	}

	r.logger.WithContext(ctx).Debug("minted guest user", slog.String("guest_id", id))
	return id, nil
}

// SetGuestCookie propagates a newly minted guest id to the client.
func SetGuestCookie(w http.ResponseWriter, guestID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    guestID,
		Path:     "/",
		MaxAge:   guestCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
