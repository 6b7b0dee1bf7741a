// Package auth consumes the external auth provider's session-lookup
// contract. Token issuance and validation are the provider's concern;
// this package only asks "whose session is on these headers".
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SessionResolver resolves an authenticated user id from request
// headers. found is false when no session exists, which is not an
// error: guest continuation is the designed fallback.
type SessionResolver interface {
	Resolve(ctx context.Context, header http.Header) (userID string, found bool, err error)
}

// HTTPSessionResolver asks the auth service for the session bound to
// the caller's cookies.
type HTTPSessionResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSessionResolver(baseURL string) *HTTPSessionResolver {
	return &HTTPSessionResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *HTTPSessionResolver) Resolve(ctx context.Context, header http.Header) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/auth/get-session", nil)
	if err != nil {
		return "", false, fmt.Errorf("auth: create request: %w", err)
	}

	// The session is cookie-bound; forward what identifies the caller.
	if cookie := header.Get("Cookie"); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if authorization := header.Get("Authorization"); authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("auth: get session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, nil
	}

	var session struct {
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", false, fmt.Errorf("auth: decode session: %w", err)
	}

	if session.User == nil || session.User.ID == "" {
		return "", false, nil
	}
	return session.User.ID, true, nil
}
