// Package auth resolves request credentials into a typed capability.
//
// Sign-up and login live with the external identity provider; this
// package only verifies its access tokens and decides whether the caller
// is a guest, a regular user or an administrator.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/domain"
)

// AccessTokenCookie is the cookie set by the identity provider's client
const AccessTokenCookie = "sb-access-token"

// Role is the caller's authorization level
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "guest"
	}
}

// Capability is what a request is allowed to do
type Capability struct {
	Role   Role
	UserID uuid.UUID
}

// Guest is the capability of an unauthenticated caller
var Guest = Capability{Role: RoleGuest}

// Authenticated reports whether the caller presented a valid token
func (c Capability) Authenticated() bool {
	return c.Role != RoleGuest
}

// RequireUser fails with ErrUnauthorized for guests
func (c Capability) RequireUser() error {
	if !c.Authenticated() {
		return domain.ErrUnauthorized
	}
	return nil
}

// RequireAdmin fails with ErrUnauthorized for guests and ErrForbidden for
// authenticated non-admins.
func (c Capability) RequireAdmin() error {
	switch c.Role {
	case RoleAdmin:
		return nil
	case RoleUser:
		return domain.ErrForbidden
	default:
		return domain.ErrUnauthorized
	}
}

// ProfileLookup loads the profile behind a token subject
type ProfileLookup interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

// Guard verifies access tokens and resolves capabilities
type Guard struct {
	secret   []byte
	profiles ProfileLookup
	logger   *slog.Logger
}

// NewGuard creates a new guard
func NewGuard(secret []byte, profiles ProfileLookup, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		secret:   secret,
		profiles: profiles,
		logger:   logger,
	}
}

// Resolve maps a token to a capability. Missing, malformed and expired
// tokens resolve to Guest. Only profile lookup failures other than
// not-found are returned as errors.
func (g *Guard) Resolve(ctx context.Context, token string) (Capability, error) {
	if token == "" {
		return Guest, nil
	}

	userID, err := ParseToken(token, g.secret)
	if err != nil {
		g.logger.Debug("rejected access token", "error", err)
		return Guest, nil
	}

	profile, err := g.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return Capability{Role: RoleUser, UserID: userID}, nil
		}
		return Guest, fmt.Errorf("load profile: %w", err)
	}

	role := RoleUser
	if profile.IsAdmin {
		role = RoleAdmin
	}
	return Capability{Role: role, UserID: userID}, nil
}

// TokenFromRequest extracts the bearer token or the access token cookie
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

type contextKey struct{}

// WithCapability stores the capability in ctx
func WithCapability(ctx context.Context, c Capability) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the capability stored in ctx, or Guest
func FromContext(ctx context.Context) Capability {
	if c, ok := ctx.Value(contextKey{}).(Capability); ok {
		return c
	}
	return Guest
}
