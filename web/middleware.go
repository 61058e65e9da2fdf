package web

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
)

type contextKey int

const profileKey contextKey = iota

// CurrentProfile returns the authenticated profile, or nil when the
// request carries no valid session.
func CurrentProfile(ctx context.Context) *polyauth.Profile {
	p, _ := ctx.Value(profileKey).(*polyauth.Profile)
	return p
}

// WithUser resolves the session cookie into a profile and stores it in the
// request context. Requests without a valid session pass through with no
// profile attached; stale cookies are cleared on the way.
func (h *Handler) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(h.cfg.CookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		a, err := h.cfg.Authenticators.Touch(r.Context(), c.Value)
		if err != nil {
			h.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		profile, err := h.cfg.Users.Find(r.Context(), a.UserKey)
		if err != nil {
			// A live session pointing at a deleted account is useless.
			// Retire it so the client stops presenting the cookie.
			if errors.Is(err, polyauth.ErrNotFound) {
				if derr := h.cfg.Authenticators.Discard(r.Context(), a.ID); derr != nil {
					h.logger.Warn("authenticator discard failed", zap.Error(derr))
				}
			} else {
				h.logger.Error("profile lookup failed", zap.String("user", a.UserKey.String()), zap.Error(err))
			}
			h.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		h.reattachServiceInfo(profile)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey, profile)))
	})
}

// reattachServiceInfo restores the live consumer credentials on loaded
// OAuth1 and hybrid profiles. Stores never persist consumer secrets, so
// the registered provider is the only source.
func (h *Handler) reattachServiceInfo(profile *polyauth.Profile) {
	if profile.OAuth1 == nil {
		return
	}
	provider, ok := h.cfg.Registry.Get(profile.Key.ProviderID)
	if !ok {
		return
	}
	if src, ok := provider.(polyauth.OAuth1ServiceInfo); ok {
		profile.OAuth1.ServiceInfo = src.ServiceInfo()
	}
}

// RequireUser rejects requests without an authenticated profile.
func (h *Handler) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentProfile(r.Context()) == nil {
			h.writeJSON(w, http.StatusUnauthorized, map[string]any{
				"code":    "unauthenticated",
				"message": "login required",
			})
			return
		}
		next(w, r)
	}
}
