// Package web wires the authentication engine into HTTP routes. It owns
// the cookie that carries the authenticator id and translates provider
// outcomes into redirects and JSON responses.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/polyauth/polyauth"
	"github.com/polyauth/polyauth/session"
)

// Config wires the handler's collaborators.
type Config struct {
	Registry       *polyauth.Registry
	Authenticators *polyauth.AuthenticatorService
	Users          polyauth.UserStore
	Signup         *polyauth.SignupService
	Resets         *polyauth.PasswordResetService
	Sessions       *scs.SessionManager

	// BaseURL is the externally visible URL callbacks are built from.
	BaseURL string
	// CookieName carries the authenticator id. Default "polyauth_session".
	CookieName string
	// LoginURL receives failed flows, with the error code appended as a
	// query parameter. Default "/login".
	LoginURL string
	// AfterLoginURL receives successful flows. Default "/".
	AfterLoginURL string

	Logger *zap.Logger
}

// Handler serves the authentication routes.
type Handler struct {
	cfg    Config
	logger *zap.Logger
}

func NewHandler(cfg Config) *Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "polyauth_session"
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = "/login"
	}
	if cfg.AfterLoginURL == "" {
		cfg.AfterLoginURL = "/"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, logger: cfg.Logger}
}

// Routes registers every authentication endpoint on r and returns the
// router wrapped in the session middleware.
func (h *Handler) Routes(r *mux.Router) http.Handler {
	r.Use(h.WithUser)

	r.HandleFunc("/auth/{provider}", h.handleAuthenticate).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/logout", h.handleLogout).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc("/signup", h.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/signup/{token}", h.handleActivate).Methods(http.MethodGet)

	r.HandleFunc("/password/forgot", h.handleRequestReset).Methods(http.MethodPost)
	r.HandleFunc("/reset/{token}", h.handleCheckReset).Methods(http.MethodGet)
	r.HandleFunc("/reset/{token}", h.handleCompleteReset).Methods(http.MethodPost)
	r.HandleFunc("/password", h.RequireUser(h.handleChangePassword)).Methods(http.MethodPost)

	r.HandleFunc("/me", h.RequireUser(h.handleMe)).Methods(http.MethodGet)

	return h.cfg.Sessions.LoadAndSave(r)
}

func (h *Handler) callbackURL(providerID string) string {
	return strings.TrimSuffix(h.cfg.BaseURL, "/") + "/auth/" + providerID
}

// handleAuthenticate serves both legs of every provider flow: the initial
// request that redirects out and the callback that finishes the login.
func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["provider"]
	provider, ok := h.cfg.Registry.Get(providerID)
	if !ok {
		h.failLogin(w, r, polyauth.NewAuthError(polyauth.ErrCodeUnknownProvider, "unknown login provider"))
		return
	}

	ex := session.New(h.cfg.Sessions, w, r, h.callbackURL(providerID))
	outcome := provider.Authenticate(r.Context(), ex)

	if url, ok := outcome.Redirect(); ok {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	if failure, ok := outcome.Failure(); ok {
		h.failLogin(w, r, failure)
		return
	}
	profile, ok := outcome.Profile()
	if !ok {
		h.logger.Error("provider returned an empty outcome", zap.String("provider", providerID))
		h.failLogin(w, r, polyauth.NewAuthError(polyauth.ErrCodeUpstreamError, "could not complete the login"))
		return
	}

	stored, err := h.cfg.Users.Save(r.Context(), profile, polyauth.SaveModeLoggedIn)
	if err != nil {
		h.logger.Error("profile save failed", zap.String("user", profile.Key.String()), zap.Error(err))
		h.failLogin(w, r, polyauth.NewAuthError(polyauth.ErrCodeUpstreamError, "could not complete the login"))
		return
	}
	h.establishSession(w, r, stored.Key)
	http.Redirect(w, r, h.cfg.AfterLoginURL, http.StatusFound)
}

func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, key polyauth.UserKey) {
	a, err := h.cfg.Authenticators.Create(r.Context(), key)
	if err != nil {
		h.logger.Error("authenticator creation failed", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    a.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(h.cfg.BaseURL, "https://"),
		Expires:  a.ExpiresAt,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		if err := h.cfg.Authenticators.Discard(r.Context(), c.Value); err != nil {
			h.logger.Warn("authenticator discard failed", zap.Error(err))
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, h.cfg.LoginURL, http.StatusFound)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	form := polyauth.SignUpForm{
		Username:    r.FormValue("username"),
		DisplayName: r.FormValue("displayName"),
		Email:       r.FormValue("email"),
		Password:    r.FormValue("password"),
	}
	p, err := h.cfg.Signup.CreateAccount(r.Context(), form)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"user":  p.Key.String(),
		"email": p.Email,
	})
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	p, err := h.cfg.Signup.Activate(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.establishSession(w, r, p.Key)
	http.Redirect(w, r, h.cfg.AfterLoginURL, http.StatusFound)
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Resets.RequestReset(r.Context(), r.FormValue("email")); err != nil {
		h.writeError(w, err)
		return
	}
	// The response is the same whether the address is known or not.
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "if the address is registered, a reset email is on its way",
	})
}

func (h *Handler) handleCheckReset(w http.ResponseWriter, r *http.Request) {
	if _, err := h.cfg.Resets.CheckReset(r.Context(), mux.Vars(r)["token"]); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (h *Handler) handleCompleteReset(w http.ResponseWriter, r *http.Request) {
	_, err := h.cfg.Resets.CompleteReset(r.Context(),
		mux.Vars(r)["token"], r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	profile := CurrentProfile(r.Context())
	err := h.cfg.Resets.ChangePassword(r.Context(), profile.Key,
		r.FormValue("currentPassword"), r.FormValue("newPassword"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, CurrentProfile(r.Context()))
}

func (h *Handler) failLogin(w http.ResponseWriter, r *http.Request, failure *polyauth.AuthError) {
	h.logger.Info("login failed", zap.String("code", string(failure.Code)), zap.String("message", failure.Message))
	http.Redirect(w, r, h.cfg.LoginURL+"?error="+string(failure.Code), http.StatusFound)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("response encoding failed", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var authErr *polyauth.AuthError
	if errors.As(err, &authErr) {
		status := http.StatusBadRequest
		if authErr.Code == polyauth.ErrCodeBadCredentials {
			status = http.StatusUnauthorized
		}
		h.writeJSON(w, status, map[string]any{
			"code":    authErr.Code,
			"message": authErr.Message,
			"fields":  authErr.Fields,
		})
		return
	}
	if errors.Is(err, polyauth.ErrTokenInvalid) {
		h.writeJSON(w, http.StatusGone, map[string]any{
			"code":    "token_invalid",
			"message": "the link is invalid or has expired",
		})
		return
	}
	h.logger.Error("request failed", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, map[string]any{
		"code":    "internal",
		"message": "something went wrong",
	})
}

// sessionTTL is how long the scs session outlives the flows it hosts.
const sessionTTL = 24 * time.Hour

// NewSessionManager returns an scs manager tuned for login flows.
func NewSessionManager() *scs.SessionManager {
	sm := scs.New()
	sm.Lifetime = sessionTTL
	sm.Cookie.SameSite = http.SameSiteLaxMode
	return sm
}
