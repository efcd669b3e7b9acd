// Copyright 2026 The Terrier Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/terrier-hq/terrier/internal/audit"
	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/observability/logger"
	"github.com/terrier-hq/terrier/internal/oidc"
	"github.com/terrier-hq/terrier/internal/session"
)

// StatusResponse describes the signed-in user
type StatusResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// Status returns the current user
// @Summary Auth Status
// @Description Return the signed-in user and whether they are a global admin
// @Tags Auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} StatusResponse
// @Failure 401 {object} map[string]string
// @Router /auth/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	a := GetAssertion(r.Context())
	if !a.Valid() {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.users.FindBySubject(r.Context(), a.Subject, a.Issuer)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load user", logger.Subject(a.Subject), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
		IsAdmin: h.resolver.IsGlobalAdmin(a.Email),
	})
}

// Login starts the authorization code flow
// @Summary Login
// @Description Redirect to the identity provider, or straight to redirect_uri when already signed in
// @Tags Auth
// @Param redirect_uri query string false "Where to land after login; must be under the app URL"
// @Success 302
// @Failure 502 {object} map[string]string
// @Router /auth/login [get]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("redirect_uri")
	redirect := safeRedirect(requested, h.cfg.AppURL)
	if requested != "" && redirect != requested {
		slog.WarnContext(r.Context(), "redirect outside app url ignored", logger.RedirectURI(requested))
	}

	if GetAssertion(r.Context()).Valid() {
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}

	ls, err := session.NewLoginState(redirect)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create login state", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	signed, err := h.sessions.SignLoginState(ls)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to sign login state", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	authURL, err := h.idp.AuthCodeURL(r.Context(), ls.State, ls.Nonce)
	if err != nil {
		slog.ErrorContext(r.Context(), "identity provider unavailable", logger.Error(err))
		respondError(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	h.setCookie(w, h.cfg.Cookies.StateName, signed, h.cfg.Cookies.StateMaxAge)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the authorization code flow
// @Summary Login Callback
// @Description Exchange the authorization code, start a session and redirect
// @Tags Auth
// @Param code query string true "Authorization code"
// @Param state query string true "Login state"
// @Success 302
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/callback [get]
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if perr := oidc.ErrorFromQuery(q); perr != nil {
		level := slog.LevelWarn
		if perr.Code == oidc.ErrCodeAccessDenied {
			level = slog.LevelInfo
		}
		slog.Log(r.Context(), level, "identity provider returned an error",
			logger.ErrorType(perr.Code), logger.String("description", perr.Description))
		h.clearCookie(w, h.cfg.Cookies.StateName)
		h.auditLoginFailed(r, perr.Code)
		respondError(w, http.StatusUnauthorized, "login failed")
		return
	}

	cookie, err := r.Cookie(h.cfg.Cookies.StateName)
	if err != nil || cookie.Value == "" {
		respondError(w, http.StatusBadRequest, "missing login state")
		return
	}
	h.clearCookie(w, h.cfg.Cookies.StateName)

	ls, err := h.sessions.ParseLoginState(cookie.Value)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid login state")
		return
	}
	if subtle.ConstantTimeCompare([]byte(ls.State), []byte(q.Get("state"))) != 1 {
		respondError(w, http.StatusBadRequest, "state mismatch")
		return
	}

	code := q.Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	a, err := h.idp.Exchange(r.Context(), code, ls.Nonce)
	if err != nil {
		slog.WarnContext(r.Context(), "code exchange failed", logger.Error(err))
		h.auditLoginFailed(r, "exchange_failed")
		respondError(w, http.StatusUnauthorized, "login failed")
		return
	}

	token, _, err := h.sessions.Issue(a)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue session", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.setCookie(w, h.cfg.Cookies.SessionName, token, h.cfg.Cookies.SessionMaxAge)

	actor := a.Subject
	if user := h.syncer.Sync(r.Context(), a); user != nil {
		actor = user.ID
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLoginSuccess,
		ActorID:   actor,
		Resource:  "session",
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{"issuer": a.Issuer},
	})

	http.Redirect(w, r, safeRedirect(ls.Redirect, h.cfg.AppURL), http.StatusFound)
}

// Logout ends the session
// @Summary Logout
// @Description Clear the session cookie and hand off to the provider's end-session endpoint
// @Tags Auth
// @Security CookieAuth
// @Success 302
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, h.cfg.Cookies.SessionName)

	if GetAssertion(r.Context()).Valid() {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeLogout,
			ActorID:   actorID(r.Context()),
			Resource:  "session",
			IPAddress: getClientIP(r),
			UserAgent: r.UserAgent(),
		})
	}

	target := h.cfg.AppURL
	endSession, err := h.idp.EndSessionURL(r.Context(), h.cfg.AppURL)
	if err != nil {
		slog.WarnContext(r.Context(), "end-session endpoint unavailable", logger.Error(err))
	} else if endSession != "" {
		target = endSession
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) auditLoginFailed(r *http.Request, reason string) {
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLoginFailed,
		Resource:  "session",
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{"reason": reason},
	})
}

// safeRedirect returns target when it lies under appURL, otherwise appURL.
// A bare prefix match is not enough: https://app.example.com.evil.io must
// not pass for https://app.example.com.
func safeRedirect(target, appURL string) string {
	if target == "" || !strings.HasPrefix(target, appURL) {
		return appURL
	}
	if strings.HasSuffix(appURL, "/") {
		return target
	}
	rest := target[len(appURL):]
	if rest == "" || strings.ContainsAny(rest[:1], "/?#") {
		return target
	}
	return appURL
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.Cookies.Path,
		Domain:   h.cfg.Cookies.Domain,
		Secure:   h.cfg.Cookies.Secure,
		HttpOnly: h.cfg.Cookies.HTTPOnly,
		SameSite: h.cfg.Cookies.SameSite,
		MaxAge:   int(maxAge.Seconds()),
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   h.cfg.Cookies.Path,
		Domain: h.cfg.Cookies.Domain,
		MaxAge: -1,
	})
}
