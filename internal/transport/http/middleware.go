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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/terrier-hq/terrier/internal/audit"
	"github.com/terrier-hq/terrier/internal/authz"
	"github.com/terrier-hq/terrier/internal/observability/logger"
	"github.com/terrier-hq/terrier/internal/session"
)

// Request pipeline order, outermost first:
//   CSRFMiddleware -> SessionMiddleware -> SyncMiddleware -> RequireAuth ->
//   ResolveHackathonRole -> RequireCapability -> handler
// Each stage relies on the context values set by the previous one.

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.DebugContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// SessionMiddleware reads the session cookie and, when it is valid, places
// the identity assertion in the request context. Invalid or expired cookies
// are cleared and the request continues anonymously.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(h.cfg.Cookies.SessionName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := h.sessions.Parse(cookie.Value)
		if err != nil {
			if !errors.Is(err, session.ErrSessionExpired) {
				slog.DebugContext(r.Context(), "rejected session cookie", logger.Error(err))
			}
			h.clearCookie(w, h.cfg.Cookies.SessionName)
			next.ServeHTTP(w, r)
			return
		}

		a := sess.Assertion
		ctx := context.WithValue(r.Context(), assertionKey, &a)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SyncMiddleware provisions the local user for an authenticated request
// before anything downstream runs. It never fails the request.
func (h *Handler) SyncMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := GetAssertion(r.Context())
		if a == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		if user := h.syncer.Sync(ctx, a); user != nil {
			ctx = context.WithValue(ctx, userKey, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetAssertion(r.Context()).Valid() {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireGlobalAdmin only admits identities whose email is in the admin set.
// An identity without an email is authenticated but never an admin.
func (h *Handler) RequireGlobalAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := GetAssertion(r.Context())
		if !a.Valid() {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !h.resolver.IsGlobalAdmin(a.Email) {
			h.auditDenied(r, "", "global_admin")
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ResolveHackathonRole resolves the caller's effective role in the hackathon
// named by the {slug} path parameter.
func (h *Handler) ResolveHackathonRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		er, err := h.resolver.Resolve(r.Context(), slug, GetAssertion(r.Context()))
		if err != nil {
			if errors.Is(err, authz.ErrForbidden) {
				h.auditDenied(r, "", "hackathon:"+slug)
			}
			respondAuthzError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), effectiveRoleKey, er)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability rejects callers whose effective role lacks c.
// It must run after ResolveHackathonRole.
func (h *Handler) RequireCapability(c authz.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			er := GetEffectiveRole(r.Context())
			if er == nil {
				respondError(w, http.StatusForbidden, "forbidden")
				return
			}
			if !er.Role.Has(c) {
				h.auditDenied(r, er.HackathonID, string(c))
				respondError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFMiddleware rejects state-changing browser requests that originate
// outside the app. Requests carrying neither Origin nor Referer come from
// non-browser clients and pass.
func (h *Handler) CSRFMiddleware(next http.Handler) http.Handler {
	allowed := originOf(h.cfg.AppURL)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		source := r.Header.Get("Origin")
		if source == "" {
			source = r.Header.Get("Referer")
		}
		if source != "" && originOf(source) != allowed {
			slog.WarnContext(r.Context(), "cross-origin request rejected",
				logger.Method(r.Method), logger.Path(r.URL.Path), logger.String("origin", source))
			respondError(w, http.StatusForbidden, "cross-origin request rejected")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originOf reduces a URL to scheme://host. Unparseable input yields "".
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func (h *Handler) auditDenied(r *http.Request, hackathonID, required string) {
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:        audit.TypeAccessDenied,
		HackathonID: hackathonID,
		ActorID:     actorID(r.Context()),
		Resource:    r.URL.Path,
		IPAddress:   getClientIP(r),
		UserAgent:   r.UserAgent(),
		Metadata:    map[string]any{"required": required},
	})
}
