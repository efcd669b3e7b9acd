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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/terrier-hq/terrier/internal/authz"
	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/observability/logger"
	"github.com/terrier-hq/terrier/internal/tenant"
)

// HackathonResponse is the public view of a hackathon
type HackathonResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
}

func toHackathonResponse(h *tenant.Hackathon) HackathonResponse {
	return HackathonResponse{
		ID:          h.ID,
		Name:        h.Name,
		Slug:        h.Slug,
		Description: h.Description,
		StartDate:   h.StartDate,
		EndDate:     h.EndDate,
		IsActive:    h.IsActive,
	}
}

// CreateHackathonRequest is the body of POST /hackathons
type CreateHackathonRequest struct {
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
}

// AssignRoleRequest is the body of PUT /hackathons/{slug}/members/{userID}
type AssignRoleRequest struct {
	Role string `json:"role"`
}

// PermissionsResponse lists the client routes the caller may open
type PermissionsResponse struct {
	Role      authz.Role `json:"role"`
	HomeRoute string     `json:"home_route"`
	Routes    []string   `json:"routes"`
}

// ListHackathons lists active hackathons
// @Summary List Hackathons
// @Description List all active hackathons
// @Tags Hackathons
// @Produce json
// @Success 200 {array} HackathonResponse
// @Router /hackathons [get]
func (h *Handler) ListHackathons(w http.ResponseWriter, r *http.Request) {
	list, err := h.hackathons.ListActive(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list hackathons", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]HackathonResponse, 0, len(list))
	for _, hk := range list {
		resp = append(resp, toHackathonResponse(hk))
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateHackathon creates a hackathon
// @Summary Create Hackathon
// @Description Create a new hackathon (global admins only)
// @Tags Hackathons
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body CreateHackathonRequest true "Hackathon"
// @Success 201 {object} HackathonResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /hackathons [post]
func (h *Handler) CreateHackathon(w http.ResponseWriter, r *http.Request) {
	var req CreateHackathonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hk, err := h.hackathons.CreateHackathon(r.Context(), tenant.CreateHackathonInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsActive:    req.IsActive,
	}, actorID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrSlugTaken):
			respondError(w, http.StatusBadRequest, "slug already taken")
		case errors.Is(err, tenant.ErrInvalidHackathon):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to create hackathon", logger.Slug(req.Slug), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusCreated, toHackathonResponse(hk))
}

// GetHackathon returns one hackathon
// @Summary Get Hackathon
// @Tags Hackathons
// @Produce json
// @Security CookieAuth
// @Param slug path string true "Hackathon slug"
// @Success 200 {object} HackathonResponse
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /hackathons/{slug} [get]
func (h *Handler) GetHackathon(w http.ResponseWriter, r *http.Request) {
	hk, err := h.hackathons.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, tenant.ErrHackathonNotFound) {
			respondError(w, http.StatusNotFound, "hackathon not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load hackathon", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, toHackathonResponse(hk))
}

// GetRole returns the caller's effective role
// @Summary Get Role
// @Description Resolve the caller's effective role in the hackathon
// @Tags Hackathons
// @Produce json
// @Security CookieAuth
// @Param slug path string true "Hackathon slug"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /hackathons/{slug}/role [get]
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	er := GetEffectiveRole(r.Context())
	respondJSON(w, http.StatusOK, map[string]authz.Role{"role": er.Role})
}

// GetPermissions returns the client routes available to the caller
// @Summary Get Permissions
// @Tags Hackathons
// @Produce json
// @Security CookieAuth
// @Param slug path string true "Hackathon slug"
// @Success 200 {object} PermissionsResponse
// @Router /hackathons/{slug}/permissions [get]
func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	er := GetEffectiveRole(r.Context())
	respondJSON(w, http.StatusOK, PermissionsResponse{
		Role:      er.Role,
		HomeRoute: authz.HomeRoute(er.Role, er.Slug),
		Routes:    authz.AccessibleRoutes(er.Role),
	})
}

// ListMembers lists role holders
// @Summary List Members
// @Tags Members
// @Produce json
// @Security CookieAuth
// @Param slug path string true "Hackathon slug"
// @Success 200 {array} tenant.Member
// @Router /hackathons/{slug}/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	er := GetEffectiveRole(r.Context())
	members, err := h.hackathons.ListMembers(r.Context(), er.HackathonID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list members", logger.HackathonID(er.HackathonID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if members == nil {
		members = []*tenant.Member{}
	}
	respondJSON(w, http.StatusOK, members)
}

// AssignMember sets a user's role
// @Summary Assign Role
// @Description Grant or replace a user's role in the hackathon
// @Tags Members
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param slug path string true "Hackathon slug"
// @Param userID path string true "User ID"
// @Param request body AssignRoleRequest true "Role"
// @Success 200 {object} tenant.RoleAssignment
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /hackathons/{slug}/members/{userID} [put]
func (h *Handler) AssignMember(w http.ResponseWriter, r *http.Request) {
	er := GetEffectiveRole(r.Context())
	userID := chi.URLParam(r, "userID")

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid role")
		return
	}

	assignment, err := h.hackathons.AssignRole(r.Context(), er.HackathonID, userID, role.String(), actorID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, tenant.ErrInvalidRole):
			respondError(w, http.StatusBadRequest, "invalid role")
		default:
			slog.ErrorContext(r.Context(), "failed to assign role",
				logger.HackathonID(er.HackathonID), logger.UserID(userID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, assignment)
}

// RevokeMember removes a user's role
// @Summary Revoke Role
// @Tags Members
// @Security CookieAuth
// @Param slug path string true "Hackathon slug"
// @Param userID path string true "User ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /hackathons/{slug}/members/{userID} [delete]
func (h *Handler) RevokeMember(w http.ResponseWriter, r *http.Request) {
	er := GetEffectiveRole(r.Context())
	userID := chi.URLParam(r, "userID")

	if err := h.hackathons.RevokeRole(r.Context(), er.HackathonID, userID, actorID(r.Context())); err != nil {
		if errors.Is(err, tenant.ErrRoleNotFound) {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to revoke role",
			logger.HackathonID(er.HackathonID), logger.UserID(userID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
