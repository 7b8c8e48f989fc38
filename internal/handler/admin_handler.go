package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"thakii-backend/internal/container"
	"thakii-backend/internal/domain"
	"thakii-backend/internal/service/auth"
	"thakii-backend/pkg/errors"
)

// AdminHandler serves the admin registry endpoints
type AdminHandler struct {
	container *container.Container
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(container *container.Container) *AdminHandler {
	return &AdminHandler{
		container: container,
	}
}

// AddAdminRequest is the body of POST /admin/admins
type AddAdminRequest struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// AdminResponse wraps a single record
type AdminResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Admin   *domain.AdminRecord `json:"admin"`
}

// AdminListResponse wraps the record list
type AdminListResponse struct {
	Success bool                  `json:"success"`
	Admins  []*domain.AdminRecord `json:"admins"`
	Count   int                   `json:"count"`
}

// AdminStatsResponse wraps registry statistics
type AdminStatsResponse struct {
	Success bool               `json:"success"`
	Stats   *domain.AdminStats `json:"stats"`
}

// RegisterRoutes mounts the admin routes on r
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/admins", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Add)
		r.Get("/stats", h.Stats)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Remove)
	})
}

// List handles GET /admin/admins
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	if _, err := h.container.Authorizer.RequireAdmin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeError(w, r, err, log)
		return
	}

	admins, err := h.container.Admins.List(r.Context())
	if err != nil {
		writeError(w, r, errors.NewInternalError("Failed to fetch admins", err), log)
		return
	}

	writeJSON(w, http.StatusOK, AdminListResponse{Success: true, Admins: admins, Count: len(admins)}, log)
}

// Stats handles GET /admin/admins/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	if _, err := h.container.Authorizer.RequireAdmin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeError(w, r, err, log)
		return
	}

	stats, err := h.container.Admins.Stats(r.Context())
	if err != nil {
		writeError(w, r, errors.NewInternalError("Failed to get admin stats", err), log)
		return
	}

	writeJSON(w, http.StatusOK, AdminStatsResponse{Success: true, Stats: stats}, log)
}

// Get handles GET /admin/admins/{id}
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	if _, err := h.container.Authorizer.RequireAdmin(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeError(w, r, err, log)
		return
	}

	rec, err := h.container.Admins.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	writeJSON(w, http.StatusOK, AdminResponse{Success: true, Message: "Admin found", Admin: rec}, log)
}

// Add handles POST /admin/admins
func (h *AdminHandler) Add(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	caller, err := h.requireSuperAdmin(r)
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	var req AddAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, log)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, errors.NewValidationError("Email is required", nil).WithCode("MissingField"), log)
		return
	}

	rec, err := h.container.Admins.Add(r.Context(), req.Email, req.Role, caller.Email, req.Description)
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	writeJSON(w, http.StatusCreated, AdminResponse{
		Success: true,
		Message: "Admin " + rec.Email + " added successfully",
		Admin:   rec,
	}, log)
}

// Update handles PUT /admin/admins/{id}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	caller, err := h.requireSuperAdmin(r)
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	var update domain.AdminUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, r, err, log)
		return
	}
	if update.Empty() {
		writeError(w, r, errors.NewValidationError("No updatable fields provided", nil).WithCode("MissingField"), log)
		return
	}

	rec, err := h.container.Admins.Update(r.Context(), chi.URLParam(r, "id"), update, caller.Email)
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	writeJSON(w, http.StatusOK, AdminResponse{Success: true, Message: "Admin updated successfully", Admin: rec}, log)
}

// Remove handles DELETE /admin/admins/{id}
func (h *AdminHandler) Remove(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	caller, err := h.requireSuperAdmin(r)
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	rec, err := h.container.Admins.Remove(r.Context(), chi.URLParam(r, "id"), caller.Email)
	if err != nil {
		writeError(w, r, err, log)
		return
	}

	writeJSON(w, http.StatusOK, AdminResponse{
		Success: true,
		Message: "Admin " + rec.Email + " removed successfully",
		Admin:   rec,
	}, log)
}

// requireSuperAdmin admits admins whose email is in the configured super-admin set
func (h *AdminHandler) requireSuperAdmin(r *http.Request) (domain.UserContext, error) {
	user, err := h.container.Authorizer.RequireAdmin(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		return domain.UserContext{}, err
	}
	if !h.container.Admins.IsSuperAdmin(user.Email) {
		return domain.UserContext{}, errors.NewAuthorizationError("Super admin privileges required").
			WithCode(string(auth.KindInsufficientPrivilege))
	}
	return user, nil
}
