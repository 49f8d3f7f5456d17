package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/usermanager/internal/auth"
	"github.com/BradenHooton/usermanager/internal/models"
	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
	"github.com/go-chi/chi/v5"
)

// DirectoryServiceInterface defines the administrative member directory contract
type DirectoryServiceInterface interface {
	ListMembers(ctx context.Context, principal *models.Principal, term string) ([]models.MemberSummary, error)
	GetMember(ctx context.Context, principal *models.Principal, id string) (*models.MemberDetail, error)
	AddOrEditMember(ctx context.Context, principal *models.Principal, spec models.MemberSpec) (*models.MemberResult, error)
	LockMember(ctx context.Context, principal *models.Principal, id string) error
	UnlockMember(ctx context.Context, principal *models.Principal, id string) error
	DeleteMember(ctx context.Context, principal *models.Principal, id string) error
	ListRoles(ctx context.Context, principal *models.Principal) ([]string, error)
}

// AdminHandler handles member administration HTTP requests
type AdminHandler struct {
	service DirectoryServiceInterface
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service DirectoryServiceInterface, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

// MemberAddEditRequest creates a member when ID is empty and edits it otherwise
type MemberAddEditRequest struct {
	ID        string `json:"id" validate:"omitempty,uuid"`
	UserName  string `json:"userName" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Password  string `json:"password" validate:"omitempty,max=72"`
	Roles     string `json:"roles"`
}

// GetMembers handles GET /api/admin/get-members?term=
func (h *AdminHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), auth.GetPrincipalFromContext(r), r.URL.Query().Get("term"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, members)
}

// GetMember handles GET /api/admin/get-member/{id}
func (h *AdminHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.service.GetMember(r.Context(), auth.GetPrincipalFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, member)
}

// AddEditMember handles POST /api/admin/add-edit-member
func (h *AdminHandler) AddEditMember(w http.ResponseWriter, r *http.Request) {
	var req MemberAddEditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	result, err := h.service.AddOrEditMember(r.Context(), auth.GetPrincipalFromContext(r), models.MemberSpec{
		ID:        req.ID,
		UserName:  req.UserName,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Roles:     req.Roles,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Title: result.Title, Message: result.Message})
}

// LockMember handles PUT /api/admin/lock-member/{id}
func (h *AdminHandler) LockMember(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.LockMember)
}

// UnlockMember handles PUT /api/admin/unlock-member/{id}
func (h *AdminHandler) UnlockMember(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.UnlockMember)
}

// DeleteMember handles DELETE /api/admin/delete-member/{id}
func (h *AdminHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.DeleteMember)
}

func (h *AdminHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, *models.Principal, string) error) {
	if err := op(r.Context(), auth.GetPrincipalFromContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteNoContent(w)
}

// GetApplicationRoles handles GET /api/admin/get-application-roles
func (h *AdminHandler) GetApplicationRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), auth.GetPrincipalFromContext(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, roles)
}
