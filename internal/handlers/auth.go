package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/usermanager/internal/auth"
	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/BradenHooton/usermanager/internal/services"
	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, userName, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	Register(ctx context.Context, input services.RegisterInput) (*models.Account, error)
	RefreshToken(ctx context.Context, principal *models.Principal) (*services.AuthResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
}

// Response DTOs

// UserResponse is returned by login and token refresh
type UserResponse struct {
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	JWT       string    `json:"jwt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MessageResponse carries a titled confirmation message
type MessageResponse struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func toUserResponse(resp *services.AuthResponse) UserResponse {
	return UserResponse{
		FirstName: resp.User.FirstName,
		LastName:  resp.User.LastName,
		JWT:       resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/account/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	ipAddress := pkghttp.ClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	authResp, err := h.service.Login(r.Context(), req.UserName, req.Password, ipAddress, userAgent)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(authResp))
}

// Register handles self-service registration. The caller is not logged in.
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/account/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	_, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{
		Title:   "Account Created",
		Message: "Your account has been created, you can login",
	})
}

// RefreshToken re-issues a session token for the authenticated caller
// @Summary Refresh session token
// @Security BearerAuth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/account/refresh-user-token [get]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipalFromContext(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	authResp, err := h.service.RefreshToken(r.Context(), principal)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(authResp))
}
