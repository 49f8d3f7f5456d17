package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/usermanager/internal/auth"
	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/BradenHooton/usermanager/internal/services"
	pkghttp "github.com/BradenHooton/usermanager/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds a verified principal to the request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string, roles ...string) *http.Request {
	principal := &models.Principal{
		ID:    userID,
		Email: email,
		Roles: roles,
	}
	return req.WithContext(auth.WithPrincipal(req.Context(), principal))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// WithChiRouteContext sets URL parameters that the chi router would normally
// extract from the request path.
//
// Example usage:
//
//	req := httptest.NewRequest("PUT", "/api/admin/lock-member/abc", nil)
//	req = WithChiRouteContext(req, map[string]string{
//	    "id": "abc",
//	})
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, userName, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	RegisterFunc     func(ctx context.Context, input services.RegisterInput) (*models.Account, error)
	RefreshTokenFunc func(ctx context.Context, principal *models.Principal) (*services.AuthResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, userName, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, userName, password, ipAddress, userAgent)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (*models.Account, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	return &models.Account{ID: "new-id", UserName: input.Email}, nil
}

func (m *MockAuthService) RefreshToken(ctx context.Context, principal *models.Principal) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, principal)
	}
	return nil, models.ErrInvalidCredentials
}

// MockDirectoryService implements DirectoryServiceInterface for testing
type MockDirectoryService struct {
	ListMembersFunc     func(ctx context.Context, principal *models.Principal, term string) ([]models.MemberSummary, error)
	GetMemberFunc       func(ctx context.Context, principal *models.Principal, id string) (*models.MemberDetail, error)
	AddOrEditMemberFunc func(ctx context.Context, principal *models.Principal, spec models.MemberSpec) (*models.MemberResult, error)
	LockMemberFunc      func(ctx context.Context, principal *models.Principal, id string) error
	UnlockMemberFunc    func(ctx context.Context, principal *models.Principal, id string) error
	DeleteMemberFunc    func(ctx context.Context, principal *models.Principal, id string) error
	ListRolesFunc       func(ctx context.Context, principal *models.Principal) ([]string, error)
}

func (m *MockDirectoryService) ListMembers(ctx context.Context, principal *models.Principal, term string) ([]models.MemberSummary, error) {
	if m.ListMembersFunc != nil {
		return m.ListMembersFunc(ctx, principal, term)
	}
	return []models.MemberSummary{}, nil
}

func (m *MockDirectoryService) GetMember(ctx context.Context, principal *models.Principal, id string) (*models.MemberDetail, error) {
	if m.GetMemberFunc != nil {
		return m.GetMemberFunc(ctx, principal, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockDirectoryService) AddOrEditMember(ctx context.Context, principal *models.Principal, spec models.MemberSpec) (*models.MemberResult, error) {
	if m.AddOrEditMemberFunc != nil {
		return m.AddOrEditMemberFunc(ctx, principal, spec)
	}
	return nil, models.ErrInternalServer
}

func (m *MockDirectoryService) LockMember(ctx context.Context, principal *models.Principal, id string) error {
	if m.LockMemberFunc != nil {
		return m.LockMemberFunc(ctx, principal, id)
	}
	return nil
}

func (m *MockDirectoryService) UnlockMember(ctx context.Context, principal *models.Principal, id string) error {
	if m.UnlockMemberFunc != nil {
		return m.UnlockMemberFunc(ctx, principal, id)
	}
	return nil
}

func (m *MockDirectoryService) DeleteMember(ctx context.Context, principal *models.Principal, id string) error {
	if m.DeleteMemberFunc != nil {
		return m.DeleteMemberFunc(ctx, principal, id)
	}
	return nil
}

func (m *MockDirectoryService) ListRoles(ctx context.Context, principal *models.Principal) ([]string, error) {
	if m.ListRolesFunc != nil {
		return m.ListRolesFunc(ctx, principal)
	}
	return []string{models.RoleAdmin, models.RoleUser}, nil
}
