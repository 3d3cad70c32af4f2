package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kharelcodes/bloghub/internal/domain/user"
	"github.com/kharelcodes/bloghub/internal/http/handlers"
	"github.com/kharelcodes/bloghub/internal/http/middlewares"
	"github.com/kharelcodes/bloghub/internal/security"
)

type fakeUsersRepo struct {
	getByIDFn        func(ctx context.Context, id string) (user.User, error)
	listFn           func(ctx context.Context, limit, offset int) ([]user.User, int, error)
	updateProfileFn  func(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error)
	updatePasswordFn func(ctx context.Context, id, passwordHash string) error
	toggleAdminFn    func(ctx context.Context, id string) (user.User, error)
	deleteFn         func(ctx context.Context, id string) error
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{ID: id}, nil
}

func (f *fakeUsersRepo) List(ctx context.Context, limit, offset int) ([]user.User, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error) {
	if f.updateProfileFn != nil {
		return f.updateProfileFn(ctx, id, req)
	}
	return user.User{ID: id}, nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if f.updatePasswordFn != nil {
		return f.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

func (f *fakeUsersRepo) ToggleAdmin(ctx context.Context, id string) (user.User, error) {
	if f.toggleAdminFn != nil {
		return f.toggleAdminFn(ctx, id)
	}
	return user.User{ID: id, IsAdmin: true}, nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

// asUser injects a verified identity, standing in for RequireAuth.
func asUser(id string, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, id)
		c.Set(middlewares.CtxIsAdmin, isAdmin)
		c.Next()
	}
}

func TestUpdateProfile_Ownership(t *testing.T) {
	tests := []struct {
		name       string
		actorID    string
		actorAdmin bool
		targetID   string
		wantStatus int
	}{
		{name: "self_allowed", actorID: "u1", targetID: "u1", wantStatus: http.StatusOK},
		{name: "other_forbidden", actorID: "u2", targetID: "u1", wantStatus: http.StatusForbidden},
		{name: "admin_override", actorID: "u2", actorAdmin: true, targetID: "u1", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewUsersHandler(&fakeUsersRepo{})

			r := gin.New()
			r.PUT("/users/:id", asUser(tt.actorID, tt.actorAdmin), h.UpdateProfile)

			req := httptest.NewRequest(http.MethodPut, "/users/"+tt.targetID,
				bytes.NewBufferString(`{"firstName":"Grace"}`))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	hash, err := security.HashPassword("old-password")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	repo := &fakeUsersRepo{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			return user.User{ID: id, PasswordHash: hash}, nil
		},
	}

	tests := []struct {
		name       string
		actorID    string
		actorAdmin bool
		targetID   string
		body       string
		wantStatus int
	}{
		{
			name:       "self_correct_old_password",
			actorID:    "u1",
			targetID:   "u1",
			body:       `{"oldPassword":"old-password","newPassword":"new-password-1"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "self_wrong_old_password",
			actorID:    "u1",
			targetID:   "u1",
			body:       `{"oldPassword":"not-it","newPassword":"new-password-1"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			// knowing the old secret is the gate, so even admins can't
			// change someone else's password here
			name:       "admin_cannot_change_others",
			actorID:    "admin",
			actorAdmin: true,
			targetID:   "u1",
			body:       `{"oldPassword":"old-password","newPassword":"new-password-1"}`,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewUsersHandler(repo)

			r := gin.New()
			r.PUT("/users/:id/password", asUser(tt.actorID, tt.actorAdmin), h.ChangePassword)

			req := httptest.NewRequest(http.MethodPut, "/users/"+tt.targetID+"/password",
				bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestUpdateRole_TogglesFlag(t *testing.T) {
	toggled := false

	repo := &fakeUsersRepo{
		toggleAdminFn: func(ctx context.Context, id string) (user.User, error) {
			toggled = true
			return user.User{ID: id, IsAdmin: true}, nil
		},
	}

	h := handlers.NewUsersHandler(repo)

	r := gin.New()
	r.PUT("/users/:id/role", asUser("admin", true), h.UpdateRole)

	req := httptest.NewRequest(http.MethodPut, "/users/u1/role", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if !toggled {
		t.Fatalf("expected ToggleAdmin to be called")
	}
}

func TestDeleteUser_Ownership(t *testing.T) {
	tests := []struct {
		name       string
		actorID    string
		actorAdmin bool
		wantStatus int
	}{
		{name: "self_allowed", actorID: "u1", wantStatus: http.StatusNoContent},
		{name: "other_forbidden", actorID: "u2", wantStatus: http.StatusForbidden},
		{name: "admin_override", actorID: "u2", actorAdmin: true, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewUsersHandler(&fakeUsersRepo{})

			r := gin.New()
			r.DELETE("/users/:id", asUser(tt.actorID, tt.actorAdmin), h.Delete)

			req := httptest.NewRequest(http.MethodDelete, "/users/u1", nil)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestListUsers_Pagination(t *testing.T) {
	repo := &fakeUsersRepo{
		listFn: func(ctx context.Context, limit, offset int) ([]user.User, int, error) {
			if limit != 10 || offset != 10 {
				t.Fatalf("unexpected limit/offset: %d/%d", limit, offset)
			}
			return []user.User{{ID: "u1"}}, 11, nil
		},
	}

	h := handlers.NewUsersHandler(repo)

	r := gin.New()
	r.GET("/admin/users", asUser("admin", true), h.List)

	req := httptest.NewRequest(http.MethodGet, "/admin/users?page=2&limit=10", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
}
