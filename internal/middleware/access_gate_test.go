package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bookwise/internal/model"
)

// --- モック定義 ---

type mockRoleFinder struct {
	calls  int
	roleFn func(ctx context.Context, userID string) (model.Role, error)
}

func (m *mockRoleFinder) FindRoleByID(ctx context.Context, userID string) (model.Role, error) {
	m.calls++
	if m.roleFn != nil {
		return m.roleFn(ctx, userID)
	}
	return model.RoleUser, nil
}

func rolesReturning(role model.Role) *mockRoleFinder {
	return &mockRoleFinder{
		roleFn: func(_ context.Context, _ string) (model.Role, error) { return role, nil },
	}
}

type mockRedirectRecorder struct {
	redirects []string
}

func (m *mockRedirectRecorder) RecordAccessRedirect(category, target string) {
	m.redirects = append(m.redirects, category+"->"+target)
}

// serveGate はセッションをコンテキストに入れてゲートを通し、レスポンスとハンドラー到達の有無を返す。
func serveGate(t *testing.T, category Category, roles RoleFinder, session *model.Session) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	handler := NewAccessGate(category, roles, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	if session != nil {
		req = req.WithContext(ContextWithSession(req.Context(), session))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, reached
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, reached bool, want string) {
	t.Helper()
	if reached {
		t.Error("protected handler must not run")
	}
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}
}

// --- テスト ---

func TestAccessGate_UserSessionOnAdminRoute_RedirectsHome(t *testing.T) {
	roles := rolesReturning(model.RoleUser)
	w, reached := serveGate(t, CategoryAdmin, roles, validSession("user-1", model.RoleUser))

	assertRedirect(t, w, reached, "/")
	if roles.calls != 1 {
		t.Errorf("FindRoleByID calls = %d, want 1", roles.calls)
	}
}

func TestAccessGate_NoSessionOnAuthenticatedRoute_RedirectsSignIn(t *testing.T) {
	w, reached := serveGate(t, CategoryAuthenticated, &mockRoleFinder{}, nil)
	assertRedirect(t, w, reached, "/sign-in")
}

func TestAccessGate_SessionOnPublicAuthRoute_RedirectsHome(t *testing.T) {
	w, reached := serveGate(t, CategoryPublicAuth, &mockRoleFinder{}, validSession("user-1", model.RoleUser))
	assertRedirect(t, w, reached, "/")
}

func TestAccessGate_NoSessionOnAdminRoute_RedirectsSignInWithoutRoleLookup(t *testing.T) {
	roles := &mockRoleFinder{}
	w, reached := serveGate(t, CategoryAdmin, roles, nil)

	assertRedirect(t, w, reached, "/sign-in")
	if roles.calls != 0 {
		t.Errorf("FindRoleByID calls = %d, want 0", roles.calls)
	}
}

func TestAccessGate_Renders(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		roles    RoleFinder
		session  *model.Session
	}{
		{"public auth without session", CategoryPublicAuth, &mockRoleFinder{}, nil},
		{"authenticated with session", CategoryAuthenticated, &mockRoleFinder{}, validSession("u1", model.RoleUser)},
		{"admin with admin role", CategoryAdmin, rolesReturning(model.RoleAdmin), validSession("u1", model.RoleAdmin)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, reached := serveGate(t, tt.category, tt.roles, tt.session)
			if !reached {
				t.Error("expected handler to run")
			}
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

// TestAccessGate_AdminUsesStoredRole はセッション上のロールではなく現在のロールで判定することを検証する。
func TestAccessGate_AdminUsesStoredRole(t *testing.T) {
	// セッションはADMINのままだが降格済み
	w, reached := serveGate(t, CategoryAdmin, rolesReturning(model.RoleUser), validSession("u1", model.RoleAdmin))
	assertRedirect(t, w, reached, "/")

	// セッションはUSERだが昇格済み
	_, reached = serveGate(t, CategoryAdmin, rolesReturning(model.RoleAdmin), validSession("u2", model.RoleUser))
	if !reached {
		t.Error("promoted user should reach the admin handler")
	}
}

func TestAccessGate_RoleLookupFailure_RedirectsHome(t *testing.T) {
	roles := &mockRoleFinder{
		roleFn: func(_ context.Context, _ string) (model.Role, error) {
			return "", errors.New("db down")
		},
	}
	w, reached := serveGate(t, CategoryAdmin, roles, validSession("u1", model.RoleAdmin))
	assertRedirect(t, w, reached, "/")
}

// TestAccessGate_AllNonAdminRoles はADMIN以外の全ロールが管理画面から除外されることを検証する。
func TestAccessGate_AllNonAdminRoles(t *testing.T) {
	for _, role := range []model.Role{model.RoleUser, "", "admin", "SUPERUSER"} {
		t.Run(string(role), func(t *testing.T) {
			w, reached := serveGate(t, CategoryAdmin, rolesReturning(role), validSession("u1", model.RoleUser))
			assertRedirect(t, w, reached, "/")
		})
	}
}

func TestAccessGate_RecordsRedirects(t *testing.T) {
	rec := &mockRedirectRecorder{}
	handler := NewAccessGate(CategoryAuthenticated, &mockRoleFinder{}, rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(rec.redirects) != 1 || rec.redirects[0] != "authenticated->/sign-in" {
		t.Errorf("redirects = %v, want [authenticated->/sign-in]", rec.redirects)
	}
}

func TestCategory_String(t *testing.T) {
	tests := map[Category]string{
		CategoryPublicAuth:    "public_auth",
		CategoryAuthenticated: "authenticated",
		CategoryAdmin:         "admin",
		Category(99):          "unknown",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("Category(%d).String() = %q, want %q", c, got, want)
		}
	}
}
