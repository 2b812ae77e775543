package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/hitoshi/bookwise/internal/auth"
	"github.com/hitoshi/bookwise/internal/book"
	"github.com/hitoshi/bookwise/internal/middleware"
	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/upload"
	"github.com/hitoshi/bookwise/internal/view"
)

// --- モック定義 ---

type mockRenderer struct {
	status int
	page   string
	data   view.Data
	calls  int
}

func (m *mockRenderer) Render(w http.ResponseWriter, status int, page string, data view.Data) {
	m.calls++
	m.status = status
	m.page = page
	m.data = data
	w.WriteHeader(status)
}

type mockAuthenticator struct {
	authenticateFn func(ctx context.Context, creds auth.Credentials, clientAddr string) (*model.Session, error)
	registerFn     func(ctx context.Context, in auth.NewUser, clientAddr string) (*model.Session, error)
	calls          int
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, creds auth.Credentials, clientAddr string) (*model.Session, error) {
	m.calls++
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, creds, clientAddr)
	}
	return &model.Session{ID: "session-1", UserID: "user-1"}, nil
}

func (m *mockAuthenticator) Register(ctx context.Context, in auth.NewUser, clientAddr string) (*model.Session, error) {
	m.calls++
	if m.registerFn != nil {
		return m.registerFn(ctx, in, clientAddr)
	}
	return &model.Session{ID: "session-new", UserID: "user-new"}, nil
}

type mockSessionTerminator struct {
	signOutFn func(ctx context.Context, sessionID string) error
	signedOut []string
}

func (m *mockSessionTerminator) SignOut(ctx context.Context, sessionID string) error {
	m.signedOut = append(m.signedOut, sessionID)
	if m.signOutFn != nil {
		return m.signOutFn(ctx, sessionID)
	}
	return nil
}

type mockBookService struct {
	listLatestFn func(ctx context.Context, limit int) ([]*model.Book, error)
	getFn        func(ctx context.Context, id string) (*model.Book, error)
	createFn     func(ctx context.Context, in book.NewBook) (*model.Book, error)
}

func (m *mockBookService) ListLatest(ctx context.Context, limit int) ([]*model.Book, error) {
	if m.listLatestFn != nil {
		return m.listLatestFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockBookService) Get(ctx context.Context, id string) (*model.Book, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewBookNotFoundError(id)
}

func (m *mockBookService) Create(ctx context.Context, in book.NewBook) (*model.Book, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Book{ID: "book-new", Title: in.Title}, nil
}

type mockAdminService struct {
	dashboardFn func(ctx context.Context) (*model.DashboardStats, error)
	listUsersFn func(ctx context.Context) ([]*model.User, error)
	setRoleFn   func(ctx context.Context, actorID, userID, rawRole string) error
	setStatusFn func(ctx context.Context, actorID, userID, rawStatus string) error
}

func (m *mockAdminService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx)
	}
	return &model.DashboardStats{}, nil
}

func (m *mockAdminService) ListUsers(ctx context.Context) ([]*model.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockAdminService) SetRole(ctx context.Context, actorID, userID, rawRole string) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, actorID, userID, rawRole)
	}
	return nil
}

func (m *mockAdminService) SetStatus(ctx context.Context, actorID, userID, rawStatus string) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, actorID, userID, rawStatus)
	}
	return nil
}

type mockSigner struct {
	params upload.AuthParams
}

func (m *mockSigner) AuthenticationParameters() upload.AuthParams {
	return m.params
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- ヘルパー ---

// postForm はフォーム送信のリクエストを生成する。
func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// withSession はリクエストにセッションを注入する。
func withSession(req *http.Request, userID string, role model.Role) *http.Request {
	return req.WithContext(middleware.ContextWithSession(req.Context(), &model.Session{
		ID:     "sid-" + userID,
		UserID: userID,
		Role:   role,
	}))
}

// sessionCookie はレスポンスのセッションCookieを返す。
func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}
