package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bookwise/internal/auth"
	"github.com/hitoshi/bookwise/internal/form"
	"github.com/hitoshi/bookwise/internal/middleware"
	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/view"
)

// Authenticator はレート制限付きの認証アクション。auth.Authenticatorが実装する。
type Authenticator interface {
	Authenticate(ctx context.Context, creds auth.Credentials, clientAddr string) (*model.Session, error)
	Register(ctx context.Context, in auth.NewUser, clientAddr string) (*model.Session, error)
}

// SessionTerminator はセッションを破棄する。auth.Serviceが実装する。
type SessionTerminator interface {
	SignOut(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインイン・サインアップ・サインアウトのHTTPハンドラー。
type AuthHandler struct {
	authn     Authenticator
	sessions  SessionTerminator
	pages     Renderer
	validator *form.Validator
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(authn Authenticator, sessions SessionTerminator, pages Renderer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		authn:     authn,
		sessions:  sessions,
		pages:     pages,
		validator: form.NewValidator(),
		config:    config,
	}
}

// SignInPage はサインインフォームを表示する。
// GET /sign-in
func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, view.PageSignIn, pageData(r, "サインイン"))
}

// SignIn はサインインを実行する。
// POST /sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	f := form.ParseSignIn(r)

	data := pageData(r, "サインイン")
	data.Values["email"] = f.Email

	if errs := h.validator.Validate(f); errs != nil {
		data.Errors = errs
		h.pages.Render(w, http.StatusUnprocessableEntity, view.PageSignIn, data)
		return
	}

	session, err := h.authn.Authenticate(r.Context(), auth.Credentials{
		Email:    f.Email,
		Password: f.Password,
	}, middleware.ClientAddress(r))
	h.complete(w, r, session, err, view.PageSignIn, data)
}

// SignUpPage はサインアップフォームを表示する。
// GET /sign-up
func (h *AuthHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, view.PageSignUp, pageData(r, "新規登録"))
}

// SignUp はアカウントを作成してサインインする。
// POST /sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	f := form.ParseSignUp(r)

	data := pageData(r, "新規登録")
	data.Values["fullName"] = f.FullName
	data.Values["email"] = f.Email
	data.Values["universityId"] = f.UniversityID
	data.Values["universityCard"] = f.UniversityCard

	if errs := h.validator.Validate(f); errs != nil {
		data.Errors = errs
		h.pages.Render(w, http.StatusUnprocessableEntity, view.PageSignUp, data)
		return
	}

	session, err := h.authn.Register(r.Context(), auth.NewUser{
		FullName:       f.FullName,
		Email:          f.Email,
		UniversityID:   f.UniversityIDNumber(),
		UniversityCard: f.UniversityCard,
		Password:       f.Password,
	}, middleware.ClientAddress(r))
	h.complete(w, r, session, err, view.PageSignUp, data)
}

// complete は認証アクションの結果に応じて応答する。
// レート制限は/too-fastへ、資格情報のエラーはフォームの再表示、成功時はCookieを設定して"/"へ遷移する。
func (h *AuthHandler) complete(w http.ResponseWriter, r *http.Request, session *model.Session, err error, page string, data view.Data) {
	if errors.Is(err, auth.ErrRateLimited) {
		seeOther(w, r, middleware.PathTooFast)
		return
	}
	if err != nil {
		var credErr *auth.CredentialsError
		if errors.As(err, &credErr) {
			data.FormError = credErr.Message
		} else {
			data.FormError = auth.MsgAuthUnavailable
		}
		h.pages.Render(w, http.StatusUnprocessableEntity, page, data)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	seeOther(w, r, middleware.PathHome)
}

// SignOut はセッションを破棄する。
// POST /sign-out
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if signOutErr := h.sessions.SignOut(r.Context(), cookie.Value); signOutErr != nil {
			// 失敗してもCookieはクリアする
			slog.Error("failed to sign out", slog.String("error", signOutErr.Error()))
		}
	}

	h.setSessionCookie(w, "", -1)
	seeOther(w, r, middleware.PathSignIn)
}

// TooFast はレート制限の案内ページを表示する。
// GET /too-fast
func (h *AuthHandler) TooFast(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusTooManyRequests, view.PageTooFast, pageData(r, "少し待ってください"))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
