package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookwise/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger
	Pages  Renderer

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	RoleFinder        middleware.RoleFinder
	Activity          middleware.ActivitySubmitter
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig
	CORSAllowedOrigin string

	// メトリクス（nilの場合は記録しない）
	HTTPRecorder     middleware.HTTPRecorder
	RedirectRecorder middleware.RedirectRecorder
	MetricsHandler   http.Handler

	// 認証
	Authenticator     Authenticator
	SessionTerminator SessionTerminator
	AuthConfig        AuthHandlerConfig

	// 蔵書・管理
	BookService  BookService
	AdminService AdminService

	// アップロード・ヘルスチェック
	UploadSigner  UploadSigner
	HealthChecker HealthChecker
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → SessionLoader → Logging → Metrics
//
// HTMLページにはさらにCSRFとAccessGateを適用し、閲覧ページには最終利用日の記録を追加する。
// JSON API（/api/*）にはCORSと一般レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewSessionLoader(deps.SessionFinder, logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}

	authHandler := NewAuthHandler(deps.Authenticator, deps.SessionTerminator, deps.Pages, deps.AuthConfig)
	bookHandler := NewBookHandler(deps.BookService, deps.Pages)
	adminHandler := NewAdminHandler(deps.AdminService, deps.BookService, deps.Pages)
	uploadHandler := NewUploadHandler(deps.UploadSigner)

	gate := func(c middleware.Category) func(http.Handler) http.Handler {
		return middleware.NewAccessGate(c, deps.RoleFinder, deps.RedirectRecorder)
	}
	activity := middleware.NewActivityMiddleware(deps.Activity)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- JSON API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Get("/auth/imagekit", uploadHandler.AuthParams)
	})

	// --- HTMLページ ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Get(middleware.PathTooFast, authHandler.TooFast)

		// サインイン済みなら"/"へ
		r.Group(func(r chi.Router) {
			r.Use(gate(middleware.CategoryPublicAuth))
			r.Get("/sign-in", authHandler.SignInPage)
			r.Post("/sign-in", authHandler.SignIn)
			r.Get("/sign-up", authHandler.SignUpPage)
			r.Post("/sign-up", authHandler.SignUp)
		})

		// 未サインインなら"/sign-in"へ
		r.Group(func(r chi.Router) {
			r.Use(gate(middleware.CategoryAuthenticated))
			r.Post("/sign-out", authHandler.SignOut)

			r.With(activity).Get("/", bookHandler.Home)
			r.With(activity).Get("/books/{id}", bookHandler.Detail)
		})

		// ADMINでなければ"/"へ
		r.Route("/admin", func(r chi.Router) {
			r.Use(gate(middleware.CategoryAdmin))

			r.With(activity).Get("/", adminHandler.Dashboard)
			r.With(activity).Get("/users", adminHandler.Users)
			r.With(activity).Get("/books", adminHandler.Books)
			r.With(activity).Get("/books/new", adminHandler.NewBook)

			r.Post("/users/{id}/role", adminHandler.SetRole)
			r.Post("/users/{id}/status", adminHandler.SetStatus)
			r.Post("/books", adminHandler.CreateBook)
		})
	})

	return r
}
