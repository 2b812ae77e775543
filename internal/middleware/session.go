// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bookwise/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	sessionContextKey = contextKey("session")
	csrfContextKey    = contextKey("csrf_token")
)

// SessionFinder はセッションIDから有効なセッションを解決する。
// 存在しないか期限切れの場合は(nil, nil)を返す。
type SessionFinder interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
}

// NewSessionLoader はCookieからセッションを読み取り、リクエストコンテキストに注入するミドルウェアを返す。
// セッションが無くてもリクエストは拒否しない。拒否はAccessGateが行う。
// 検索に失敗した場合はログに記録し、セッション無しとして扱う。
func NewSessionLoader(finder SessionFinder, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := finder.GetSession(r.Context(), cookie.Value)
			if err != nil {
				logger.Error("session lookup failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// SessionFromContext はリクエストコンテキストのセッションを返す。無い場合はnil。
func SessionFromContext(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionContextKey).(*model.Session)
	return s
}

// ContextWithSession はコンテキストにセッションを注入する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// UserIDFromContext はセッションのユーザーIDを返す。未認証の場合は空文字。
func UserIDFromContext(ctx context.Context) string {
	if s := SessionFromContext(ctx); s != nil {
		return s.UserID
	}
	return ""
}
