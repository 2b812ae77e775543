package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bookwise/internal/model"
)

// リダイレクト先のパス。
const (
	PathHome    = "/"
	PathSignIn  = "/sign-in"
	PathTooFast = "/too-fast"
)

// Category はAccessGateが保護するルートの区分。
type Category int

const (
	// CategoryPublicAuth はサインイン・サインアップ画面。
	CategoryPublicAuth Category = iota
	// CategoryAuthenticated はサインイン済みの利用者向け画面。
	CategoryAuthenticated
	// CategoryAdmin は管理者向け画面。
	CategoryAdmin
)

// String はメトリクスのラベル値を返す。
func (c Category) String() string {
	switch c {
	case CategoryPublicAuth:
		return "public_auth"
	case CategoryAuthenticated:
		return "authenticated"
	case CategoryAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// RoleFinder はユーザーの現在のロールを取得する。
type RoleFinder interface {
	FindRoleByID(ctx context.Context, userID string) (model.Role, error)
}

// RedirectRecorder はAccessGateのリダイレクトを記録する。
type RedirectRecorder interface {
	RecordAccessRedirect(category, target string)
}

// NewAccessGate はルート区分ごとのアクセス判定を行うミドルウェアを返す。
// NewSessionLoaderの内側に配置すること。
//
// 判定は次の順に評価し、最初に該当したものでリダイレクト（303）する:
//  1. CategoryPublicAuth: 有効なセッションがあれば "/"
//  2. CategoryAuthenticated: セッションが無ければ "/sign-in"
//  3. CategoryAdmin: セッションが無ければ "/sign-in"、ロールがADMINでなければ "/"
//
// 管理者判定にはセッション上のロールではなく、ロールストアの現在値を用いる。
// ロールの取得に失敗した場合は管理者ではないものとして扱う。
func NewAccessGate(category Category, roles RoleFinder, recorder RedirectRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if target := evaluate(r, category, roles); target != "" {
				if recorder != nil {
					recorder.RecordAccessRedirect(category.String(), target)
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// evaluate はリダイレクト先を返す。描画を続ける場合は空文字を返す。
func evaluate(r *http.Request, category Category, roles RoleFinder) string {
	session := SessionFromContext(r.Context())
	authenticated := session != nil && session.UserID != ""

	switch category {
	case CategoryPublicAuth:
		if authenticated {
			return PathHome
		}
		return ""

	case CategoryAuthenticated:
		if !authenticated {
			return PathSignIn
		}
		return ""

	case CategoryAdmin:
		if !authenticated {
			return PathSignIn
		}
		role, err := roles.FindRoleByID(r.Context(), session.UserID)
		if err != nil {
			slog.Error("role lookup failed",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()),
			)
			return PathHome
		}
		if !role.IsAdmin() {
			return PathHome
		}
		return ""

	default:
		return PathSignIn
	}
}
