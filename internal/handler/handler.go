// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bookwise/internal/middleware"
	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/view"
)

// Renderer はHTMLページを描画する。view.Rendererが実装する。
type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, data view.Data)
}

// pageData はリクエストから全ページ共通のテンプレートデータを組み立てる。
func pageData(r *http.Request, title string) view.Data {
	return view.Data{
		Title:     title,
		CSRFToken: middleware.CSRFToken(r.Context()),
		Session:   middleware.SessionFromContext(r.Context()),
		Values:    map[string]string{},
	}
}

// seeOther は303でリダイレクトする。
func seeOther(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// renderError はサービス層のエラーをエラーページとして描画する。
// *model.APIError以外は内部エラーとして扱い、詳細はログにのみ記録する。
func renderError(w http.ResponseWriter, r *http.Request, pages Renderer, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("internal server error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apiErr = model.NewInternalError()
	}

	data := pageData(r, "エラー")
	data.Page = apiErr
	pages.Render(w, middleware.StatusForCode(apiErr.Code), view.PageError, data)
}
