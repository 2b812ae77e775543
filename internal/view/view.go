// Package view はサーバーサイドレンダリングのHTMLテンプレートを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/hitoshi/bookwise/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページ名（templates/<name>.html）。
const (
	PageHome       = "home"
	PageBook       = "book"
	PageSignIn     = "sign-in"
	PageSignUp     = "sign-up"
	PageTooFast    = "too-fast"
	PageAdminHome  = "admin-dashboard"
	PageAdminUsers = "admin-users"
	PageAdminBooks = "admin-books"
	PageAdminNew   = "admin-book-form"
	PageError      = "error"
)

// Data は全ページ共通のテンプレートデータ。
type Data struct {
	Title     string
	CSRFToken string
	Session   *model.Session
	Flash     string
	FormError string
	Errors    map[string]string
	Values    map[string]string
	Page      any
}

// Renderer はレイアウトと各ページを組み合わせたテンプレート集合。
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"isAdmin": func(s *model.Session) bool { return s != nil && s.Role.IsAdmin() },
	"safeHTML": func(s string) template.HTML {
		// 保存時にサニタイズ済みのあらすじのみに使う
		return template.HTML(s)
	},
	"stars": func(n int) string {
		if n < 0 {
			n = 0
		}
		if n > 5 {
			n = 5
		}
		return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
	},
}

// NewRenderer は埋め込みテンプレートを解析する。
func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := strings.TrimSuffix(path.Base(name), ".html")
		if base == "layout" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[base] = t
	}
	return r, nil
}

// Render はページを描画してステータスコードと共に書き込む。
// 描画に失敗した場合は500を返し、途中までのHTMLは送信しない。
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Data) {
	t, ok := r.pages[page]
	if !ok {
		slog.Error("unknown page template", slog.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Field は蔵書登録フォームの入力項目。
type Field struct {
	Name  string
	Label string
	Type  string
}

// BookFormFields は蔵書登録フォームの入力項目（表示順）。
var BookFormFields = []Field{
	{Name: "title", Label: "タイトル", Type: "text"},
	{Name: "author", Label: "著者", Type: "text"},
	{Name: "genre", Label: "ジャンル", Type: "text"},
	{Name: "rating", Label: "評価（1〜5）", Type: "number"},
	{Name: "totalCopies", Label: "所蔵数", Type: "number"},
	{Name: "coverUrl", Label: "表紙画像URL", Type: "url"},
	{Name: "coverColor", Label: "表紙の色", Type: "color"},
	{Name: "videoUrl", Label: "紹介動画URL", Type: "url"},
	{Name: "description", Label: "説明", Type: "textarea"},
	{Name: "summary", Label: "あらすじ", Type: "textarea"},
}
