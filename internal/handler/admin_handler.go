package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookwise/internal/book"
	"github.com/hitoshi/bookwise/internal/form"
	"github.com/hitoshi/bookwise/internal/middleware"
	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/view"
)

// adminBookListLimit は管理画面の蔵書一覧の表示件数。
const adminBookListLimit = 100

// AdminService は管理ハンドラーが必要とするサービスインターフェース。
type AdminService interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	SetRole(ctx context.Context, actorID, userID, rawRole string) error
	SetStatus(ctx context.Context, actorID, userID, rawStatus string) error
}

// AdminHandler は管理画面のHTTPハンドラー。
type AdminHandler struct {
	admin     AdminService
	books     BookService
	pages     Renderer
	validator *form.Validator
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(admin AdminService, books BookService, pages Renderer) *AdminHandler {
	return &AdminHandler{
		admin:     admin,
		books:     books,
		pages:     pages,
		validator: form.NewValidator(),
	}
}

// Dashboard は管理画面トップを表示する。
// GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Dashboard(r.Context())
	if err != nil {
		renderError(w, r, h.pages, err)
		return
	}

	data := pageData(r, "管理画面")
	data.Page = stats
	h.pages.Render(w, http.StatusOK, view.PageAdminHome, data)
}

// Users はユーザー一覧を表示する。
// GET /admin/users
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	h.renderUsers(w, r, http.StatusOK, "")
}

// SetRole はユーザーのロールを変更する。
// POST /admin/users/{id}/role
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	err := h.admin.SetRole(r.Context(),
		middleware.UserIDFromContext(r.Context()),
		chi.URLParam(r, "id"),
		r.PostFormValue("role"),
	)
	h.afterUserUpdate(w, r, err)
}

// SetStatus はユーザーのアカウント状態を変更する。
// POST /admin/users/{id}/status
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	err := h.admin.SetStatus(r.Context(),
		middleware.UserIDFromContext(r.Context()),
		chi.URLParam(r, "id"),
		r.PostFormValue("status"),
	)
	h.afterUserUpdate(w, r, err)
}

// afterUserUpdate は更新に成功した場合は一覧へ遷移し、
// 入力起因のエラーは一覧をメッセージ付きで再表示する。
func (h *AdminHandler) afterUserUpdate(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		seeOther(w, r, "/admin/users")
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		h.renderUsers(w, r, middleware.StatusForCode(apiErr.Code), apiErr.Message)
		return
	}
	renderError(w, r, h.pages, err)
}

func (h *AdminHandler) renderUsers(w http.ResponseWriter, r *http.Request, status int, flash string) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		renderError(w, r, h.pages, err)
		return
	}

	data := pageData(r, "ユーザー")
	data.Flash = flash
	data.Page = users
	h.pages.Render(w, status, view.PageAdminUsers, data)
}

// Books は蔵書一覧を表示する。
// GET /admin/books
func (h *AdminHandler) Books(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.ListLatest(r.Context(), adminBookListLimit)
	if err != nil {
		renderError(w, r, h.pages, err)
		return
	}

	data := pageData(r, "書籍")
	data.Page = books
	h.pages.Render(w, http.StatusOK, view.PageAdminBooks, data)
}

// NewBook は蔵書登録フォームを表示する。
// GET /admin/books/new
func (h *AdminHandler) NewBook(w http.ResponseWriter, r *http.Request) {
	data := pageData(r, "書籍の登録")
	data.Page = view.BookFormFields
	data.Values["rating"] = "5"
	data.Values["totalCopies"] = "1"
	data.Values["coverColor"] = "#000000"
	h.pages.Render(w, http.StatusOK, view.PageAdminNew, data)
}

// CreateBook は蔵書を登録する。
// POST /admin/books
func (h *AdminHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	f := form.ParseBook(r)

	data := pageData(r, "書籍の登録")
	data.Page = view.BookFormFields
	for _, field := range view.BookFormFields {
		data.Values[field.Name] = r.PostFormValue(field.Name)
	}

	if errs := h.validator.Validate(f); errs != nil {
		data.Errors = errs
		h.pages.Render(w, http.StatusUnprocessableEntity, view.PageAdminNew, data)
		return
	}

	created, err := h.books.Create(r.Context(), book.NewBook{
		Title:       f.Title,
		Author:      f.Author,
		Genre:       f.Genre,
		Rating:      f.Rating,
		TotalCopies: f.TotalCopies,
		Description: f.Description,
		CoverURL:    f.CoverURL,
		CoverColor:  f.CoverColor,
		VideoURL:    f.VideoURL,
		Summary:     f.Summary,
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Category == "validation" {
			data.FormError = apiErr.Message
			h.pages.Render(w, http.StatusUnprocessableEntity, view.PageAdminNew, data)
			return
		}
		renderError(w, r, h.pages, err)
		return
	}

	seeOther(w, r, "/books/"+created.ID)
}
