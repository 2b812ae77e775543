package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookwise/internal/book"
	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/view"
)

// BookService は蔵書ハンドラーが必要とするサービスインターフェース。
type BookService interface {
	ListLatest(ctx context.Context, limit int) ([]*model.Book, error)
	Get(ctx context.Context, id string) (*model.Book, error)
	Create(ctx context.Context, in book.NewBook) (*model.Book, error)
}

// BookHandler は利用者向けの蔵書ページのHTTPハンドラー。
type BookHandler struct {
	books BookService
	pages Renderer
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(books BookService, pages Renderer) *BookHandler {
	return &BookHandler{books: books, pages: pages}
}

// Home は新着の蔵書一覧を表示する。
// GET /
func (h *BookHandler) Home(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.ListLatest(r.Context(), book.DefaultListLimit)
	if err != nil {
		renderError(w, r, h.pages, err)
		return
	}

	data := pageData(r, "")
	if len(books) > 0 {
		data.Page = books
	}
	h.pages.Render(w, http.StatusOK, view.PageHome, data)
}

// Detail は蔵書の詳細を表示する。
// GET /books/{id}
func (h *BookHandler) Detail(w http.ResponseWriter, r *http.Request) {
	b, err := h.books.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, h.pages, err)
		return
	}

	data := pageData(r, b.Title)
	data.Page = b
	h.pages.Render(w, http.StatusOK, view.PageBook, data)
}
