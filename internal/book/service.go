// Package book は蔵書の閲覧と登録のドメインロジックを提供する。
package book

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/repository"
)

// DefaultListLimit はトップページに表示する蔵書数。
const DefaultListLimit = 12

// URLChecker は管理者が入力した外部URLを検証する。
type URLChecker interface {
	ValidateURL(rawURL string) error
	CheckImage(ctx context.Context, rawURL string) error
}

// Sanitizer はあらすじHTMLをサニタイズする。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// NewBook は蔵書登録の入力（フォーム検証済み）。
type NewBook struct {
	Title       string
	Author      string
	Genre       string
	Rating      int
	TotalCopies int
	Description string
	CoverURL    string
	CoverColor  string
	VideoURL    string
	Summary     string
}

// Service は蔵書のサービス層。
type Service struct {
	repo      repository.BookRepository
	urls      URLChecker
	sanitizer Sanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.BookRepository, urls URLChecker, sanitizer Sanitizer) *Service {
	return &Service{
		repo:      repo,
		urls:      urls,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// ListLatest は新着順に蔵書を返す。limitが0以下の場合はDefaultListLimitを使用する。
func (s *Service) ListLatest(ctx context.Context, limit int) ([]*model.Book, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	books, err := s.repo.ListLatest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Get は指定IDの蔵書を返す。存在しない場合は*model.APIError（BOOK_NOT_FOUND）を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewBookNotFoundError(id)
	}
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if b == nil {
		return nil, model.NewBookNotFoundError(id)
	}
	return b, nil
}

// Create は蔵書を登録する。
// 表紙・動画URLを検証し、あらすじHTMLをサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, in NewBook) (*model.Book, error) {
	// 1. 外部URLの静的検証
	coverURL := strings.TrimSpace(in.CoverURL)
	videoURL := strings.TrimSpace(in.VideoURL)
	for _, u := range []string{coverURL, videoURL} {
		if err := s.urls.ValidateURL(u); err != nil {
			slog.Warn("book URL rejected",
				slog.String("url", u),
				slog.String("error", err.Error()),
			)
			return nil, model.NewSSRFBlockedError()
		}
	}

	// 2. 表紙が画像を返すことを確認
	if err := s.urls.CheckImage(ctx, coverURL); err != nil {
		slog.Warn("cover image check failed",
			slog.String("url", coverURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidURLError("表紙画像を取得できません")
	}

	// 3. 保存
	b := &model.Book{
		ID:              uuid.New().String(),
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		Genre:           strings.TrimSpace(in.Genre),
		Rating:          in.Rating,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		Description:     strings.TrimSpace(in.Description),
		CoverURL:        coverURL,
		CoverColor:      strings.ToLower(in.CoverColor),
		VideoURL:        videoURL,
		Summary:         s.sanitizer.Sanitize(in.Summary),
		CreatedAt:       s.now(),
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	slog.Info("book created", slog.String("book_id", b.ID), slog.String("title", b.Title))
	return b, nil
}

// Count は蔵書数を返す。
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}
