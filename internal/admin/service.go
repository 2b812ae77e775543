// Package admin は管理画面のドメインロジックを提供する。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/repository"
)

// UserStore は管理操作が利用するユーザー永続化の操作。
type UserStore interface {
	List(ctx context.Context) ([]*model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role) error
	UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status model.AccountStatus) (int, error)
}

// SessionRevoker はユーザーの全セッションを破棄する。
type SessionRevoker interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// BookCounter は蔵書数を返す。
type BookCounter interface {
	Count(ctx context.Context) (int, error)
}

// Service は管理者向けのサービス層。
type Service struct {
	users    UserStore
	sessions SessionRevoker
	books    BookCounter
}

// NewService はServiceを生成する。
func NewService(users UserStore, sessions SessionRevoker, books BookCounter) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		books:    books,
	}
}

// Dashboard は管理画面トップの集計値を返す。
func (s *Service) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	pending, err := s.users.CountByStatus(ctx, model.AccountStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending accounts: %w", err)
	}
	books, err := s.books.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	return &model.DashboardStats{
		TotalUsers:      users,
		PendingAccounts: pending,
		TotalBooks:      books,
	}, nil
}

// ListUsers は全ユーザーを返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetRole はユーザーのロールを変更する。
// 管理者が自分自身を一般利用者に降格することはできない。
func (s *Service) SetRole(ctx context.Context, actorID, userID, rawRole string) error {
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return model.NewInvalidRoleError(rawRole)
	}
	if actorID == userID && !role.IsAdmin() {
		return model.NewSelfDemotionError()
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("failed to update role: %w", err)
	}

	slog.Info("user role changed",
		slog.String("actor_id", actorID),
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)
	return nil
}

// SetStatus はアカウントの承認状態を変更する。
// 却下されたユーザーのセッションはすべて破棄する。
func (s *Service) SetStatus(ctx context.Context, actorID, userID, rawStatus string) error {
	status, err := model.ParseAccountStatus(rawStatus)
	if err != nil {
		return model.NewInvalidStatusError(rawStatus)
	}

	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("failed to update status: %w", err)
	}

	if status == model.AccountStatusRejected {
		if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}

	slog.Info("account status changed",
		slog.String("actor_id", actorID),
		slog.String("user_id", userID),
		slog.String("status", string(status)),
	)
	return nil
}
