// Package auth はパスワード認証、セッション管理、認証アクションを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/repository"
)

// UserStore はServiceが利用するユーザー永続化の操作。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

// SessionStore はServiceが利用するセッション永続化の操作。
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// NewUser はサインアップ時の入力。
type NewUser struct {
	FullName       string
	Email          string
	UniversityID   int
	UniversityCard string
	Password       string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 0の場合はbcrypt.DefaultCost
}

// Service はセッションの発行・検証を担うセッションプロバイダー。
type Service struct {
	userRepo    UserStore
	sessionRepo SessionStore
	config      ServiceConfig
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService はServiceを生成する。
func NewService(userRepo UserStore, sessionRepo SessionStore, config ServiceConfig) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		now:         time.Now,
	}
}

// NormalizeEmail はメールアドレスを比較用に正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetSession はセッションIDに対応する有効なセッションを返す。
// セッションが存在しないか期限切れの場合はnilを返す。
func (s *Service) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if !session.Valid(s.now()) {
		return nil, nil
	}
	return session, nil
}

// ExchangeCredentials はメールアドレスとパスワードを検証し、新しいセッションを発行する。
// リダイレクトは行わず、結果のみを返す。
// 未登録のメールアドレスと誤ったパスワードは同じ*CredentialsErrorになる。
func (s *Service) ExchangeCredentials(ctx context.Context, email, password string) (*model.Session, error) {
	// 1. ユーザーを検索
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// 2. パスワードを照合（未登録でも同等の計算時間をかける）
	if user == nil {
		bcrypt.CompareHashAndPassword(s.timingHash(), []byte(password))
		return nil, &CredentialsError{Message: MsgInvalidCredentials}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, &CredentialsError{Message: MsgInvalidCredentials}
	}

	// 3. 却下済みアカウントはパスワード照合後に拒否する
	if user.Status == model.AccountStatusRejected {
		return nil, &CredentialsError{Message: MsgAccountRejected}
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user signed in", slog.String("user_id", user.ID))
	return session, nil
}

// SignUp はユーザーを登録し、新しいセッションを発行する。
// 新規ユーザーは承認待ち（PENDING）の一般利用者として作成される。
func (s *Service) SignUp(ctx context.Context, in NewUser) (*model.Session, error) {
	// 1. パスワードをハッシュ化
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 2. ユーザーを作成
	now := s.now()
	user := &model.User{
		ID:             uuid.New().String(),
		FullName:       strings.TrimSpace(in.FullName),
		Email:          NormalizeEmail(in.Email),
		UniversityID:   in.UniversityID,
		UniversityCard: in.UniversityCard,
		PasswordHash:   string(hash),
		Status:         model.AccountStatusPending,
		Role:           model.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &CredentialsError{Message: MsgDuplicateAccount, Err: err}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.Int("university_id", user.UniversityID),
	)

	// 3. セッションを発行
	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// SignOut はセッションを破棄する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user signed out")
	return nil
}

// GetCurrentUser はユーザーIDからユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// timingHash は未登録ユーザーの照合に使うダミーハッシュを返す。
func (s *Service) timingHash() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("bookwise-unknown-user"), s.config.BcryptCost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
