package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

// --- compile-time interface checks ---
var _ UserStore = (*mockUserRepo)(nil)
var _ SessionStore = (*mockSessionRepo)(nil)
var _ UserStore = (*repository.PostgresUserRepo)(nil)
var _ SessionStore = (*repository.PostgresSessionRepo)(nil)
var _ CredentialProvider = (*Service)(nil)

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(h)
}

func testConfig() ServiceConfig {
	return ServiceConfig{SessionMaxAge: 3600, BcryptCost: bcrypt.MinCost}
}

// --- テスト ---

func TestExchangeCredentials_ValidPassword_IssuesSession(t *testing.T) {
	stored := &model.User{
		ID:           "user-1",
		Email:        "student@uni.edu",
		PasswordHash: hashPassword(t, "correct-horse"),
		Role:         model.RoleAdmin,
	}

	var lookedUp string
	var saved *model.Session
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			lookedUp = email
			return stored, nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, s *model.Session) error {
			saved = s
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, testConfig())
	fixed := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	session, err := svc.ExchangeCredentials(context.Background(), "  Student@Uni.EDU ", "correct-horse")
	if err != nil {
		t.Fatalf("ExchangeCredentials returned error: %v", err)
	}

	if lookedUp != "student@uni.edu" {
		t.Errorf("email lookup = %q, want normalized %q", lookedUp, "student@uni.edu")
	}
	if session.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", session.UserID, "user-1")
	}
	if session.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", session.Role, model.RoleAdmin)
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if !session.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", session.ExpiresAt, fixed.Add(time.Hour))
	}
	if saved != session {
		t.Error("expected the issued session to be persisted")
	}
}

func TestExchangeCredentials_WrongPassword_ReturnsCredentialsError(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1", PasswordHash: hashPassword(t, "correct-horse")}, nil
		},
	}
	sessionCreated := false
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, _ *model.Session) error {
			sessionCreated = true
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, testConfig())
	_, err := svc.ExchangeCredentials(context.Background(), "student@uni.edu", "wrong-password")

	var credErr *CredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want *CredentialsError", err)
	}
	if credErr.Message != MsgInvalidCredentials {
		t.Errorf("Message = %q, want %q", credErr.Message, MsgInvalidCredentials)
	}
	if sessionCreated {
		t.Error("session must not be created on wrong password")
	}
}

func TestExchangeCredentials_RejectedAccount_ReturnsCredentialsError(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				PasswordHash: hashPassword(t, "correct-horse"),
				Status:       model.AccountStatusRejected,
			}, nil
		},
	}
	sessionCreated := false
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, _ *model.Session) error {
			sessionCreated = true
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, testConfig())
	_, err := svc.ExchangeCredentials(context.Background(), "student@uni.edu", "correct-horse")

	var credErr *CredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want *CredentialsError", err)
	}
	if credErr.Message != MsgAccountRejected {
		t.Errorf("Message = %q, want %q", credErr.Message, MsgAccountRejected)
	}
	if sessionCreated {
		t.Error("session must not be created for a rejected account")
	}
}

func TestExchangeCredentials_UnknownEmail_SameErrorAsWrongPassword(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, testConfig())

	_, err := svc.ExchangeCredentials(context.Background(), "nobody@uni.edu", "whatever-pass")

	var credErr *CredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want *CredentialsError", err)
	}
	if credErr.Message != MsgInvalidCredentials {
		t.Errorf("Message = %q, want %q", credErr.Message, MsgInvalidCredentials)
	}
}

func TestExchangeCredentials_RepoError_IsNotCredentialsError(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, testConfig())

	_, err := svc.ExchangeCredentials(context.Background(), "student@uni.edu", "password1")
	if err == nil {
		t.Fatal("expected error")
	}
	var credErr *CredentialsError
	if errors.As(err, &credErr) {
		t.Error("repository failure must not be reported as a credentials error")
	}
}

func TestSignUp_CreatesPendingUserAndSession(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, u *model.User) error {
			created = u
			return nil
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, testConfig())

	session, err := svc.SignUp(context.Background(), NewUser{
		FullName:       "  Ada Lovelace ",
		Email:          "Ada@Uni.edu",
		UniversityID:   123456,
		UniversityCard: "/ids/ada.png",
		Password:       "analytical-engine",
	})
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.Email != "ada@uni.edu" {
		t.Errorf("Email = %q, want %q", created.Email, "ada@uni.edu")
	}
	if created.FullName != "Ada Lovelace" {
		t.Errorf("FullName = %q, want %q", created.FullName, "Ada Lovelace")
	}
	if created.Status != model.AccountStatusPending {
		t.Errorf("Status = %q, want %q", created.Status, model.AccountStatusPending)
	}
	if created.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", created.Role, model.RoleUser)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("analytical-engine")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if session.UserID != created.ID {
		t.Errorf("session.UserID = %q, want %q", session.UserID, created.ID)
	}
}

func TestSignUp_DuplicateEmail_ReturnsCredentialsError(t *testing.T) {
	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return fmt.Errorf("failed to insert user: %w", repository.ErrDuplicate)
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, testConfig())

	_, err := svc.SignUp(context.Background(), NewUser{Email: "dup@uni.edu", Password: "password1"})

	var credErr *CredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want *CredentialsError", err)
	}
	if credErr.Message != MsgDuplicateAccount {
		t.Errorf("Message = %q, want %q", credErr.Message, MsgDuplicateAccount)
	}
}

func TestGetSession_ValidSession_ReturnsSession(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", Role: model.RoleUser, ExpiresAt: fixed.Add(time.Minute)}, nil
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, testConfig())
	svc.now = func() time.Time { return fixed }

	session, err := svc.GetSession(context.Background(), "sid")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if session == nil || session.UserID != "user-1" {
		t.Errorf("GetSession = %+v, want user-1", session)
	}
}

func TestGetSession_ExpiredOrMissing_ReturnsNil(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		id      string
		session *model.Session
	}{
		{"empty id", "", nil},
		{"not found", "sid", nil},
		{"expired", "sid", &model.Session{ID: "sid", UserID: "user-1", ExpiresAt: fixed.Add(-time.Second)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessionRepo := &mockSessionRepo{
				findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
					return tt.session, nil
				},
			}
			svc := NewService(&mockUserRepo{}, sessionRepo, testConfig())
			svc.now = func() time.Time { return fixed }

			session, err := svc.GetSession(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("GetSession returned error: %v", err)
			}
			if session != nil {
				t.Errorf("GetSession = %+v, want nil", session)
			}
		})
	}
}

func TestGetSession_RepoError_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, testConfig())

	if _, err := svc.GetSession(context.Background(), "sid"); err == nil {
		t.Error("expected error from GetSession")
	}
}

func TestSignOut_DeletesSession(t *testing.T) {
	var deleted string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, testConfig())

	if err := svc.SignOut(context.Background(), "sid-123"); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if deleted != "sid-123" {
		t.Errorf("deleted = %q, want %q", deleted, "sid-123")
	}
}

func TestSignOut_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, testConfig())
	if err := svc.SignOut(context.Background(), ""); err == nil {
		t.Error("expected error for empty session ID")
	}
}

func TestGetCurrentUser_NotFound_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, testConfig())
	if _, err := svc.GetCurrentUser(context.Background(), "user-x"); err == nil {
		t.Error("expected error for unknown user")
	}
}
