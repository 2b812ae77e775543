package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/bookwise/internal/model"
	"github.com/hitoshi/bookwise/internal/ratelimit"
)

// Credentials はサインインフォームの入力。
type Credentials struct {
	Email    string
	Password string
}

// RateLimiter はクライアントアドレス単位のレート制限判定。
type RateLimiter interface {
	Limit(ctx context.Context, key string) (ratelimit.Result, error)
}

// CredentialProvider は資格情報の交換を行うセッションプロバイダー。
type CredentialProvider interface {
	ExchangeCredentials(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, in NewUser) (*model.Session, error)
}

// AttemptRecorder は認証アクションの結果を記録する。
type AttemptRecorder interface {
	RecordAuthAttempt(action, result string)
}

// 認証アクションの種別と結果（メトリクスのラベル値）。
const (
	ActionSignIn = "sign_in"
	ActionSignUp = "sign_up"

	ResultSuccess     = "success"
	ResultFailure     = "failure"
	ResultRateLimited = "rate_limited"
)

// Authenticator はレート制限付きの認証アクション。
// レート制限を資格情報の交換より先に判定し、拒否された場合はプロバイダーを呼び出さない。
type Authenticator struct {
	limiter  RateLimiter
	provider CredentialProvider
	logger   *slog.Logger
	recorder AttemptRecorder
}

// NewAuthenticator はAuthenticatorを生成する。recorderはnilでもよい。
func NewAuthenticator(limiter RateLimiter, provider CredentialProvider, logger *slog.Logger, recorder AttemptRecorder) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		limiter:  limiter,
		provider: provider,
		logger:   logger,
		recorder: recorder,
	}
}

// Authenticate はサインインを実行する。
// レート制限で拒否された場合はErrRateLimited、資格情報の交換に失敗した場合は*CredentialsErrorを返す。
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials, clientAddr string) (*model.Session, error) {
	return a.run(ctx, ActionSignIn, clientAddr, func() (*model.Session, error) {
		return a.provider.ExchangeCredentials(ctx, creds.Email, creds.Password)
	})
}

// Register はサインアップを実行する。サインインと同じレート制限の枠を消費する。
func (a *Authenticator) Register(ctx context.Context, in NewUser, clientAddr string) (*model.Session, error) {
	return a.run(ctx, ActionSignUp, clientAddr, func() (*model.Session, error) {
		return a.provider.SignUp(ctx, in)
	})
}

func (a *Authenticator) run(ctx context.Context, action, clientAddr string, exchange func() (*model.Session, error)) (*model.Session, error) {
	// 1. レート制限
	res, err := a.limiter.Limit(ctx, clientAddr)
	if err != nil {
		a.logger.Error("rate limit store failure",
			slog.String("action", action),
			slog.String("client_addr", clientAddr),
			slog.Bool("allowed", res.Success),
			slog.String("error", err.Error()),
		)
	}
	if !res.Success {
		a.logger.Warn("authentication rate limited",
			slog.String("action", action),
			slog.String("client_addr", clientAddr),
			slog.Int("limit", res.Limit),
			slog.Time("reset", res.Reset),
		)
		a.record(action, ResultRateLimited)
		return nil, ErrRateLimited
	}

	// 2. 資格情報の交換
	session, err := exchange()
	if err != nil {
		a.record(action, ResultFailure)

		var credErr *CredentialsError
		if errors.As(err, &credErr) {
			a.logger.Info("authentication failed",
				slog.String("action", action),
				slog.String("client_addr", clientAddr),
				slog.String("error", err.Error()),
			)
			return nil, credErr
		}

		a.logger.Error("credential exchange failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return nil, &CredentialsError{Message: MsgAuthUnavailable, Err: err}
	}

	a.record(action, ResultSuccess)
	return session, nil
}

func (a *Authenticator) record(action, result string) {
	if a.recorder != nil {
		a.recorder.RecordAuthAttempt(action, result)
	}
}
