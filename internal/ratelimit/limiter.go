// Package ratelimit はクライアントアドレス単位のスライディングウィンドウ型レート制限を提供する。
//
// ウィンドウ状態はプロセス外の共有カウンタストア（Redis）に保持し、
// 複数インスタンス間で同一の上限を共有する。
// 排他制御はストア側の原子性に委ね、アプリケーション側ではロックを取らない。
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultLimit はウィンドウあたりの許可リクエスト数のデフォルト値。
	DefaultLimit = 5
	// DefaultWindow はスライディングウィンドウ長のデフォルト値。
	DefaultWindow = 10 * time.Second
)

// ErrStoreUnavailable はカウンタストアに到達できない場合のエラー。
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// FailurePolicy はカウンタストア障害時の判定方針を表す。
type FailurePolicy int

const (
	// FailClosed はストア障害時にリクエストを拒否する（デフォルト）。
	FailClosed FailurePolicy = iota
	// FailOpen はストア障害時にリクエストを許可する。
	FailOpen
)

// String はログ出力用の名前を返す。
func (p FailurePolicy) String() string {
	if p == FailOpen {
		return "fail_open"
	}
	return "fail_closed"
}

// Window は1回のHitでストアが返すウィンドウ状態。
type Window struct {
	Admitted bool      // 今回のリクエストが記録・許可されたか
	Count    int       // 判定後にウィンドウ内に存在するエントリ数
	Oldest   time.Time // ウィンドウ内で最も古いエントリの時刻。空の場合はゼロ値
}

// Store はスライディングウィンドウのカウンタストアのインターフェース。
// Hitは「期限切れエントリの除去→件数確認→上限未満なら記録」を原子的に実行すること。
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Window, error)
}

// Recorder はレート制限の判定結果を記録するインターフェース。
// metrics.Collectorが実装する。
type Recorder interface {
	RecordRateLimitDecision(allowed bool)
	RecordRateLimitStoreError()
}

// Result はレート制限の判定結果。
type Result struct {
	Success   bool      // falseの場合、呼び出し元はリクエストを拒否しなければならない
	Limit     int       // ウィンドウあたりの上限
	Remaining int       // ウィンドウ内の残り許可数
	Reset     time.Time // 次に枠が空く見込み時刻
}

// Config はLimiterの設定を保持する。
type Config struct {
	Limit  int
	Window time.Duration
	Policy FailurePolicy
}

// DefaultConfig はデフォルト設定（5リクエスト/10秒、フェイルクローズ）を返す。
func DefaultConfig() Config {
	return Config{
		Limit:  DefaultLimit,
		Window: DefaultWindow,
		Policy: FailClosed,
	}
}

// Limiter はスライディングウィンドウ型のレートリミッター。
type Limiter struct {
	store    Store
	config   Config
	recorder Recorder
	now      func() time.Time
}

// Option はLimiterの任意設定。
type Option func(*Limiter)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithRecorder は判定結果の記録先を設定する。
func WithRecorder(r Recorder) Option {
	return func(l *Limiter) {
		l.recorder = r
	}
}

// NewLimiter はLimiterを生成する。
// LimitまたはWindowが0以下の場合はデフォルト値を使用する。
func NewLimiter(store Store, config Config, opts ...Option) *Limiter {
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	l := &Limiter{
		store:  store,
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit は指定キーのリクエストを1件として判定する。
// ストア障害時はFailurePolicyに従ってSuccessを決め、ErrStoreUnavailableをラップしたエラーを併せて返す。
// 呼び出し元はエラーをログに記録し、判定にはResult.Successのみを用いる。
func (l *Limiter) Limit(ctx context.Context, key string) (Result, error) {
	now := l.now()

	w, err := l.store.Hit(ctx, key, now, l.config.Window, l.config.Limit)
	if err != nil {
		if l.recorder != nil {
			l.recorder.RecordRateLimitStoreError()
		}
		res := Result{
			Success: l.config.Policy == FailOpen,
			Limit:   l.config.Limit,
			Reset:   now.Add(l.config.Window),
		}
		return res, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, l.config.Policy, err)
	}

	if l.recorder != nil {
		l.recorder.RecordRateLimitDecision(w.Admitted)
	}

	remaining := l.config.Limit - w.Count
	if remaining < 0 {
		remaining = 0
	}

	reset := now.Add(l.config.Window)
	if !w.Oldest.IsZero() {
		reset = w.Oldest.Add(l.config.Window)
	}

	return Result{
		Success:   w.Admitted,
		Limit:     l.config.Limit,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}
