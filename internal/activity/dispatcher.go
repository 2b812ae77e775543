package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Recorder は最終利用日記録の結果を記録するインターフェース。
// metrics.Collectorが実装する。
type Recorder interface {
	RecordActivity(outcome string)
	RecordActivityDropped()
}

// TrackerService はDispatcherが呼び出す記録処理のインターフェース。
type TrackerService interface {
	Track(ctx context.Context, userID string) (Outcome, error)
}

// DispatcherConfig はDispatcherの設定。
type DispatcherConfig struct {
	Workers    int           // ワーカーgoroutine数
	QueueSize  int           // 待ち行列の長さ
	JobTimeout time.Duration // 1件あたりのタイムアウト
}

// DefaultDispatcherConfig はデフォルト設定を返す。
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:    2,
		QueueSize:  256,
		JobTimeout: 5 * time.Second,
	}
}

// Dispatcher はレスポンス送信後の最終利用日記録をバックグラウンドで実行する。
// Submitはブロックせず、待ち行列が満杯の場合はジョブを破棄する。
// ジョブはリクエストのコンテキストから切り離して実行され、エラーはログにのみ記録される。
type Dispatcher struct {
	tracker  TrackerService
	logger   *slog.Logger
	recorder Recorder
	config   DispatcherConfig

	jobs chan string
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher はDispatcherを生成し、ワーカーを起動する。
// 設定値が0以下の場合はデフォルト値を使用する。
func NewDispatcher(tracker TrackerService, logger *slog.Logger, recorder Recorder, config DispatcherConfig) *Dispatcher {
	def := DefaultDispatcherConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = def.JobTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		tracker:  tracker,
		logger:   logger,
		recorder: recorder,
		config:   config,
		jobs:     make(chan string, config.QueueSize),
	}

	for i := 0; i < config.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// Submit は最終利用日の記録ジョブを投入する。
// 停止済み、または待ち行列が満杯の場合はfalseを返す。
func (d *Dispatcher) Submit(userID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.jobs <- userID:
		return true
	default:
		d.logger.Warn("activity queue is full, dropping job",
			slog.String("user_id", userID),
			slog.Int("queue_size", d.config.QueueSize),
		)
		if d.recorder != nil {
			d.recorder.RecordActivityDropped()
		}
		return false
	}
}

// Shutdown は新規投入を停止し、投入済みジョブの完了を待つ。
// ctxの期限までに完了しない場合はctx.Err()を返す。
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker は待ち行列からジョブを取り出して実行する。
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for userID := range d.jobs {
		d.run(userID)
	}
}

// run は1件のジョブを実行する。
func (d *Dispatcher) run(userID string) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic recovered in activity job",
				slog.Any("panic", rec),
				slog.String("user_id", userID),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.config.JobTimeout)
	defer cancel()

	outcome, err := d.tracker.Track(ctx, userID)
	if d.recorder != nil {
		d.recorder.RecordActivity(string(outcome))
	}
	if err != nil {
		d.logger.Error("failed to record user activity",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	if outcome == OutcomeWritten {
		d.logger.Debug("user activity recorded",
			slog.String("user_id", userID),
		)
	}
}
