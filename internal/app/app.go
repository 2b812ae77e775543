package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/bookwise/internal/activity"
	"github.com/hitoshi/bookwise/internal/admin"
	"github.com/hitoshi/bookwise/internal/auth"
	"github.com/hitoshi/bookwise/internal/book"
	"github.com/hitoshi/bookwise/internal/config"
	"github.com/hitoshi/bookwise/internal/database"
	"github.com/hitoshi/bookwise/internal/handler"
	"github.com/hitoshi/bookwise/internal/logger"
	"github.com/hitoshi/bookwise/internal/metrics"
	"github.com/hitoshi/bookwise/internal/middleware"
	"github.com/hitoshi/bookwise/internal/ratelimit"
	"github.com/hitoshi/bookwise/internal/repository"
	"github.com/hitoshi/bookwise/internal/security"
	"github.com/hitoshi/bookwise/internal/upload"
	"github.com/hitoshi/bookwise/internal/view"
	"github.com/hitoshi/bookwise/internal/worker/cleanup"
)

const (
	// imageCheckTimeout は表紙画像URLの確認リクエストのタイムアウト。
	imageCheckTimeout = 10 * time.Second
	// shutdownTimeout はグレースフルシャットダウンの待機上限。
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// failurePolicy は設定からカウンタストア障害時の方針を決める。
func failurePolicy(cfg *config.Config) ratelimit.FailurePolicy {
	if cfg.AuthRateLimitFailOpen {
		return ratelimit.FailOpen
	}
	return ratelimit.FailClosed
}

// newRegistry はアプリケーションのメトリクスとランタイムのメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はWebサーバーモードで起動する。
// DBとRedisに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとHTTPサーバー、最終利用日記録の順に停止する。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. Redis接続（認証レート制限のカウンタストア）
	rdb, err := ratelimit.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to configure redis: %w", err)
	}
	defer rdb.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// 起動は継続し、判定時の障害はFailurePolicyに従う
		slog.Warn("redis is unreachable at startup",
			slog.String("error", err.Error()),
			slog.String("policy", failurePolicy(cfg).String()),
		)
	}
	cancelPing()

	// 3. メトリクス
	reg, collector := newRegistry()

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	bookRepo := repository.NewPostgresBookRepo(db)
	activityRepo := repository.NewPostgresActivityRepo(db)

	// 5. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		BcryptCost:    cfg.BcryptCost,
	})
	limiter := ratelimit.NewLimiter(
		ratelimit.NewRedisStore(rdb, cfg.AuthRateLimitPrefix),
		ratelimit.Config{
			Limit:  cfg.AuthRateLimit,
			Window: cfg.AuthRateWindow,
			Policy: failurePolicy(cfg),
		},
		ratelimit.WithRecorder(collector),
	)
	authenticator := auth.NewAuthenticator(limiter, authService, slog.Default(), collector)

	bookService := book.NewService(bookRepo, security.NewURLGuard(imageCheckTimeout), security.NewSummarySanitizer())
	adminService := admin.NewService(userRepo, sessionRepo, bookService)

	signer, err := upload.NewSigner(cfg.ImageKitPrivateKey, cfg.UploadTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to configure upload signer: %w", err)
	}

	dispatcher := activity.NewDispatcher(activity.NewTracker(activityRepo), slog.Default(), collector, activity.DispatcherConfig{
		Workers:   cfg.ActivityWorkers,
		QueueSize: cfg.ActivityQueueSize,
	})

	pages, err := view.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// 6. ルーターの構築
	generalLimiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitGeneral))
	defer generalLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger: slog.Default(),
		Pages:  pages,

		SessionFinder: authService,
		RoleFinder:    userRepo,
		Activity:      dispatcher,
		RateLimiter:   generalLimiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		HTTPRecorder:     collector,
		RedirectRecorder: collector,
		MetricsHandler:   metrics.Handler(reg),

		Authenticator:     authenticator,
		SessionTerminator: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		BookService:  bookService,
		AdminService: adminService,

		UploadSigner:  signer,
		HealthChecker: db,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		dispatcher.Shutdown(context.Background())
		return fmt.Errorf("server listen error: %w", err)
	}

	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 応答済みリクエストの記録ジョブを完了させる
	if err := dispatcher.Shutdown(ctx); err != nil {
		slog.Warn("activity dispatcher did not drain before timeout", slog.String("error", err.Error()))
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れセッションの削除ジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), slog.Default(), nil)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)

	// メインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
