// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/taskdash/internal/config"
	"github.com/hitoshi/taskdash/internal/database"
	"github.com/hitoshi/taskdash/internal/handler"
	"github.com/hitoshi/taskdash/internal/logger"
	"github.com/hitoshi/taskdash/internal/metrics"
	"github.com/hitoshi/taskdash/internal/middleware"
	"github.com/hitoshi/taskdash/internal/notify"
	"github.com/hitoshi/taskdash/internal/security"
	"github.com/hitoshi/taskdash/internal/store"
	"github.com/hitoshi/taskdash/internal/task"
	"github.com/hitoshi/taskdash/internal/userlog"
	"golang.org/x/time/rate"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
		slog.String("store_backend", cfg.StoreBackend),
		slog.String("notifier_backend", cfg.NotifierBackend),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildStore は設定に応じたストアバックエンドを構築する。
// 返り値のcleanup関数はシャットダウン時に呼び出すこと。
func buildStore(cfg *config.Config) (store.KV, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")
		return store.NewPostgresKV(db), func() { db.Close() }, nil

	case config.BackendRedis:
		client := store.NewRedisClient(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		kv := store.NewRedisKV(client)
		if err := kv.Ping(context.Background()); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		return kv, func() { client.Close() }, nil

	default:
		return store.NewMemoryKV(), func() {}, nil
	}
}

// buildNotifier は設定に応じたノーティファイアを構築する。
func buildNotifier(cfg *config.Config) (notify.Notifier, func(), error) {
	if cfg.NotifierBackend != config.BackendRedis {
		return notify.NewHub(), func() {}, nil
	}

	client := store.NewRedisClient(store.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis (notifier): %w", err)
	}
	return notify.NewRedisNotifier(client, slog.Default()), func() { client.Close() }, nil
}

// runServe はAPIサーバーモードで起動する。
// バックエンドを構築し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 2. ストアとノーティファイア
	rawKV, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	kv := store.NewInstrumentedKV(rawKV, collector)

	notifier, closeNotifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	// 3. パネルサービスの初期化とロード
	sanitizer := security.NewInputSanitizer()

	taskSvc := task.NewService(kv, notifier, sanitizer, collector, slog.Default(),
		task.ServiceConfig{LoadDelay: cfg.LoadDelay})
	defer taskSvc.Close()

	userLogSvc := userlog.NewService(kv, notifier, collector, slog.Default(),
		userlog.ServiceConfig{LoadDelay: cfg.LoadDelay})
	defer userLogSvc.Close()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelLoad()

	if err := taskSvc.Load(loadCtx); err != nil {
		// ロード失敗でもサーバーは起動する。パネルはError状態を返し、
		// 再マウント（プロセス再起動）で回復を試みる。
		slog.Error("initial task load failed", slog.String("error", err.Error()))
	}
	if err := userLogSvc.Load(loadCtx); err != nil {
		slog.Error("initial user log load failed", slog.String("error", err.Error()))
	}

	// 4. ルーターの構築
	rateLimiterCfg := middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		MutationRate:    rate.Limit(float64(cfg.RateLimitMutation) / 60.0),
		MutationBurst:   cfg.RateLimitMutation,
		CleanupInterval: 5 * time.Minute,
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		StatusObserver:    collector.RecordHTTPStatus,
		HealthChecker:     kv,
		MetricsHandler:    metrics.Handler(reg),
		TaskService:       taskSvc,
		UserLogService:    userLogSvc,
	})

	// 5. HTTPサーバーの起動
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

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
// postgresバックエンドを使う場合のみ意味を持つ。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}

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
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はログ出力用にデータベースURLの認証情報をマスクする。
// URLとして解析できない値は全体を伏せる（部分文字列でもパスワードを漏らさない）。
func maskDatabaseURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	if u.User != nil {
		// パスワード有無にかかわらずuserinfo部は "user:***" に正規化する
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
