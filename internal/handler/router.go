package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdash/internal/middleware"
	"github.com/hitoshi/taskdash/internal/store"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusObserver    middleware.StatusObserver

	// ヘルスチェック対象のストアバックエンド
	HealthChecker store.Pinger

	// メトリクス公開エンドポイント。nilの場合は公開しない。
	MetricsHandler http.Handler

	// パネルサービス
	TaskService    TaskServiceInterface
	UserLogService UserLogServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → RateLimit
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusObserver))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	taskHandler := NewTaskHandler(deps.TaskService)
	userLogHandler := NewUserLogHandler(deps.UserLogService)

	// --- 運用系のルート（レート制限の外） ---

	r.Get("/health", healthHandler(deps.HealthChecker))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		general := deps.RateLimiter.GeneralMiddleware()
		mutation := deps.RateLimiter.MutationMiddleware()

		// タスクパネル
		r.Route("/api/tasks", func(r chi.Router) {
			r.With(general).Get("/", taskHandler.GetPanel)
			r.With(mutation).Put("/filter", taskHandler.SetFilter)
			r.With(mutation).Delete("/edit", taskHandler.CancelEdit)

			r.Route("/{id}", func(r chi.Router) {
				r.With(mutation).Put("/", taskHandler.SaveEdit)
				r.With(mutation).Post("/toggle", taskHandler.ToggleStatus)
				r.With(mutation).Post("/edit", taskHandler.BeginEdit)
			})
		})

		// ユーザーログパネル
		r.Route("/api/userlogs", func(r chi.Router) {
			r.With(general).Get("/", userLogHandler.GetPanel)
			r.With(mutation).Post("/cancel-delete", userLogHandler.CancelDelete)
			r.With(mutation).Post("/reset", userLogHandler.ResetToSeed)
			r.With(mutation).Delete("/{id}", userLogHandler.RequestDelete)
		})
	})

	return r
}

// healthHandler はストアバックエンドへの疎通確認を行うヘルスチェックハンドラーを返す。
func healthHandler(pinger store.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
