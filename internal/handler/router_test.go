package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/taskdash/internal/logger"
	"github.com/hitoshi/taskdash/internal/metrics"
	"github.com/hitoshi/taskdash/internal/middleware"
	"github.com/hitoshi/taskdash/internal/model"
	"github.com/hitoshi/taskdash/internal/notify"
	"github.com/hitoshi/taskdash/internal/security"
	"github.com/hitoshi/taskdash/internal/store"
	"github.com/hitoshi/taskdash/internal/task"
	"github.com/hitoshi/taskdash/internal/userlog"
)

// newIntegrationRouter は実サービス（インメモリストア＋プロセス内ハブ）で
// 構成したルーターを返す。
func newIntegrationRouter(t *testing.T) (http.Handler, *task.Service, *userlog.Service) {
	t.Helper()

	kv := store.NewMemoryKV()
	hub := notify.NewHub()
	log := logger.Setup(io.Discard)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	taskSvc := task.NewService(kv, hub, security.NewInputSanitizer(), collector, log, task.ServiceConfig{})
	t.Cleanup(taskSvc.Close)

	userLogSvc := userlog.NewService(kv, hub, collector, log, userlog.ServiceConfig{})
	t.Cleanup(userLogSvc.Close)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Logger:            log,
		StatusObserver:    collector.RecordHTTPStatus,
		HealthChecker:     kv,
		MetricsHandler:    metrics.Handler(reg),
		TaskService:       taskSvc,
		UserLogService:    userLogSvc,
	})

	return router, taskSvc, userLogSvc
}

func TestRouter_Health(t *testing.T) {
	router, _, _ := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestRouter_Metrics(t *testing.T) {
	router, _, _ := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_GetTasks_BeforeLoad_Returns503(t *testing.T) {
	router, _, _ := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_TaskFlow_LoadToggleAndFetch(t *testing.T) {
	router, taskSvc, _ := newIntegrationRouter(t)

	if err := taskSvc.Load(context.Background()); err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}

	// シード直後のパネル取得
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}

	var panel taskPanelResponse
	json.Unmarshal(rec.Body.Bytes(), &panel)
	if len(panel.Tasks) != 4 {
		t.Fatalf("tasks count = %d, want 4", len(panel.Tasks))
	}

	// トグル
	req = httptest.NewRequest(http.MethodPost, "/api/tasks/1/toggle", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("toggle status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	// トグル後の取得でステータスが反転している
	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	json.Unmarshal(rec.Body.Bytes(), &panel)
	for _, tr := range panel.Tasks {
		if tr.ID == "1" && tr.Status != string(model.TaskStatusComplete) {
			t.Errorf("task 1 status = %q, want complete", tr.Status)
		}
	}
}

func TestRouter_TaskFilterFlow(t *testing.T) {
	router, taskSvc, _ := newIntegrationRouter(t)

	if err := taskSvc.Load(context.Background()); err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/tasks/filter",
		strings.NewReader(`{"status":"complete"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var panel taskPanelResponse
	json.Unmarshal(rec.Body.Bytes(), &panel)
	if len(panel.Filtered) != 1 {
		t.Errorf("filtered count = %d, want 1 (seed has one complete task)", len(panel.Filtered))
	}
}

func TestRouter_UserLogDeleteFlow(t *testing.T) {
	router, _, userLogSvc := newIntegrationRouter(t)

	if err := userLogSvc.Load(context.Background()); err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}

	// 1回目: 確認待ち
	req := httptest.NewRequest(http.MethodDelete, "/api/userlogs/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first delete status = %d, want %d", rec.Code, http.StatusOK)
	}

	var res deleteResponse
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Deleted || res.PendingID != "2" {
		t.Fatalf("first call: deleted=%v pending_id=%q, want pending", res.Deleted, res.PendingID)
	}

	// 2回目: 削除成立
	req = httptest.NewRequest(http.MethodDelete, "/api/userlogs/2", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	json.Unmarshal(rec.Body.Bytes(), &res)
	if !res.Deleted {
		t.Fatal("second call did not delete")
	}

	// 残り2件
	req = httptest.NewRequest(http.MethodGet, "/api/userlogs", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var panel userLogPanelResponse
	json.Unmarshal(rec.Body.Bytes(), &panel)
	if len(panel.Logs) != 2 {
		t.Errorf("logs count = %d, want 2", len(panel.Logs))
	}
}

func TestRouter_CORSHeadersOnAPIRoutes(t *testing.T) {
	router, _, _ := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestRouter_UnknownRoute_Returns404(t *testing.T) {
	router, _, _ := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
