package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdash/internal/model"
	"github.com/hitoshi/taskdash/internal/userlog"
)

// UserLogServiceInterface はユーザーログハンドラーが必要とするサービスインターフェース。
type UserLogServiceInterface interface {
	// Snapshot は現在のパネル状態のコピーを返す。
	Snapshot() userlog.Snapshot
	// RequestDelete は二段階確認の削除を行う。削除が成立した場合はtrueを返す。
	RequestDelete(ctx context.Context, id string) (bool, error)
	// CancelDelete は確認待ちを解除する。
	CancelDelete()
	// ResetToSeed はコレクションが空の場合に限りシードで再構築する。
	ResetToSeed(ctx context.Context) error
}

// UserLogHandler はユーザーログパネルのHTTPハンドラー。
type UserLogHandler struct {
	service UserLogServiceInterface
}

// NewUserLogHandler はUserLogHandlerを生成する。
func NewUserLogHandler(service UserLogServiceInterface) *UserLogHandler {
	return &UserLogHandler{service: service}
}

// --- レスポンス型 ---

// userLogResponse はユーザーログ1件のレスポンス。
type userLogResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	Role       string     `json:"role"`
	Action     string     `json:"action"`
	LoginTime  time.Time  `json:"login_time"`
	LogoutTime *time.Time `json:"logout_time,omitempty"`
	IPAddress  string     `json:"ip_address"`
	TokenName  string     `json:"token_name"`
}

// userLogPanelResponse はユーザーログパネル全体のレスポンス。
type userLogPanelResponse struct {
	State     string            `json:"state"`
	Logs      []userLogResponse `json:"logs"`
	PendingID string            `json:"pending_id,omitempty"`
}

// deleteResponse は削除リクエストの結果レスポンス。
type deleteResponse struct {
	Deleted   bool   `json:"deleted"`
	PendingID string `json:"pending_id,omitempty"`
}

func toUserLogResponses(logs []model.UserLog) []userLogResponse {
	out := make([]userLogResponse, len(logs))
	for i, l := range logs {
		out[i] = userLogResponse{
			ID:         l.ID,
			UserID:     l.UserID,
			Username:   l.Username,
			Role:       string(l.Role),
			Action:     l.Action,
			LoginTime:  l.LoginTime,
			LogoutTime: l.LogoutTime,
			IPAddress:  l.IPAddress,
			TokenName:  l.TokenName,
		}
	}
	return out
}

// GetPanel はユーザーログパネルの現在状態を取得する。
// GET /api/userlogs
func (h *UserLogHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()

	switch snap.State {
	case model.PanelStateLoading:
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewPanelLoadingError())
		return
	case model.PanelStateError:
		apiErr := snap.Err
		if apiErr == nil {
			apiErr = model.NewLoadFailureError("userLogs")
		}
		writeAPIErrorResponse(w, http.StatusInternalServerError, apiErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userLogPanelResponse{
		State:     string(snap.State),
		Logs:      toUserLogResponses(snap.Logs),
		PendingID: snap.PendingID,
	})
}

// RequestDelete はログレコードの二段階確認削除を行う。
// DELETE /api/userlogs/:id
//
// 初回は確認待ちとして受理し（deleted=false）、同一IDの2回目で削除する
// （deleted=true）。
func (h *UserLogHandler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.service.RequestDelete(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	snap := h.service.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deleteResponse{
		Deleted:   deleted,
		PendingID: snap.PendingID,
	})
}

// CancelDelete は削除の確認待ちを解除する。
// POST /api/userlogs/cancel-delete
func (h *UserLogHandler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	h.service.CancelDelete()
	w.WriteHeader(http.StatusNoContent)
}

// ResetToSeed は空のコレクションをデモ用シードで再構築する。
// POST /api/userlogs/reset
//
// コレクションが空でない場合は409を返す。
func (h *UserLogHandler) ResetToSeed(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetToSeed(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}

	snap := h.service.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userLogPanelResponse{
		State: string(snap.State),
		Logs:  toUserLogResponses(snap.Logs),
	})
}
