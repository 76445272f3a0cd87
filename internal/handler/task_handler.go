package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdash/internal/model"
	"github.com/hitoshi/taskdash/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// Snapshot は現在のパネル状態のコピーを返す。
	Snapshot() task.Snapshot
	// ToggleStatus は指定IDのタスクの完了状態を反転する。
	ToggleStatus(ctx context.Context, id string) error
	// BeginEdit は指定IDのタスクを編集モードにする。
	BeginEdit(id string)
	// CancelEdit は編集モードを解除する。
	CancelEdit()
	// SaveEdit は編集中タスクのタイトルと説明を置き換える。
	SaveEdit(ctx context.Context, id, title, description string) error
	// SetFilter はフィルタ条件を置き換える。
	SetFilter(spec model.TaskFilterSpec) error
}

// TaskHandler はタスクパネルのHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// --- レスポンス型 ---

// taskResponse はタスク1件のレスポンス。
type taskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// taskFilterResponse は現在のフィルタ条件のレスポンス。
type taskFilterResponse struct {
	Status string `json:"status"`
	Search string `json:"search"`
}

// taskPanelResponse はタスクパネル全体のレスポンス。
type taskPanelResponse struct {
	State     string             `json:"state"`
	Tasks     []taskResponse     `json:"tasks"`
	Filtered  []taskResponse     `json:"filtered"`
	Filter    taskFilterResponse `json:"filter"`
	EditingID string             `json:"editing_id,omitempty"`
}

// taskFilterRequest はフィルタ変更リクエストのボディ。
type taskFilterRequest struct {
	Status string `json:"status"`
	Search string `json:"search"`
}

// taskEditRequest はタスク保存リクエストのボディ。
type taskEditRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func toTaskResponses(tasks []model.Task) []taskResponse {
	out := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = taskResponse{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      string(t.Status),
			Priority:    string(t.Priority),
			DueDate:     t.DueDate,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
	}
	return out
}

// GetPanel はタスクパネルの現在状態を取得する。
// GET /api/tasks
//
// ロード未完了のパネルは503、ロード失敗のパネルは失敗時のエラーを返す。
func (h *TaskHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()

	switch snap.State {
	case model.PanelStateLoading:
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewPanelLoadingError())
		return
	case model.PanelStateError:
		apiErr := snap.Err
		if apiErr == nil {
			apiErr = model.NewLoadFailureError("tasks")
		}
		writeAPIErrorResponse(w, http.StatusInternalServerError, apiErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(taskPanelResponse{
		State:    string(snap.State),
		Tasks:    toTaskResponses(snap.Tasks),
		Filtered: toTaskResponses(snap.Filtered),
		Filter: taskFilterResponse{
			Status: string(snap.Filter.Status),
			Search: snap.Filter.Search,
		},
		EditingID: snap.EditingID,
	})
}

// SetFilter はタスクパネルのフィルタ条件を変更する。
// PUT /api/tasks/filter
func (h *TaskHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req taskFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	spec := model.TaskFilterSpec{
		Status: model.TaskStatusFilter(req.Status),
		Search: req.Search,
	}
	if spec.Status == "" {
		spec.Status = model.TaskFilterAll
	}

	if err := h.service.SetFilter(spec); err != nil {
		handleServiceError(w, err)
		return
	}

	h.writeFiltered(w)
}

// ToggleStatus はタスクの完了状態を反転する。
// POST /api/tasks/:id/toggle
//
// 未知のIDは暗黙のno-opであり、204を返す。
func (h *TaskHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.ToggleStatus(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BeginEdit はタスクを編集モードにする。
// POST /api/tasks/:id/edit
func (h *TaskHandler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.service.BeginEdit(id)
	w.WriteHeader(http.StatusNoContent)
}

// CancelEdit は編集モードを解除する。
// DELETE /api/tasks/edit
func (h *TaskHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	h.service.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

// SaveEdit は編集中タスクのタイトルと説明を保存する。
// PUT /api/tasks/:id
func (h *TaskHandler) SaveEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req taskEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if err := h.service.SaveEdit(r.Context(), id, req.Title, req.Description); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeFiltered はフィルタ適用後のビューを返す。
func (h *TaskHandler) writeFiltered(w http.ResponseWriter) {
	snap := h.service.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(taskPanelResponse{
		State:    string(snap.State),
		Tasks:    toTaskResponses(snap.Tasks),
		Filtered: toTaskResponses(snap.Filtered),
		Filter: taskFilterResponse{
			Status: string(snap.Filter.Status),
			Search: snap.Filter.Search,
		},
		EditingID: snap.EditingID,
	})
}
