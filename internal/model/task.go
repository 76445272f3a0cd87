// Package model はドメインモデルを定義する。
package model

import "time"

// TaskStatus はタスクの完了状態を表す。
type TaskStatus string

const (
	// TaskStatusComplete は完了済みタスクを表す。
	TaskStatusComplete TaskStatus = "complete"
	// TaskStatusIncomplete は未完了タスクを表す。
	TaskStatusIncomplete TaskStatus = "incomplete"
)

// Toggled は反転した完了状態を返す。
func (s TaskStatus) Toggled() TaskStatus {
	if s == TaskStatusComplete {
		return TaskStatusIncomplete
	}
	return TaskStatusComplete
}

// TaskPriority はタスクの優先度を表す。空文字列は優先度未設定を意味する。
type TaskPriority string

const (
	// TaskPriorityHigh は高優先度を表す。
	TaskPriorityHigh TaskPriority = "high"
	// TaskPriorityMedium は中優先度を表す。
	TaskPriorityMedium TaskPriority = "medium"
	// TaskPriorityLow は低優先度を表す。
	TaskPriorityLow TaskPriority = "low"
)

// Task はダッシュボードで管理するタスクを表す。
// JSONタグは永続化レイアウト（ストアの`tasks`キーに保存されるJSON配列）の
// フィールド名に対応する。
// 不変条件: IDはコレクション内で一意、Titleは空文字列で永続化されない。
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TaskStatusFilter はタスク一覧の状態フィルタ種別を表す。
type TaskStatusFilter string

const (
	// TaskFilterAll は全タスクを表示するフィルタ。
	TaskFilterAll TaskStatusFilter = "all"
	// TaskFilterComplete は完了済みタスクのみを表示するフィルタ。
	TaskFilterComplete TaskStatusFilter = "complete"
	// TaskFilterIncomplete は未完了タスクのみを表示するフィルタ。
	TaskFilterIncomplete TaskStatusFilter = "incomplete"
)

// TaskFilterSpec はタスクパネルのフィルタ条件を表す。
// 永続化されない一時状態であり、パネルのメモリ上にのみ保持される。
// StatusとSearchは論理積で適用される。
type TaskFilterSpec struct {
	Status TaskStatusFilter
	Search string
}

// NeutralTaskFilter は全件を通過させる中立フィルタを返す。
func NeutralTaskFilter() TaskFilterSpec {
	return TaskFilterSpec{Status: TaskFilterAll, Search: ""}
}
