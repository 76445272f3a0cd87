package task

import (
	"time"

	"github.com/hitoshi/taskdash/internal/model"
)

// DefaultTasks はストアが空の場合に投入する固定のデフォルトタスク4件を返す。
// フィールドは基準時刻nowから決定的に導出される。
// シードはロード時に1回だけ行われ、以後の再ロードでは永続化済みデータを使う（冪等）。
func DefaultTasks(now time.Time) []model.Task {
	due := now.Add(72 * time.Hour)

	return []model.Task{
		{
			ID:          "1",
			Title:       "プロジェクト計画書の作成",
			Description: "今四半期のマイルストーンと担当者を整理する",
			Status:      model.TaskStatusIncomplete,
			Priority:    model.TaskPriorityHigh,
			DueDate:     &due,
			CreatedAt:   now.Add(-96 * time.Hour),
			UpdatedAt:   now.Add(-96 * time.Hour),
		},
		{
			ID:          "2",
			Title:       "週次レポートの提出",
			Description: "先週分の進捗をまとめて共有する",
			Status:      model.TaskStatusComplete,
			Priority:    model.TaskPriorityMedium,
			CreatedAt:   now.Add(-72 * time.Hour),
			UpdatedAt:   now.Add(-24 * time.Hour),
		},
		{
			ID:          "3",
			Title:       "デザインレビューの準備",
			Description: "",
			Status:      model.TaskStatusIncomplete,
			Priority:    model.TaskPriorityLow,
			CreatedAt:   now.Add(-48 * time.Hour),
			UpdatedAt:   now.Add(-48 * time.Hour),
		},
		{
			ID:          "4",
			Title:       "依存ライブラリの更新確認",
			Description: "セキュリティアドバイザリの有無を確認する",
			Status:      model.TaskStatusIncomplete,
			CreatedAt:   now.Add(-24 * time.Hour),
			UpdatedAt:   now.Add(-24 * time.Hour),
		},
	}
}
