package task

import (
	"strings"

	"github.com/hitoshi/taskdash/internal/model"
)

// validStatusFilters は有効な状態フィルタ値のセット。
var validStatusFilters = map[model.TaskStatusFilter]bool{
	model.TaskFilterAll:        true,
	model.TaskFilterComplete:   true,
	model.TaskFilterIncomplete: true,
}

// ValidateFilter はフィルタ条件の状態値を検証する。
func ValidateFilter(spec model.TaskFilterSpec) error {
	if !validStatusFilters[spec.Status] {
		return model.NewInvalidFilterError(string(spec.Status))
	}
	return nil
}

// ApplyFilter はタスクコレクションにフィルタ条件を適用した新しいスライスを返す。
//
// 純粋関数であり、入力を変更せず副作用を持たない。状態フィルタと検索は
// 論理積で適用され、両方を通過したレコードのみが残る。検索は前後空白を
// 除去・小文字化した上で、タイトルまたは説明に対する部分一致で判定する。
// 結果は入力順を保持する（再ソートしない）。
// 冪等性: ApplyFilter(ApplyFilter(tasks, s), s) == ApplyFilter(tasks, s)。
func ApplyFilter(tasks []model.Task, spec model.TaskFilterSpec) []model.Task {
	search := strings.ToLower(strings.TrimSpace(spec.Search))

	filtered := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if spec.Status != model.TaskFilterAll && string(t.Status) != string(spec.Status) {
			continue
		}
		if search != "" {
			title := strings.ToLower(t.Title)
			desc := strings.ToLower(t.Description)
			if !strings.Contains(title, search) && !strings.Contains(desc, search) {
				continue
			}
		}
		filtered = append(filtered, t)
	}
	return filtered
}
