// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, storage, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeLoadFailure     = "LOAD_FAILURE"
	ErrCodeEmptyTitle      = "EMPTY_TITLE"
	ErrCodeInvalidFilter   = "INVALID_FILTER"
	ErrCodePanelLoading    = "PANEL_LOADING"
	ErrCodeResetNotAllowed = "RESET_NOT_ALLOWED"
	ErrCodeStoreFailure    = "STORE_FAILURE"
)

// NewLoadFailureError はロード失敗エラーを生成する。
// ストアにバイト列は存在するがデシリアライズできない場合に使用する。
// 再シードは行わない（解析不能だが実在するユーザーデータを暗黙に破壊しないため）。
func NewLoadFailureError(collection string) *APIError {
	return &APIError{
		Code:     ErrCodeLoadFailure,
		Message:  fmt.Sprintf("保存データの読み込みに失敗しました: %s", collection),
		Category: "storage",
		Action:   "ページを再読み込みしてください。改善しない場合は保存データの確認が必要です。",
	}
}

// NewEmptyTitleError は空タイトルの保存拒否エラーを生成する。
func NewEmptyTitleError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyTitle,
		Message:  "タイトルが空のため保存できません。",
		Category: "validation",
		Action:   "タイトルを入力してから保存してください。",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: "validation",
		Action:   "フィルタには all、complete、incomplete のいずれかを指定してください。",
	}
}

// NewPanelLoadingError はロード未完了のパネルへの操作エラーを生成する。
func NewPanelLoadingError() *APIError {
	return &APIError{
		Code:     ErrCodePanelLoading,
		Message:  "パネルはロード中です。",
		Category: "system",
		Action:   "ロード完了後に再度お試しください。",
	}
}

// NewResetNotAllowedError は空でないコレクションへのリセット拒否エラーを生成する。
// リセットはコレクションが空の場合にのみ許可されるデモ用の機能であり、
// 一般的なリストア手段ではない。
func NewResetNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeResetNotAllowed,
		Message:  "コレクションが空でないためリセットできません。",
		Category: "validation",
		Action:   "リセットはレコードが存在しない場合にのみ実行できます。",
	}
}

// NewStoreFailureError はストアの読み書き失敗エラーを生成する。
func NewStoreFailureError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreFailure,
		Message:  fmt.Sprintf("ストアへのアクセスに失敗しました: %s", reason),
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
