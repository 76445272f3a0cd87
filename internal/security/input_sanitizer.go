// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はユーザー入力（タスクのタイトルと説明）から
// HTMLタグを除去し、保存データに表示用マークアップが混入することを防ぐ。
// bluemondayのStrictPolicyによるプレーンテキスト化を行う。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService はユーザー入力のサニタイズ機能のインターフェースを定義する。
// タスク編集の保存前に使用される。
type InputSanitizerService interface {
	// Sanitize は入力文字列から全てのHTMLタグを除去し、前後の空白を
	// 取り除いたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。タスクのタイトルと説明は
// プレーンテキストのみを許可し、マークアップは一切保持しない。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグを除去し、前後の空白を取り除いて返す。
func (s *inputSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}
