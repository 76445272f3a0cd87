// Package logger はtaskdash全体で使うJSON構造化ログの初期化を提供する。
// パネルサービス・ミドルウェア・アプリシェルはすべてここで生成した
// slog.Loggerを注入して使う。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup は指定writerへJSON構造化ログを出力するslog.Loggerを生成して返す。
// writerがnilの場合はos.Stdoutに出力する。
func Setup(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault はSetupで生成したロガーをグローバルロガーとして設定する。
// パッケージを横断してslog.Defaultを使う箇所（panicリカバリ等）のために
// 起動時に一度だけ呼ぶ。
func SetupDefault(w io.Writer) {
	slog.SetDefault(Setup(w))
}
