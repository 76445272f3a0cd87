// Package model はドメインモデルを定義する。
package model

import "time"

// UserRole はログレコード上のユーザー区分を表す。
type UserRole string

const (
	// UserRoleAdmin は管理者を表す。
	UserRoleAdmin UserRole = "admin"
	// UserRoleUser は一般ユーザーを表す。
	UserRoleUser UserRole = "user"
)

// UserLog は最近のユーザー活動（ログイン/ログアウト）の記録を表す。
// JSONタグは永続化レイアウト（ストアの`userLogs`キーに保存されるJSON配列）の
// フィールド名に対応する。
// レコードは表示専用であり、実セッションとの突き合わせは行わない。
type UserLog struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Username   string     `json:"username"`
	Role       UserRole   `json:"role"`
	Action     string     `json:"action"`
	LoginTime  time.Time  `json:"loginTime"`
	LogoutTime *time.Time `json:"logoutTime,omitempty"`
	IPAddress  string     `json:"ipAddress"`
	TokenName  string     `json:"tokenName"`
}
