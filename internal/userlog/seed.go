package userlog

import (
	"time"

	"github.com/hitoshi/taskdash/internal/model"
)

// DefaultUserLogs はストアが空の場合に投入する固定のデモ用ログ3件を返す。
// フィールドは基準時刻nowから決定的に導出される。
func DefaultUserLogs(now time.Time) []model.UserLog {
	logout := now.Add(-30 * time.Minute)

	return []model.UserLog{
		{
			ID:        "1",
			UserID:    "u-100",
			Username:  "admin",
			Role:      model.UserRoleAdmin,
			Action:    "login",
			LoginTime: now.Add(-10 * time.Minute),
			IPAddress: "192.168.1.10",
			TokenName: "admin-console",
		},
		{
			ID:         "2",
			UserID:     "u-201",
			Username:   "sato",
			Role:       model.UserRoleUser,
			Action:     "logout",
			LoginTime:  now.Add(-2 * time.Hour),
			LogoutTime: &logout,
			IPAddress:  "192.168.1.24",
			TokenName:  "dashboard",
		},
		{
			ID:        "3",
			UserID:    "u-202",
			Username:  "suzuki",
			Role:      model.UserRoleUser,
			Action:    "login",
			LoginTime: now.Add(-26 * time.Hour),
			IPAddress: "10.0.0.8",
			TokenName: "dashboard",
		},
	}
}
