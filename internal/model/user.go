// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般利用者のロール。
	RoleUser Role = "USER"
	// RoleAdmin は管理者のロール。
	RoleAdmin Role = "ADMIN"
)

// ParseRole は文字列をRoleに変換する。
// 大文字小文字は区別しない。未知の値はエラーを返す。
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// IsAdmin は管理者ロールかどうかを返す。
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// AccountStatus は利用者アカウントの承認状態を表す。
type AccountStatus string

const (
	// AccountStatusPending は承認待ち。
	AccountStatusPending AccountStatus = "PENDING"
	// AccountStatusApproved は承認済み。
	AccountStatusApproved AccountStatus = "APPROVED"
	// AccountStatusRejected は却下済み。
	AccountStatusRejected AccountStatus = "REJECTED"
)

// ParseAccountStatus は文字列をAccountStatusに変換する。
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch AccountStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case AccountStatusPending:
		return AccountStatusPending, nil
	case AccountStatusApproved:
		return AccountStatusApproved, nil
	case AccountStatusRejected:
		return AccountStatusRejected, nil
	default:
		return "", fmt.Errorf("unknown account status: %q", s)
	}
}

// User は図書館システムの利用者を表す。
type User struct {
	ID               string
	FullName         string
	Email            string
	UniversityID     int
	UniversityCard   string // 学生証画像のアップロード先パス
	PasswordHash     string
	Status           AccountStatus
	Role             Role
	LastActivityDate string // YYYY-MM-DD（UTC）。未記録の場合は空文字
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Session はユーザーのログインセッションを表す。
// RoleはセッションJOIN時点のロールであり、権限判定には使用しない。
type Session struct {
	ID        string
	UserID    string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Valid はセッションが指定時刻において有効かどうかを返す。
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.UserID != "" && now.Before(s.ExpiresAt)
}
