// Package model はドメインモデルを定義する。
package model

import "time"

// Book は蔵書を表す。
type Book struct {
	ID              string
	Title           string
	Author          string
	Genre           string
	Rating          int
	TotalCopies     int
	AvailableCopies int
	Description     string
	CoverURL        string
	CoverColor      string
	VideoURL        string
	Summary         string // サニタイズ済みHTML
	CreatedAt       time.Time
}

// DashboardStats は管理画面トップに表示する集計値。
type DashboardStats struct {
	TotalUsers      int
	PendingAccounts int
	TotalBooks      int
}
