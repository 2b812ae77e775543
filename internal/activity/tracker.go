// Package activity はユーザーの最終利用日の記録を提供する。
//
// 記録は1ユーザーにつきUTC暦日あたり最大1回。読み取り→比較→書き込みは原子的ではないが、
// 同じ日付を書き込む冪等な更新なので、日付境界で重複して書き込まれても結果は変わらない。
package activity

import (
	"context"
	"fmt"
	"time"
)

// DateLayout は最終利用日の正規フォーマット（YYYY-MM-DD）。
const DateLayout = "2006-01-02"

// Store は最終利用日の永続化インターフェース。
type Store interface {
	// ReadLastActivity は最終利用日を返す。未記録の場合はok=falseを返す。
	ReadLastActivity(ctx context.Context, userID string) (date string, ok bool, err error)
	// WriteLastActivity は最終利用日を書き込む。
	// 既存の値より新しい日付の場合のみ更新すること（単調非減少）。
	WriteLastActivity(ctx context.Context, userID, date string) error
}

// Outcome はTrackの結果を表す。
type Outcome string

const (
	// OutcomeSkipped は本日分が記録済みのため書き込みを行わなかったことを示す。
	OutcomeSkipped Outcome = "skipped"
	// OutcomeWritten は本日の日付を書き込んだことを示す。
	OutcomeWritten Outcome = "written"
	// OutcomeFailed は読み取りまたは書き込みに失敗したことを示す。
	OutcomeFailed Outcome = "failed"
)

// Tracker はユーザーの最終利用日を1日1回だけ更新する。
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker はTrackerを生成する。
func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		now:   time.Now,
	}
}

// Today は現在のUTC日付をDateLayoutで返す。
func (t *Tracker) Today() string {
	return t.now().UTC().Format(DateLayout)
}

// Track は指定ユーザーの最終利用日を本日に更新する。
// 記録済みの日付が本日と一致する場合は何もしない。
func (t *Tracker) Track(ctx context.Context, userID string) (Outcome, error) {
	if userID == "" {
		return OutcomeFailed, fmt.Errorf("user ID is required")
	}

	today := t.Today()

	last, ok, err := t.store.ReadLastActivity(ctx, userID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to read last activity: %w", err)
	}
	if ok && last == today {
		return OutcomeSkipped, nil
	}

	if err := t.store.WriteLastActivity(ctx, userID, today); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to write last activity: %w", err)
	}
	return OutcomeWritten, nil
}
