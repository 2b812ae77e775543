package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/bookwise/internal/activity"
)

// PostgresActivityRepo はusers.last_activity_dateを読み書きするactivity.Store実装。
type PostgresActivityRepo struct {
	db *sql.DB
}

// NewPostgresActivityRepo はPostgresActivityRepoを生成する。
func NewPostgresActivityRepo(db *sql.DB) *PostgresActivityRepo {
	return &PostgresActivityRepo{db: db}
}

// ReadLastActivity は最終利用日をYYYY-MM-DDで返す。
// ユーザーが存在しないか未記録の場合はok=falseを返す。
func (r *PostgresActivityRepo) ReadLastActivity(ctx context.Context, userID string) (string, bool, error) {
	var date sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT to_char(last_activity_date, 'YYYY-MM-DD') FROM users WHERE id = $1`,
		userID,
	).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read last activity date: %w", err)
	}
	return date.String, date.Valid, nil
}

// WriteLastActivity は最終利用日を書き込む。
// 既存値より新しい日付の場合のみ更新するため、遅延した書き込みで日付が巻き戻ることはない。
func (r *PostgresActivityRepo) WriteLastActivity(ctx context.Context, userID, date string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET last_activity_date = $2::date
		 WHERE id = $1
		   AND (last_activity_date IS NULL OR last_activity_date < $2::date)`,
		userID, date,
	)
	if err != nil {
		return fmt.Errorf("failed to write last activity date: %w", err)
	}
	return nil
}

// compile-time interface check
var _ activity.Store = (*PostgresActivityRepo)(nil)
