// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/bookwise/internal/model"
)

// ErrNotFound は更新・参照対象の行が存在しない場合のエラー。
var ErrNotFound = errors.New("record not found")

// ErrDuplicate は一意制約に違反した場合のエラー。
var ErrDuplicate = errors.New("duplicate record")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（小文字正規化済み）でユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindRoleByID は指定ユーザーの現在のロールを取得する。
	// 見つからない場合はErrNotFoundを返す。
	FindRoleByID(ctx context.Context, id string) (model.Role, error)

	// Create はユーザーを作成する。
	// メールアドレスまたは学籍番号が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーを登録日の新しい順に返す。
	List(ctx context.Context) ([]*model.User, error)

	// UpdateRole はユーザーのロールを更新する。見つからない場合はErrNotFoundを返す。
	UpdateRole(ctx context.Context, id string, role model.Role) error

	// UpdateStatus はユーザーのアカウント状態を更新する。見つからない場合はErrNotFoundを返す。
	UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error

	// Count は全ユーザー数を返す。
	Count(ctx context.Context) (int, error)

	// CountByStatus は指定状態のユーザー数を返す。
	CountByStatus(ctx context.Context, status model.AccountStatus) (int, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションをユーザーのロール付きで取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// BookRepository は蔵書データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Book, error)
	// ListLatest は登録日の新しい順に最大limit件の蔵書を返す。
	ListLatest(ctx context.Context, limit int) ([]*model.Book, error)
	// Create は蔵書を作成する。
	Create(ctx context.Context, book *model.Book) error
	// Count は蔵書数を返す。
	Count(ctx context.Context) (int, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
