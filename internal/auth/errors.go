package auth

import "errors"

// ErrRateLimited は認証アクションがレート制限により拒否されたことを示す。
// 失敗ではなく制御フロー上の結果であり、呼び出し元は/too-fastへ遷移させる。
var ErrRateLimited = errors.New("authentication rate limited")

// 利用者に表示するフォームレベルのエラーメッセージ。
const (
	MsgInvalidCredentials = "メールアドレスまたはパスワードが正しくありません。"
	MsgDuplicateAccount   = "このメールアドレスまたは学籍番号は既に登録されています。"
	MsgAuthUnavailable    = "現在サインインできません。しばらく待ってから再度お試しください。"
	MsgAccountRejected    = "このアカウントは利用申請が却下されています。図書館窓口にお問い合わせください。"
)

// CredentialsError は資格情報の交換に失敗したことを示す。
// Messageはフォーム上に表示してよい文言で、Errは内部原因（ログ専用）。
type CredentialsError struct {
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *CredentialsError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap は内部原因を返す。
func (e *CredentialsError) Unwrap() error {
	return e.Err
}
