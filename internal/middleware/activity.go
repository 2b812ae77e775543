package middleware

import "net/http"

// ActivitySubmitter は最終利用日の記録をバックグラウンドに投入する。
// activity.Dispatcherが実装する。Submitはブロックしてはならない。
type ActivitySubmitter interface {
	Submit(userID string) bool
}

// NewActivityMiddleware はハンドラーの応答後に最終利用日の記録を投入するミドルウェアを返す。
// 記録の成否はレスポンスに影響しない。
func NewActivityMiddleware(submitter ActivitySubmitter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			session := SessionFromContext(r.Context())
			if session == nil || session.UserID == "" {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			submitter.Submit(session.UserID)
		})
	}
}
