package middleware

import (
	"net/http"
	"strings"
)

// DefaultClientAddress はクライアントアドレスが取得できない場合に使う固定値。
// 該当するクライアントはすべて同じレート制限のバケットを共有する。
const DefaultClientAddress = "127.0.0.1"

// ClientAddress はX-Forwarded-Forの先頭エントリをクライアントアドレスとして返す。
// ヘッダーが無い場合はDefaultClientAddressを返す。
func ClientAddress(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return DefaultClientAddress
	}
	first, _, _ := strings.Cut(xff, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return DefaultClientAddress
}
