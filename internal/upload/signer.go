// Package upload はクライアント直接アップロード用の認証パラメータを発行する。
package upload

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenTTL は認証パラメータの有効期間のデフォルト値。
const DefaultTokenTTL = 30 * time.Minute

// AuthParams はアップロードウィジェットへ返す認証パラメータ。
type AuthParams struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
}

// Signer はImageKitのクライアントアップロード用署名を生成する。
// 秘密鍵はサーバー内にのみ保持し、レスポンスには含めない。
type Signer struct {
	privateKey []byte
	ttl        time.Duration
	now        func() time.Time
	newToken   func() string
}

// NewSigner はSignerを生成する。ttlが0以下の場合はDefaultTokenTTLを使用する。
func NewSigner(privateKey string, ttl time.Duration) (*Signer, error) {
	if privateKey == "" {
		return nil, errors.New("upload private key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Signer{
		privateKey: []byte(privateKey),
		ttl:        ttl,
		now:        time.Now,
		newToken:   func() string { return uuid.New().String() },
	}, nil
}

// AuthenticationParameters は新しいトークンと有効期限に対する署名を返す。
func (s *Signer) AuthenticationParameters() AuthParams {
	token := s.newToken()
	expire := s.now().Add(s.ttl).Unix()
	return AuthParams{
		Token:     token,
		Expire:    expire,
		Signature: s.sign(token, expire),
	}
}

// sign はhex(HMAC-SHA1(privateKey, token+expire))を返す。
func (s *Signer) sign(token string, expire int64) string {
	mac := hmac.New(sha1.New, s.privateKey)
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
