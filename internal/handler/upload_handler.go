package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/bookwise/internal/upload"
)

// UploadSigner はクライアント直接アップロード用の認証パラメータを発行する。
type UploadSigner interface {
	AuthenticationParameters() upload.AuthParams
}

// UploadHandler はアップロードウィジェット向けのHTTPハンドラー。
type UploadHandler struct {
	signer UploadSigner
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(signer UploadSigner) *UploadHandler {
	return &UploadHandler{signer: signer}
}

// AuthParams は署名済みの認証パラメータをJSONで返す。
// GET /api/auth/imagekit
func (h *UploadHandler) AuthParams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(h.signer.AuthenticationParameters())
}
