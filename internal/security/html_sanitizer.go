package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// SummarySanitizer は書籍のあらすじHTMLを許可リストでサニタイズする。
// 見出し・段落・リスト・強調・リンクのみを残し、画像や埋め込みは除去する。
type SummarySanitizer struct {
	policy *bluemonday.Policy
}

// NewSummarySanitizer はSummarySanitizerを生成する。
func NewSummarySanitizer() *SummarySanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "h3", "h4",
		"ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	// リンクは絶対URLのみ。外部リンクは新しいタブで開く
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &SummarySanitizer{policy: p}
}

// Sanitize は安全なHTMLを返す。同一入力に対して常に同一出力を返す。
func (s *SummarySanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
