package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は外部XMLから取り込んだ文字列を無害化する。
// ユーザー名はダッシュボードにそのまま表示されるため、タグをすべて除去する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないポリシーでTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Text はタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
// bluemondayがエスケープした実体参照は元の文字に戻す。
func (s *TextSanitizer) Text(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// URL はhttp/httpsの絶対URLのみを通し、それ以外は空文字列を返す。
func (s *TextSanitizer) URL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}
