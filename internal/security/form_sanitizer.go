// Package security はアプリケーションのセキュリティ機能を提供する。
//
// FormSanitizer は登録フォームの自由入力フィールド（氏名等）をサニタイズし、
// 保存値を経由したXSSからダウンストリームの画面を保護する。
// bluemondayのStrictPolicyを使用し、HTMLタグをすべて除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FormSanitizer はフォーム入力テキストのサニタイズ機能のインターフェースを定義する。
type FormSanitizer interface {
	// SanitizeText は自由入力テキストからHTMLタグをすべて除去し、
	// 前後の空白を取り除いて返す。同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(input string) string
}

// formSanitizer はFormSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type formSanitizer struct {
	policy *bluemonday.Policy
}

// NewFormSanitizer はFormSanitizerの新しいインスタンスを生成する。
// 氏名やユーザー名にマークアップが含まれる正当な理由はないため、
// タグを一切許可しないStrictPolicyを使用する。
func NewFormSanitizer() *formSanitizer {
	return &formSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はHTMLタグをすべて除去し、前後の空白を取り除いて返す。
func (s *formSanitizer) SanitizeText(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}
