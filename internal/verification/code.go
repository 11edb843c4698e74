// Package verification はメール検証コードの発行と照合を提供する。
// チャレンジはメールアドレスごとにキー付けされ、TTL付きでストアに保持される。
package verification

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// GenerateCode は指定桁数の数字検証コードを生成する。
// 生成源はcrypto/randであり、外部の観測者には予測不可能である。
func GenerateCode(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
