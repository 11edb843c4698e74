package verification

import (
	"testing"
)

func TestGenerateCode_ReturnsRequestedDigits(t *testing.T) {
	for _, digits := range []int{6, 8, 10} {
		code, err := GenerateCode(digits)
		if err != nil {
			t.Fatalf("GenerateCode(%d) returned error: %v", digits, err)
		}
		if len(code) != digits {
			t.Errorf("len(code) = %d, want %d", len(code), digits)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Errorf("code %q contains non-digit %q", code, c)
			}
		}
	}
}

func TestGenerateCode_InvalidDigits_ReturnsError(t *testing.T) {
	for _, digits := range []int{0, 5, 11, -1} {
		if _, err := GenerateCode(digits); err == nil {
			t.Errorf("GenerateCode(%d) expected error, got nil", digits)
		}
	}
}

func TestGenerateCode_ProducesVaryingCodes(t *testing.T) {
	// 暗号乱数由来であることの厳密な検証はできないが、
	// 連続生成した値がすべて同一なら生成器が壊れている。
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateCode(6)
		if err != nil {
			t.Fatalf("GenerateCode returned error: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected varying codes, got %d unique of 20", len(seen))
	}
}

func TestCodesMatch_CaseSensitive(t *testing.T) {
	if !codesMatch("AbC123", "AbC123") {
		t.Error("identical codes should match")
	}
	if codesMatch("AbC123", "abc123") {
		t.Error("comparison must be case-sensitive")
	}
}

func TestCodesMatch_PositionIndependentRejection(t *testing.T) {
	// 先頭桁違いと末尾桁違いのどちらも拒否されること
	if codesMatch("482913", "082913") {
		t.Error("code differing at first position should not match")
	}
	if codesMatch("482913", "482910") {
		t.Error("code differing at last position should not match")
	}
	if codesMatch("482913", "48291") {
		t.Error("code of different length should not match")
	}
}
