package storage

import "testing"

func TestCommission(t *testing.T) {
	cases := []struct {
		amount int64
		want   int64
	}{
		{1, 0},
		{49, 0},
		{50, 1},
		{99, 1},
		{100, 2},
		{101, 2},
		{999, 19},
		{1000, 20},
		{12345, 246},
	}
	for _, tc := range cases {
		if got := Commission(tc.amount); got != tc.want {
			t.Errorf("Commission(%d) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestGenerateUserCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateUserCode()
		if len(code) != UserCodeLength {
			t.Fatalf("expected %d digits, got %q", UserCodeLength, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %q", code)
		}
		seen[code] = true
	}
}
