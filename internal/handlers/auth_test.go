package handlers

import "testing"

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		username string
		rejected bool
	}{
		{"stepan", false},
		{"MegaFan2024", false},
		{"Admin2024", true},
		{"administrator", true},
		{"xXmoderatorXx", true},
		{"ROOTed", true},
		{"сука123", true},
		{"normal_user", false},
	}
	for _, tc := range cases {
		msg := validateUsername(tc.username)
		if tc.rejected && msg == "" {
			t.Errorf("expected %q to be rejected", tc.username)
		}
		if !tc.rejected && msg != "" {
			t.Errorf("expected %q to pass, got %q", tc.username, msg)
		}
	}
}

func TestParseAmount(t *testing.T) {
	if amount, ok := parseAmount("150"); !ok || amount != 150 {
		t.Fatalf("expected 150, got %d ok=%v", amount, ok)
	}
	for _, raw := range []string{"", "0", "-5", "1.5", "abc"} {
		if _, ok := parseAmount(raw); ok {
			t.Errorf("expected %q to be refused", raw)
		}
	}
}
