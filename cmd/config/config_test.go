package config

import "testing"

func TestRandomSecret(t *testing.T) {
	first := randomSecret()
	second := randomSecret()

	if len(first) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(first))
	}
	if first == second {
		t.Fatal("secrets must not repeat")
	}
	for _, r := range first {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("non-hex character in secret: %q", r)
		}
	}
}
