package handlers

import "testing"

func TestIsValidProofURL(t *testing.T) {
	valid := []string{
		"https://imgur.com/a/abc123",
		"http://example.com/screenshot.png",
	}
	for _, raw := range valid {
		if !isValidProofURL(raw) {
			t.Errorf("expected %q to be valid", raw)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"ftp://example.com/file",
		"javascript:alert(1)",
		"/relative/path",
	}
	for _, raw := range invalid {
		if isValidProofURL(raw) {
			t.Errorf("expected %q to be invalid", raw)
		}
	}
}
