package security

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"session-42.csv", "session-42.csv"},
		{"", "unknown"},
		{"../../etc/passwd", "etc_passwd"},
		{"my session (final).csv", "my_session_final_.csv"},
		{"___", "unknown"},
		{"résumé.csv", "r_sum_.csv"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
