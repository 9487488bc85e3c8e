package medical

import "testing"

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-10-17", "2024-10-17"},
		{"2024-1-5", "2024-01-05"},
		{"17/10/2024", "2024-10-17"},
		{"10/17/2024", "2024-10-17"},
		{"03/04/2024", "2024-03-04"}, // ambiguous: month-first per heuristic
		{"17-10-2024", "2024-10-17"},
		{"12 Oct 2024", "2024-10-12"},
		{"October 12, 2024", "2024-10-12"},
		{"  2023-11-15  ", "2023-11-15"},
		{"", ""},
		{"not a date", "not a date"}, // unparseable stays verbatim
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeDate(tt.in); got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
