package medical

import "testing"

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		refRange string
		reported string
		want     string
	}{
		// Qualitative results: the text is authoritative, even when the
		// report prints a numeric ratio next to it.
		{"non-reactive maps normal", "Non-Reactive", "< 1.0", "", StatusNormal},
		{"reactive maps abnormal", "Reactive", "< 1.0", "normal", StatusAbnormal},
		{"negative maps normal", "Negative", "", "", StatusNormal},
		{"positive maps abnormal", "POSITIVE", "", "", StatusAbnormal},
		{"not detected maps normal", "Not Detected", "", "", StatusNormal},

		// Numeric comparison against the reference range.
		{"inside range", "14.5", "12.0-16.0", "", StatusNormal},
		{"below range", "10.2", "12.0-16.0", "", StatusLow},
		{"above range", "17.1", "12.0 - 16.0", "", StatusHigh},
		{"range with to separator", "250", "150 to 400", "", StatusNormal},
		{"upper bound only", "1.4", "< 1.0", "", StatusHigh},
		{"upper bound satisfied", "0.4", "< 1.0", "", StatusNormal},
		{"lower bound only", "35", "> 40", "", StatusLow},
		{"thousands separator", "7,500", "4,000-11,000", "", StatusNormal},

		// Fallback to the model-reported status.
		{"unparseable range keeps reported", "14.5", "see note", "high", StatusHigh},
		{"critical folds into abnormal", "??", "", "critical", StatusAbnormal},
		{"nothing known", "", "", "", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.value, tt.refRange, tt.reported)
			if got != tt.want {
				t.Errorf("DeriveStatus(%q, %q, %q) = %q, want %q",
					tt.value, tt.refRange, tt.reported, got, tt.want)
			}
		})
	}
}

func TestRiskScore(t *testing.T) {
	cases := map[string]int{
		StatusNormal:   0,
		StatusHigh:     1,
		StatusLow:      1,
		StatusAbnormal: 1,
		StatusUnknown:  0,
		"":             0,
	}
	for status, want := range cases {
		if got := RiskScore(status); got != want {
			t.Errorf("RiskScore(%q) = %d, want %d", status, got, want)
		}
	}
}
