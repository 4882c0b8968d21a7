package merchant

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"SWIGGY", "swiggy"},
		{"  Big   Bazaar  ", "big bazaar"},
		{"swiggy", "swiggy"},
		{"", ""},
		{"   ", ""},
		{"RELIANCE\tFRESH", "reliance fresh"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}

	// Idempotent: normalizing a normalized key changes nothing.
	for _, tt := range tests {
		once := Normalize(tt.raw)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", tt.raw, twice, once)
		}
	}
}

func TestFormatDisplayName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"swiggy", "Swiggy"},
		{"big bazaar", "Big Bazaar"},
		{"dr lal pathlabs", "DR Lal Pathlabs"},
		{"io", "IO"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FormatDisplayName(tt.raw); got != tt.want {
			t.Errorf("FormatDisplayName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFormatDisplayNameTruncates(t *testing.T) {
	long := "verylongmerchantnamepartone verylongmerchantnameparttwo"
	if got := FormatDisplayName(long); len(got) > 50 {
		t.Errorf("len(FormatDisplayName(long)) = %d, want <= 50", len(got))
	}
}
