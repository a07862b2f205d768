package codec

import "testing"

func TestNormalizeName_CaseIdempotent(t *testing.T) {
	inputs := []string{"Hot Sauce", "hot sauce", "HOT SAUCE", "  hOt SaUcE "}
	for _, in := range inputs {
		got, err := NormalizeName(in)
		if err != nil {
			t.Fatalf("NormalizeName(%q) error = %v", in, err)
		}
		if got != "Hot Sauce" {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, "Hot Sauce")
		}
	}
}

func TestNormalizeName_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		if _, err := NormalizeName(in); err == nil {
			t.Errorf("NormalizeName(%q) expected error", in)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hot Sauce", "hot-sauce"},
		{"Hi there! How are you!", "hi-there-how-are-you"},
		{"Frank's  RedHot", "frank-s-redhot"},
		{"100% Pain", "100-pain"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugForCount_Suffixes(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "hot-sauce"},
		{1, "hot-sauce-2"},
		{2, "hot-sauce-3"},
	}
	for _, tt := range tests {
		got, err := SlugForCount("hot sauce", tt.count)
		if err != nil {
			t.Fatalf("SlugForCount(count=%d) error = %v", tt.count, err)
		}
		if got != tt.want {
			t.Errorf("SlugForCount(count=%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestSlugForCount_EmptyName(t *testing.T) {
	if _, err := SlugForCount("  ", 0); err == nil {
		t.Error("expected error for empty name")
	}
}
