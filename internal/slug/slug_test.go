package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Project Ö/Z!", "project-oz"},
		{"Backend API", "backend-api"},
		{"  Meetings & Admin  ", "meetings-admin"},
		{"DevOps / Infrastructure", "devops-infrastructure"},
		{"Crème brûlée", "creme-brulee"},
		{"multiple---hyphens   and spaces", "multiple-hyphens-and-spaces"},
		{"_leading_and_trailing_", "leading_and_trailing"},
		{"-_mixed_-", "mixed"},
		{"日本語", ""},
		{"ﬁle №5", "file-no5"},
		{"a\vb", "a-b"},
		{"unit\x1fseparated\x1cfile", "unit-separated-file"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Make(tt.in); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMakeIdempotent(t *testing.T) {
	inputs := []string{
		"Project Ö/Z!",
		"a_ b",
		"Über-Größe -- Test",
		"  --weird__ input--  ",
		"Task #42: fix login",
		"tab\tseparated\nlines",
	}

	for _, in := range inputs {
		once := Make(in)
		if twice := Make(once); twice != once {
			t.Errorf("Make not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestMakeASCIIOnly(t *testing.T) {
	got := Make("Ça va? Ørsted Ålesund")
	for _, r := range got {
		if r >= 0x80 {
			t.Fatalf("Make returned non-ASCII rune %q in %q", r, got)
		}
	}
}
