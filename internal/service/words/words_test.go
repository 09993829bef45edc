package words

import (
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple sentence", "where two or three", []string{"where", "two", "or", "three"}},
		{"collapses whitespace runs", "where  two\tor   three", []string{"where", "two", "or", "three"}},
		{"leading and trailing space", "  amen  ", []string{"amen"}},
		{"empty input", "", nil},
		{"whitespace only", "   \t  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d words, got %d", len(tt.want), len(got))
			}
			for i, w := range got {
				if w.Original != tt.want[i] {
					t.Errorf("word %d: expected %q, got %q", i, tt.want[i], w.Original)
				}
			}
		})
	}
}

func TestWordCleanForm(t *testing.T) {
	tests := []struct {
		original string
		clean    string
	}{
		{"Gathered", "gathered"},
		{"name.", "name"},
		{"doctrine!", "doctrine"},
		{"'quoted'", "quoted"},
		{"(aside)", "aside"},
		{"self-centered", "selfcentered"},
		{"It's", "its"},
		{"123", "123"},
		{"...", ""},
	}

	for _, tt := range tests {
		got := New(tt.original)
		if got.Clean != tt.clean {
			t.Errorf("%q: expected clean form %q, got %q", tt.original, tt.clean, got.Clean)
		}
	}
}

func TestWordFlags(t *testing.T) {
	tests := []struct {
		original    string
		punctuation bool
		compound    bool
	}{
		{"gathered", false, false},
		{"name.", true, false},
		{"self-centered", true, true},
		{"well-to-do", true, true},
		{"-dash", true, false},
		{"dash-", true, false},
		{"7-11", true, false},
	}

	for _, tt := range tests {
		got := New(tt.original)
		if got.HasPunctuation != tt.punctuation {
			t.Errorf("%q: expected HasPunctuation=%v, got %v", tt.original, tt.punctuation, got.HasPunctuation)
		}
		if got.IsCompound != tt.compound {
			t.Errorf("%q: expected IsCompound=%v, got %v", tt.original, tt.compound, got.IsCompound)
		}
	}
}

func TestIsDigits(t *testing.T) {
	tests := []struct {
		original string
		want     bool
	}{
		{"23", true},
		{"23.", true},
		{"23rd", false},
		{"two", false},
		{"...", false},
	}

	for _, tt := range tests {
		if got := New(tt.original).IsDigits(); got != tt.want {
			t.Errorf("%q: expected IsDigits=%v, got %v", tt.original, tt.want, got)
		}
	}
}

func TestCompoundParts(t *testing.T) {
	parts := New("Self-Centered").CompoundParts()
	want := []string{"self", "centered"}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %d", len(want), len(parts))
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d: expected %q, got %q", i, want[i], parts[i])
		}
	}

	if got := New("plain").CompoundParts(); got != nil {
		t.Errorf("expected nil parts for non-compound word, got %v", got)
	}
}

func TestReconstruct(t *testing.T) {
	text := "You just  can't beat   people"
	got := Reconstruct(Tokenize(text))
	want := "You just can't beat people"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if got := Reconstruct(nil); got != "" {
		t.Errorf("expected empty string for nil words, got %q", got)
	}

	// Reconstruction of an already-normalized text is the identity.
	if again := Reconstruct(Tokenize(got)); again != got {
		t.Errorf("expected reconstruction to be stable, got %q then %q", got, again)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("expected single spaces in %q", got)
	}
}
