package normalizer

import (
	"testing"
)

func TestFoldChar(t *testing.T) {
	tests := []struct {
		name     string
		input    rune
		expected string
	}{
		{"turkish c cedilla", 'Ç', "c"},
		{"turkish s cedilla", 'ş', "s"},
		{"turkish dotless i", 'ı', "i"},
		{"german u umlaut", 'Ü', "u"},
		{"german eszett", 'ß', "ss"},
		{"french e acute", 'é', "e"},
		{"spanish n tilde", 'Ñ', "n"},
		{"polish l stroke", 'Ł', "l"},
		{"nordic o slash", 'ø', "o"},
		{"ascii uppercase", 'A', "a"},
		{"digit", '7', "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FoldChar(tt.input)
			if result != tt.expected {
				t.Errorf("FoldChar(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"person name", "  José   María GARCÍA ", "jose maria garcia"},
		{"decomposed accent", "José", "jose"},
		{"german street", "Hauptstraße 5", "hauptstrasse 5"},
		{"organization", "ACME Widgets, Inc.", "acme widgets, inc."},
		{"address keeps punctuation", "123 Main St,  Anytown", "123 main st, anytown"},
		{"tabs and newlines", "Jane\tQ\nDoe", "jane q doe"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeIdentity(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeIdentity(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeOptions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     Options
		expected string
	}{
		{"nothing", "Zoë  Smith", Options{}, "Zoë  Smith"},
		{"case only", "Zoë  Smith", Options{FoldCase: true}, "zoë  smith"},
		{"diacritics only", "Zoë  Smith", Options{StripDiacritics: true}, "Zoe  Smith"},
		{"strip punctuation", "O'Brien-Smith, Ltd.", Options{FoldCase: true, StripPunctuation: true, CollapseSpace: true}, "o brien smith ltd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.input, tt.opts)
			if result != tt.expected {
				t.Errorf("Normalize(%q, %+v) = %q, want %q", tt.input, tt.opts, result, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"José María", "Hauptstraße", "ÆSIR  Œuvre", "O'Brien"}
	for _, in := range inputs {
		once := NormalizeIdentity(in)
		twice := NormalizeIdentity(once)
		if once != twice {
			t.Errorf("NormalizeIdentity not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func BenchmarkNormalizeIdentity(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NormalizeIdentity("  José   María GARCÍA, 123 Hauptstraße ")
	}
}
