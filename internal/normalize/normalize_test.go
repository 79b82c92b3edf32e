package normalize

import (
	"strings"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	got, changes := Normalize("  I need   a\tloan  ", "")
	if got != "I need a loan" {
		t.Errorf("got %q", got)
	}
	if !hasChange(changes, "cleaned_whitespace") {
		t.Errorf("changes = %v, want cleaned_whitespace", changes)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Rs. 50000", "₹50000"},
		{"rs 50000", "₹50000"},
		{"50000 rupees per month", "50000 ₹per month"},
		{"INR 500000", "₹500000"},
	}
	for _, c := range cases {
		got, changes := Normalize(c.in, "")
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
		if !hasChange(changes, "normalized_currency") {
			t.Errorf("Normalize(%q) changes = %v, want normalized_currency", c.in, changes)
		}
	}
}

func TestNormalizeKeepsYears(t *testing.T) {
	got, _ := Normalize("for 5 years", "")
	if strings.Contains(got, "₹") {
		t.Errorf("'years' must not trigger currency handling: %q", got)
	}
}

func TestNormalizeNumberWords(t *testing.T) {
	got, changes := Normalize("I am thirty years old", "")
	if got != "I am 30 years old" {
		t.Errorf("got %q", got)
	}
	if !hasChange(changes, "normalized_numbers") {
		t.Errorf("changes = %v, want normalized_numbers", changes)
	}
}

func TestNormalizeKeepsMagnitudePhrases(t *testing.T) {
	// "five lakh" and "fifty thousand" carry magnitude; substituting the
	// leading word would corrupt the amount.
	for _, in := range []string{"I need five lakh", "income is fifty thousand"} {
		got, _ := Normalize(in, "")
		if got != in {
			t.Errorf("Normalize(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once, _ := Normalize("Rs. 50000 for  five years", "")
	twice, changes := Normalize(once, "")
	if twice != once {
		t.Errorf("second pass changed text: %q -> %q", once, twice)
	}
	if len(changes) != 0 {
		t.Errorf("second pass reported changes: %v", changes)
	}
}

func TestNormalizeHindiHint(t *testing.T) {
	got, changes := Normalize("loan chahiye hai", "hindi")
	if !strings.Contains(got, "है") {
		t.Errorf("got %q, want Devanagari substitution", got)
	}
	if !hasChange(changes, "transliterated_to_devanagari") {
		t.Errorf("changes = %v", changes)
	}

	// Without the hint the text passes through unchanged.
	got, _ = Normalize("loan chahiye hai", "")
	if got != "loan chahiye hai" {
		t.Errorf("got %q, want unchanged without hint", got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	got, changes := Normalize("", "")
	if got != "" || len(changes) != 0 {
		t.Errorf("got %q, %v", got, changes)
	}
}

func hasChange(changes []string, want string) bool {
	for _, c := range changes {
		if c == want {
			return true
		}
	}
	return false
}
