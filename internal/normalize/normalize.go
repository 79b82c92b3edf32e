// Package normalize cleans raw transcribed or typed text before slot
// extraction. It never fails: unrecognized input passes through unchanged.
package normalize

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Currency shorthand mapped to the canonical symbol. Word boundaries keep
	// "years" and words containing "rs" intact.
	currencyRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bRs\.\s*`),
		regexp.MustCompile(`(?i)\bRs\s+`),
		regexp.MustCompile(`(?i)\brupees?\s+`),
		regexp.MustCompile(`(?i)\brs\.`),
		regexp.MustCompile(`(?i)\bINR\s+`),
	}

	// Conservative number-word substitution. Words followed by a unit word
	// ("fifty thousand", "five lakh") are left for the extractor.
	numberWords = []struct {
		re    *regexp.Regexp
		digit string
	}{
		{wordRe("zero"), "0"}, {wordRe("one"), "1"}, {wordRe("two"), "2"},
		{wordRe("three"), "3"}, {wordRe("four"), "4"}, {wordRe("five"), "5"},
		{wordRe("six"), "6"}, {wordRe("seven"), "7"}, {wordRe("eight"), "8"},
		{wordRe("nine"), "9"}, {wordRe("ten"), "10"}, {wordRe("eleven"), "11"},
		{wordRe("twelve"), "12"}, {wordRe("thirteen"), "13"}, {wordRe("fourteen"), "14"},
		{wordRe("fifteen"), "15"}, {wordRe("sixteen"), "16"}, {wordRe("seventeen"), "17"},
		{wordRe("eighteen"), "18"}, {wordRe("nineteen"), "19"}, {wordRe("twenty"), "20"},
		{wordRe("thirty"), "30"}, {wordRe("forty"), "40"}, {wordRe("fifty"), "50"},
		{wordRe("sixty"), "60"}, {wordRe("seventy"), "70"}, {wordRe("eighty"), "80"},
		{wordRe("ninety"), "90"},
	}

	unitFollows = regexp.MustCompile(`(?i)^\s+(thousand|lakh|lac|crore|hundred)\b`)

	// Common Hinglish words for the hindi language hint. A word map, not a
	// transliteration engine.
	devanagari = map[string]string{
		"hai": "है", "main": "में", "ke": "के", "ki": "की", "ka": "का",
		"ko": "को", "se": "से", "mein": "में", "hain": "हैं",
		"nahi": "नहीं", "nahin": "नहीं",
	}
)

func wordRe(w string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + w + `\b`)
}

// Normalize cleans text and reports which transformations were applied.
// languageHint enables script-specific handling ("hindi"/"hi").
func Normalize(text, languageHint string) (string, []string) {
	var changes []string

	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if cleaned != text {
		changes = append(changes, "cleaned_whitespace")
	}

	withDigits := normalizeNumbers(cleaned)
	if withDigits != cleaned {
		changes = append(changes, "normalized_numbers")
	}

	out := withDigits
	for _, re := range currencyRes {
		out = re.ReplaceAllString(out, "₹")
	}
	if out != withDigits {
		changes = append(changes, "normalized_currency")
	}

	switch strings.ToLower(languageHint) {
	case "hindi", "hi":
		transliterated := transliterate(out)
		if transliterated != out {
			changes = append(changes, "transliterated_to_devanagari")
			out = transliterated
		}
	}

	return out, changes
}

func normalizeNumbers(text string) string {
	for _, nw := range numberWords {
		text = replaceAllUnlessUnit(text, nw.re, nw.digit)
	}
	return text
}

// replaceAllUnlessUnit substitutes a number word with its digit except when a
// unit word follows, where the phrase carries magnitude the digit would lose.
func replaceAllUnlessUnit(text string, re *regexp.Regexp, digit string) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if unitFollows.MatchString(text[loc[1]:]) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(digit)
		last = loc[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func transliterate(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		if hi, ok := devanagari[strings.ToLower(w)]; ok {
			words[i] = hi
		}
	}
	return strings.Join(words, " ")
}
