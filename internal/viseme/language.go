package viseme

import (
	"fmt"
	"strings"
)

// Language selects the segmentation rules and shape table.
type Language string

const (
	Japanese Language = "ja"
	English  Language = "en"
)

// ParseLanguage accepts BCP-47 style tags ("ja-JP", "en_US") and bare names.
func ParseLanguage(s string) (Language, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	switch tag {
	case "ja", "jp", "japanese":
		return Japanese, nil
	case "en", "english":
		return English, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

func (l Language) String() string {
	return string(l)
}

// Neutral returns the language's resting mouth shape.
func Neutral(lang Language) Shape {
	if lang == English {
		return englishNeutral
	}
	return japaneseNeutral
}

// DetectLanguage guesses the language of text: any kana or CJK ideograph
// selects Japanese, everything else English.
func DetectLanguage(text string) Language {
	for _, r := range text {
		switch {
		case r >= 0x3040 && r <= 0x30FF, // hiragana, katakana
			r >= 0x31F0 && r <= 0x31FF, // katakana extensions
			r >= 0xFF66 && r <= 0xFF9F, // half-width katakana
			r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
			return Japanese
		}
	}
	return English
}
