package viseme

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	katakanaFirst = 0x30A1 // ァ
	katakanaLast  = 0x30F6 // ヶ
	kanaOffset    = 0x60
)

// Fold normalizes a unit to its lookup key. Japanese keys are NFKC
// normalized (half-width kana and combining voicing marks compose) and
// katakana is folded to hiragana. English keys are lowercased.
func Fold(unit string, lang Language) string {
	s := norm.NFKC.String(unit)
	if lang == English {
		return strings.ToLower(s)
	}
	return strings.Map(func(r rune) rune {
		if r >= katakanaFirst && r <= katakanaLast {
			return r - kanaOffset
		}
		if r == 'ヴ' {
			return 'ゔ'
		}
		return r
	}, s)
}

// isVoicingMark reports combining and half-width dakuten/handakuten.
func isVoicingMark(r rune) bool {
	switch r {
	case 0x3099, 0x309A, 0xFF9E, 0xFF9F:
		return true
	}
	return false
}

// isSilent reports runes that are never spoken: punctuation, symbols
// (including emoji) and control characters.
func isSilent(r rune) bool {
	if r == 'ー' || r == 'ｰ' {
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsControl(r)
}

// isPause reports whether a unit carries no speech at all.
func isPause(unit string) bool {
	for _, r := range unit {
		if !isSilent(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func isHiragana(r rune) bool {
	return r >= 0x3041 && r <= 0x3096
}
