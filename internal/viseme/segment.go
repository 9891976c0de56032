package viseme

import (
	"fmt"
	"unicode"
)

// TokenKind describes how a token is spoken. The timing estimator weights
// units by kind.
type TokenKind int

const (
	KindMora     TokenKind = iota // consonant mora or unknown spoken rune
	KindVowel                     // vowel-only mora
	KindNasal                     // moraic nasal ん
	KindGeminate                  // sokuon っ
	KindLong                      // long vowel mark ー
	KindWord                      // English word
	KindPause                     // punctuation
)

var kindNames = [...]string{"mora", "vowel", "nasal", "geminate", "long", "word", "pause"}

func (k TokenKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k TokenKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *TokenKind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = TokenKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown token kind %q", text)
}

// Token is one speech unit cut from the input text.
type Token struct {
	Text      string    // raw text as written
	Lookup    string    // key passed to ShapeFor
	Kind      TokenKind
	Word      int       // ordinal of the word the token belongs to
	CharStart int       // rune offset in the input, inclusive
	CharEnd   int       // rune offset in the input, exclusive
}

// Segment cuts text into units: morae for Japanese, words with punctuation
// split out for English. Whitespace produces no token. Japanese kanji are
// replaced by their reading first; CharStart and CharEnd always refer to
// the input text.
func (t *Table) Segment(text string, lang Language) []Token {
	if lang == English {
		return segmentEnglish([]rune(text))
	}
	runes := []rune(text)
	var src spoken
	if t.reader != nil {
		src = t.reader.read(runes)
	} else {
		src.appendSame(runes, 0)
	}
	return t.segmentJapanese(src)
}

// segmentJapanese cuts kana into morae. Offsets are mapped back through src
// so a mora read from a kanji word spans the whole word.
func (t *Table) segmentJapanese(src spoken) []Token {
	var (
		out      []Token
		word     int
		wordOpen bool
		runes    = src.runes
		n        = len(runes)
	)
	closeWord := func() {
		if wordOpen {
			word++
			wordOpen = false
		}
	}

	for i := 0; i < n; {
		r := runes[i]
		if unicode.IsSpace(r) {
			closeWord()
			i++
			continue
		}
		if isSilent(r) {
			j := i
			for j < n && isSilent(runes[j]) {
				j++
			}
			closeWord()
			out = append(out, Token{
				Text: string(runes[i:j]), Lookup: string(runes[i:j]), Kind: KindPause,
				Word: word, CharStart: src.start[i], CharEnd: src.end[j-1],
			})
			word++
			i = j
			continue
		}

		j := i + 1
		for j < n && isVoicingMark(runes[j]) {
			j++
		}
		if j < n && takesSmallKana(runes[i:j]) && isSmallKanaRune(runes[j]) {
			j++
			for j < n && isVoicingMark(runes[j]) {
				j++
			}
		}

		raw := string(runes[i:j])
		lookup := Fold(raw, Japanese)
		kind := japaneseKind(lookup)
		if kind == KindLong {
			lookup = t.previousVowel(out)
		}
		out = append(out, Token{
			Text: raw, Lookup: lookup, Kind: kind,
			Word: word, CharStart: src.start[i], CharEnd: src.end[j-1],
		})
		wordOpen = true
		i = j
	}
	return out
}

// previousVowel resolves ー to the vowel of the preceding spoken unit.
func (t *Table) previousVowel(tokens []Token) string {
	for k := len(tokens) - 1; k >= 0; k-- {
		if tokens[k].Kind == KindPause {
			break
		}
		if v := t.VowelOf(tokens[k].Lookup); v != "" {
			return v
		}
	}
	return "ー"
}

func japaneseKind(key string) TokenKind {
	switch key {
	case "ー":
		return KindLong
	case "っ":
		return KindGeminate
	case "ん":
		return KindNasal
	case "あ", "い", "う", "え", "お":
		return KindVowel
	}
	return KindMora
}

// takesSmallKana reports whether a base unit can absorb a following small
// kana into one mora.
func takesSmallKana(base []rune) bool {
	key := []rune(Fold(string(base), Japanese))
	if len(key) != 1 || !isHiragana(key[0]) {
		return false
	}
	if _, small := smallKana[key[0]]; small {
		return false
	}
	switch key[0] {
	case 'ん', 'っ', 'ゃ', 'ゅ', 'ょ':
		return false
	}
	return true
}

func isSmallKanaRune(r rune) bool {
	key := []rune(Fold(string(r), Japanese))
	if len(key) != 1 {
		return false
	}
	_, ok := smallKana[key[0]]
	return ok
}

func segmentEnglish(runes []rune) []Token {
	var (
		out  []Token
		word int
		n    = len(runes)
	)
	emit := func(start, end int, kind TokenKind) {
		if start >= end {
			return
		}
		text := string(runes[start:end])
		out = append(out, Token{
			Text: text, Lookup: Fold(text, English), Kind: kind,
			Word: word, CharStart: start, CharEnd: end,
		})
		word++
	}

	for i := 0; i < n; {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		end := i
		for end < n && !unicode.IsSpace(runes[end]) {
			end++
		}
		lead := i
		for lead < end && isSilent(runes[lead]) {
			lead++
		}
		trail := end
		for trail > lead && isSilent(runes[trail-1]) {
			trail--
		}
		emit(i, lead, KindPause)
		emit(lead, trail, KindWord)
		emit(trail, end, KindPause)
		i = end
	}
	return out
}
