package viseme

// Table answers shape, class and viseme lookups for both languages.
// It is safe for concurrent use.
type Table struct {
	reader *Reader
}

// NewTable returns the built-in table. Japanese kanji are read through the
// IPA dictionary, which is loaded on first use.
func NewTable() *Table {
	return &Table{reader: &Reader{}}
}

// Reader returns the kanji reader used by Segment, or nil when the table
// segments kana only.
func (t *Table) Reader() *Reader {
	return t.reader
}

// ShapeFor returns the mouth shape for a unit. It is total: any input,
// including empty strings, digits, emoji and unsupported scripts, yields a
// shape, falling back to the language's neutral.
func (t *Table) ShapeFor(unit string, lang Language) Shape {
	if isPause(unit) {
		return Neutral(lang)
	}
	key := Fold(unit, lang)
	var (
		s  Shape
		ok bool
	)
	if lang == English {
		s, ok = englishShape(key)
	} else {
		s, ok = japaneseShape(key)
	}
	if !ok {
		return Neutral(lang)
	}
	return s
}

// Classify returns the articulation class of a unit. Unknown spoken units
// are reported as vowels.
func (t *Table) Classify(unit string, lang Language) Class {
	if isPause(unit) {
		return ClassPause
	}
	key := Fold(unit, lang)
	if lang == English {
		return englishClass(key)
	}
	if m, ok := japaneseMora(key); ok {
		return m.class
	}
	return ClassVowel
}

// Oculus returns the Oculus viseme id used for timeline export.
func (t *Table) Oculus(unit string, lang Language) Oculus {
	if isPause(unit) {
		return OculusSil
	}
	key := Fold(unit, lang)
	if lang == English {
		return englishOculus(key)
	}
	m, ok := japaneseMora(key)
	if !ok {
		return OculusSil
	}
	switch key {
	case "っ":
		return OculusPP
	case "ふ", "ぶ", "ぷ", "ゔ":
		return OculusOU
	}
	if id, ok := japaneseOculus[m.vowel]; ok {
		return id
	}
	return OculusSil
}

// VowelOf returns the vowel kana a Japanese unit ends on, or "" when it has
// none (っ, unknown units).
func (t *Table) VowelOf(unit string) string {
	m, ok := japaneseMora(Fold(unit, Japanese))
	if !ok {
		return ""
	}
	return m.vowel
}
