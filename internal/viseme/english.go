package viseme

import "strings"

var englishNeutral = Shape{JawOpen: 0.05, LipRounding: 0.1, LipWidth: 0.5, TonguePosition: 0.5, TeethVisible: 0}

type onset struct {
	viseme Oculus
	class  Class
}

// englishOnsets holds every tabled onset. Multi-letter entries are tried
// longest first.
var englishOnsets = map[string]onset{
	"th": {OculusTH, ClassFricative},
	"sh": {OculusCH, ClassFricative},
	"ch": {OculusCH, ClassFricative},
	"ph": {OculusFF, ClassFricative},
	"wh": {OculusOU, ClassSemivowel},
	"ck": {OculusKK, ClassPlosive},
	"qu": {OculusKK, ClassPlosive},
	"kn": {OculusNN, ClassNasal},
	"gn": {OculusNN, ClassNasal},
	"wr": {OculusRR, ClassLiquid},

	"p": {OculusPP, ClassPlosive}, "b": {OculusPP, ClassPlosive}, "m": {OculusPP, ClassNasal},
	"f": {OculusFF, ClassFricative}, "v": {OculusFF, ClassFricative},
	"t": {OculusDD, ClassPlosive}, "d": {OculusDD, ClassPlosive},
	"k": {OculusKK, ClassPlosive}, "g": {OculusKK, ClassPlosive}, "c": {OculusKK, ClassPlosive},
	"q": {OculusKK, ClassPlosive}, "x": {OculusKK, ClassFricative},
	"j": {OculusCH, ClassFricative},
	"s": {OculusSS, ClassFricative}, "z": {OculusSS, ClassFricative},
	"n": {OculusNN, ClassNasal}, "l": {OculusNN, ClassLiquid},
	"r": {OculusRR, ClassLiquid},
	"w": {OculusOU, ClassSemivowel}, "y": {OculusIH, ClassSemivowel},
	"h": {OculusAA, ClassFricative},
}

var englishVowels = map[byte]Oculus{
	'a': OculusAA, 'e': OculusE, 'i': OculusIH, 'o': OculusOH, 'u': OculusOU,
}

// onsetBlend is the weight of the vowel nucleus against the onset mouth.
const onsetBlend = 0.5

// englishKey reduces a word to its lowercase ASCII letters.
func englishKey(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitOnset returns the leading consonant entry of key. An untabled
// cluster such as "str" falls back to its first letter.
func splitOnset(key string) (onset, bool) {
	if key == "" {
		return onset{}, false
	}
	if _, vowel := englishVowels[key[0]]; vowel {
		return onset{}, false
	}
	if len(key) >= 2 {
		if o, ok := englishOnsets[key[:2]]; ok {
			return o, true
		}
	}
	o, ok := englishOnsets[key[:1]]
	return o, ok
}

// nucleus returns the first vowel of the word. A y after a consonant counts.
func nucleus(key string) (Oculus, bool) {
	for i := 0; i < len(key); i++ {
		if v, ok := englishVowels[key[i]]; ok {
			return v, true
		}
		if key[i] == 'y' && i > 0 {
			return OculusIH, true
		}
	}
	return 0, false
}

func englishShape(word string) (Shape, bool) {
	key := englishKey(word)
	if key == "" {
		return Shape{}, false
	}
	vowel, hasVowel := nucleus(key)
	o, hasOnset := splitOnset(key)
	switch {
	case hasOnset && hasVowel:
		return oculusShapes[o.viseme].Lerp(oculusShapes[vowel], onsetBlend), true
	case hasOnset:
		return oculusShapes[o.viseme], true
	case hasVowel:
		return oculusShapes[vowel], true
	}
	return Shape{}, false
}

func englishClass(word string) Class {
	key := englishKey(word)
	if key == "" {
		return ClassPause
	}
	if o, ok := splitOnset(key); ok {
		return o.class
	}
	return ClassVowel
}

func englishOculus(word string) Oculus {
	key := englishKey(word)
	if key == "" {
		return OculusSil
	}
	if o, ok := splitOnset(key); ok {
		return o.viseme
	}
	if v, ok := nucleus(key); ok {
		return v
	}
	return OculusSil
}
