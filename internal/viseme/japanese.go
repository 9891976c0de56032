package viseme

// mora is one tabled Japanese unit.
type mora struct {
	shape Shape
	vowel string // あ い う え お, or ん
	class Class
}

var (
	vowelA = Shape{JawOpen: 0.8, LipRounding: 0, LipWidth: 0.6, TonguePosition: 0.3, TeethVisible: 0.3}
	vowelI = Shape{JawOpen: 0.2, LipRounding: 0, LipWidth: 1.0, TonguePosition: 0.8, TeethVisible: 0.8}
	vowelU = Shape{JawOpen: 0.3, LipRounding: 0.9, LipWidth: 0.2, TonguePosition: 0.6, TeethVisible: 0}
	vowelE = Shape{JawOpen: 0.4, LipRounding: 0, LipWidth: 0.8, TonguePosition: 0.6, TeethVisible: 0.5}
	vowelO = Shape{JawOpen: 0.5, LipRounding: 0.7, LipWidth: 0.4, TonguePosition: 0.4, TeethVisible: 0.1}
	nasalN = Shape{JawOpen: 0.1, LipRounding: 0.2, LipWidth: 0.5, TonguePosition: 0.5, TeethVisible: 0}

	// Lips sealed for the geminate hold.
	sokuon = Shape{JawOpen: 0.05, LipRounding: 0.15, LipWidth: 0.5, TonguePosition: 0.7, TeethVisible: 0}

	japaneseNeutral = Shape{JawOpen: 0.05, LipRounding: 0.1, LipWidth: 0.5, TonguePosition: 0.5, TeethVisible: 0}
)

var vowelShapes = map[string]Shape{
	"あ": vowelA, "い": vowelI, "う": vowelU, "え": vowelE, "お": vowelO, "ん": nasalN,
}

// smallKana maps combining small kana to the vowel they contribute.
var smallKana = map[rune]string{
	'ゃ': "あ", 'ゅ': "う", 'ょ': "お",
	'ぁ': "あ", 'ぃ': "い", 'ぅ': "う", 'ぇ': "え", 'ぉ': "お", 'ゎ': "あ",
}

// yoonBlend is how far a yōon unit moves from its consonant row towards the
// small kana's vowel.
const yoonBlend = 0.6

var japaneseMorae = buildJapanese()

func buildJapanese() map[string]mora {
	m := map[string]mora{}
	add := func(kana string, vowel string, class Class, s Shape) {
		m[kana] = mora{shape: s.Clamp(), vowel: vowel, class: class}
	}

	add("あ", "あ", ClassVowel, vowelA)
	add("い", "い", ClassVowel, vowelI)
	add("う", "う", ClassVowel, vowelU)
	add("え", "え", ClassVowel, vowelE)
	add("お", "お", ClassVowel, vowelO)
	add("ん", "ん", ClassNasal, nasalN)
	add("っ", "", ClassPlosive, sokuon)
	add("ー", "", ClassVowel, japaneseNeutral)

	add("か", "あ", ClassPlosive, vowelA.with(jaw(0.7)))
	add("き", "い", ClassPlosive, vowelI.with(jaw(0.25)))
	add("く", "う", ClassPlosive, vowelU.with(jaw(0.35)))
	add("け", "え", ClassPlosive, vowelE.with(jaw(0.45)))
	add("こ", "お", ClassPlosive, vowelO.with(jaw(0.55)))

	add("さ", "あ", ClassFricative, vowelA.with(teeth(0.6)))
	add("し", "い", ClassFricative, vowelI.with(round(0.3)))
	add("す", "う", ClassFricative, vowelU.with(teeth(0.3)))
	add("せ", "え", ClassFricative, vowelE.with(teeth(0.6)))
	add("そ", "お", ClassFricative, vowelO.with(teeth(0.2)))

	add("た", "あ", ClassPlosive, vowelA.with(tongue(0.7)))
	add("ち", "い", ClassFricative, vowelI.with(tongue(0.9)))
	add("つ", "う", ClassFricative, vowelU.with(teeth(0.4)))
	add("て", "え", ClassPlosive, vowelE.with(tongue(0.7)))
	add("と", "お", ClassPlosive, vowelO.with(tongue(0.6)))

	add("な", "あ", ClassNasal, vowelA.with(tongue(0.8)))
	add("に", "い", ClassNasal, vowelI.with(tongue(0.9)))
	add("ぬ", "う", ClassNasal, vowelU.with(tongue(0.8)))
	add("ね", "え", ClassNasal, vowelE.with(tongue(0.8)))
	add("の", "お", ClassNasal, vowelO.with(tongue(0.7)))

	fu := Shape{JawOpen: 0.2, LipRounding: 0.5, LipWidth: 0.3, TonguePosition: 0.4, TeethVisible: 0.1}
	add("は", "あ", ClassFricative, vowelA.with(jaw(0.9)))
	add("ひ", "い", ClassFricative, vowelI.with(jaw(0.3)))
	add("ふ", "う", ClassFricative, fu)
	add("へ", "え", ClassFricative, vowelE.with(jaw(0.5)))
	add("ほ", "お", ClassFricative, vowelO.with(jaw(0.6)))

	add("ま", "あ", ClassNasal, vowelA.with(jaw(0.6)))
	add("み", "い", ClassNasal, vowelI.with(jaw(0.2)))
	add("む", "う", ClassNasal, vowelU.with(jaw(0.2)))
	add("め", "え", ClassNasal, vowelE.with(jaw(0.35)))
	add("も", "お", ClassNasal, vowelO.with(jaw(0.4)))

	add("や", "あ", ClassSemivowel, vowelA.with(jaw(0.7)))
	add("ゆ", "う", ClassSemivowel, vowelU.with(jaw(0.4)))
	add("よ", "お", ClassSemivowel, vowelO.with(jaw(0.5)))

	add("ら", "あ", ClassLiquid, vowelA.with(tongue(0.6)))
	add("り", "い", ClassLiquid, vowelI.with(tongue(0.7)))
	add("る", "う", ClassLiquid, vowelU.with(tongue(0.6)))
	add("れ", "え", ClassLiquid, vowelE.with(tongue(0.6)))
	add("ろ", "お", ClassLiquid, vowelO.with(tongue(0.5)))

	add("わ", "あ", ClassSemivowel, vowelA.with(round(0.2)))
	add("ゐ", "い", ClassSemivowel, vowelI.with(round(0.2)))
	add("ゑ", "え", ClassSemivowel, vowelE.with(round(0.2)))
	add("を", "お", ClassSemivowel, vowelO.with(jaw(0.4)))
	add("ゔ", "う", ClassFricative, fu.with(jaw(0.3)))

	// Voiced rows share the voiceless mouth.
	voiced := map[string]string{
		"が": "か", "ぎ": "き", "ぐ": "く", "げ": "け", "ご": "こ",
		"ざ": "さ", "じ": "し", "ず": "す", "ぜ": "せ", "ぞ": "そ",
		"だ": "た", "ぢ": "ち", "づ": "つ", "で": "て", "ど": "と",
	}
	for k, base := range voiced {
		b := m[base]
		add(k, b.vowel, b.class, b.shape)
	}

	// Bilabials close further than the h row they are written on.
	add("ば", "あ", ClassPlosive, m["は"].shape.with(jaw(0.7)))
	add("び", "い", ClassPlosive, m["ひ"].shape.with(jaw(0.2)))
	add("ぶ", "う", ClassPlosive, fu.with(jaw(0.3)))
	add("べ", "え", ClassPlosive, m["へ"].shape.with(jaw(0.4)))
	add("ぼ", "お", ClassPlosive, m["ほ"].shape.with(jaw(0.5)))

	add("ぱ", "あ", ClassPlosive, m["は"].shape.with(jaw(0.6), round(0.1)))
	add("ぴ", "い", ClassPlosive, m["ひ"].shape.with(jaw(0.15), round(0.1)))
	add("ぷ", "う", ClassPlosive, fu.with(jaw(0.25), round(0.8)))
	add("ぺ", "え", ClassPlosive, m["へ"].shape.with(jaw(0.35), round(0.1)))
	add("ぽ", "お", ClassPlosive, m["ほ"].shape.with(jaw(0.45), round(0.6)))

	// Standalone small kana read as their full-size vowel or glide.
	for small, vowel := range smallKana {
		add(string(small), vowel, ClassSemivowel, vowelShapes[vowel])
	}
	return m
}

// japaneseShape resolves a folded hiragana key.
func japaneseShape(key string) (Shape, bool) {
	if m, ok := japaneseMorae[key]; ok {
		return m.shape, true
	}
	if m, ok := yoon(key); ok {
		return m.shape, true
	}
	return Shape{}, false
}

// yoon combines a kana with a trailing small kana (きゃ, ふぁ).
func yoon(key string) (mora, bool) {
	r := []rune(key)
	if len(r) != 2 {
		return mora{}, false
	}
	vowel, ok := smallKana[r[1]]
	if !ok {
		return mora{}, false
	}
	base, ok := japaneseMorae[string(r[0])]
	if !ok {
		return mora{}, false
	}
	return mora{
		shape: base.shape.Lerp(vowelShapes[vowel], yoonBlend),
		vowel: vowel,
		class: base.class,
	}, true
}

func japaneseMora(key string) (mora, bool) {
	if m, ok := japaneseMorae[key]; ok {
		return m, true
	}
	return yoon(key)
}
