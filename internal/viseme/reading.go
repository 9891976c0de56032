package viseme

import (
	"sort"
	"sync"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// readingOverrides fixes words the morphological dictionary reads wrong or
// ambiguously in clinical dialogue. Longer keys win.
var readingOverrides = map[string]string{
	"痛んでいます": "いたんでいます",
	"痛んでいる":  "いたんでいる",
	"痛んでいて":  "いたんでいて",
	"痛んで":    "いたんで",
	"痛みます":   "いたみます",
	"痛みが":    "いたみが",
	"痛み":     "いたみ",

	"薬":    "くすり",
	"お薬":   "おくすり",
	"鎮痛薬":  "ちんつうやく",
	"痛み止め": "いたみどめ",
	"鎮痛剤":  "ちんつうざい",

	"親知らず": "おやしらず",
	"歯周病":  "ししゅうびょう",
	"虫歯":   "むしば",
	"歯茎":   "はぐき",
	"歯石":   "しせき",
	"歯垢":   "しこう",
	"歯磨き":  "はみがき",
	"歯ブラシ": "はぶらし",
	"詰め物":  "つめもの",
	"被せ物":  "かぶせもの",
	"根管治療": "こんかんちりょう",
	"抜歯":   "ばっし",
	"麻酔":   "ますい",
	"局所麻酔": "きょくしょますい",
	"歯髄":   "しずい",
	"歯肉":   "しにく",
	"顎関節":  "がくかんせつ",
	"噛み合わせ": "かみあわせ",
	"咬合":   "こうごう",
	"口腔":   "こうくう",
	"口臭":   "こうしゅう",
	"口内炎":  "こうないえん",
	"知覚過敏": "ちかくかびん",
	"歯列矯正": "しれつきょうせい",
	"入れ歯":  "いれば",
	"義歯":   "ぎし",

	"食事中": "しょくじちゅう",
	"食事後": "しょくじご",
	"食事前": "しょくじまえ",
	"朝食後": "ちょうしょくご",
	"昼食後": "ちゅうしょくご",
	"夕食後": "ゆうしょくご",
	"朝食前": "ちょうしょくまえ",
	"昼食前": "ちゅうしょくまえ",
	"夕食前": "ゆうしょくまえ",
	"朝食時": "ちょうしょくじ",
	"昼食時": "ちゅうしょくじ",
	"夕食時": "ゆうしょくじ",

	"今日":  "きょう",
	"昨日":  "きのう",
	"明日":  "あした",
	"一日":  "いちにち",
	"二日":  "ふつか",
	"三日":  "みっか",
	"四日":  "よっか",
	"五日":  "いつか",
	"六日":  "むいか",
	"七日":  "なのか",
	"八日":  "ようか",
	"九日":  "ここのか",
	"十日":  "とおか",
	"二十日": "はつか",
	"今年":  "ことし",
	"去年":  "きょねん",
	"来年":  "らいねん",
	"大丈夫": "だいじょうぶ",
	"食事":  "しょくじ",
	"朝食":  "ちょうしょく",
	"昼食":  "ちゅうしょく",
	"夕食":  "ゆうしょく",
	"夕飯":  "ゆうはん",
	"朝飯":  "あさめし",
	"昼飯":  "ひるめし",
	"晩飯":  "ばんめし",
	"御飯":  "ごはん",
	"食べ物": "たべもの",
	"飲み物": "のみもの",
	"食欲":  "しょくよく",
	"食後":  "しょくご",
	"食前":  "しょくぜん",
	"食中":  "しょくちゅう",
}

type override struct {
	surface []rune
	reading string
}

// overrideList holds readingOverrides ordered longest first.
var overrideList = func() []override {
	out := make([]override, 0, len(readingOverrides))
	for k, v := range readingOverrides {
		out = append(out, override{surface: []rune(k), reading: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].surface) != len(out[j].surface) {
			return len(out[i].surface) > len(out[j].surface)
		}
		return string(out[i].surface) < string(out[j].surface)
	})
	return out
}()

// spoken is text rewritten into kana for mora segmentation. Each rune keeps
// the rune span of the source text it was read from.
type spoken struct {
	runes []rune
	start []int
	end   []int
}

func (s *spoken) appendSame(src []rune, offset int) {
	for i, r := range src {
		s.runes = append(s.runes, r)
		s.start = append(s.start, offset+i)
		s.end = append(s.end, offset+i+1)
	}
}

func (s *spoken) appendReading(reading string, start, end int) {
	for _, r := range reading {
		s.runes = append(s.runes, r)
		s.start = append(s.start, start)
		s.end = append(s.end, end)
	}
}

// Reader converts kanji to hiragana readings. The override dictionary is
// applied first; the remaining text goes through the IPA dictionary. When
// the tokenizer cannot be built only the overrides apply.
type Reader struct {
	once sync.Once
	tok  *tokenizer.Tokenizer
	err  error
}

func (r *Reader) load() *tokenizer.Tokenizer {
	r.once.Do(func() {
		r.tok, r.err = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	})
	return r.tok
}

// Err reports why the dictionary tokenizer is unavailable, if it is.
func (r *Reader) Err() error {
	r.load()
	return r.err
}

// read rewrites runes so every kanji is replaced by its reading.
func (r *Reader) read(runes []rune) spoken {
	var out spoken
	if !hasHan(runes) {
		out.appendSame(runes, 0)
		return out
	}

	plain := 0
	flush := func(end int) {
		if plain < end {
			r.readPlain(&out, runes[plain:end], plain)
		}
	}
	for i := 0; i < len(runes); {
		o, ok := matchOverride(runes[i:])
		if !ok {
			i++
			continue
		}
		flush(i)
		out.appendReading(o.reading, i, i+len(o.surface))
		i += len(o.surface)
		plain = i
	}
	flush(len(runes))
	return out
}

func (r *Reader) readPlain(out *spoken, runes []rune, offset int) {
	tok := r.load()
	if tok == nil || !hasHan(runes) {
		out.appendSame(runes, offset)
		return
	}
	for _, t := range tok.Tokenize(string(runes)) {
		surface := []rune(t.Surface)
		start := offset + t.Start
		if !hasHan(surface) {
			out.appendSame(surface, start)
			continue
		}
		reading, ok := t.Reading()
		if !ok || reading == "" || reading == "*" {
			out.appendSame(surface, start)
			continue
		}
		out.appendReading(Fold(reading, Japanese), start, offset+t.End)
	}
}

func matchOverride(runes []rune) (override, bool) {
	for _, o := range overrideList {
		if len(o.surface) <= len(runes) && string(runes[:len(o.surface)]) == string(o.surface) {
			return o, true
		}
	}
	return override{}, false
}

func hasHan(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
