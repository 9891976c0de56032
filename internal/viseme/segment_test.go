package viseme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func TestSegment_JapaneseMorae(t *testing.T) {
	tokens := NewTable().Segment("こんにちは", Japanese)

	require.Len(t, tokens, 5)
	assert.Equal(t, []string{"こ", "ん", "に", "ち", "は"}, texts(tokens))
	assert.Equal(t, KindNasal, tokens[1].Kind)
	for i, tok := range tokens {
		assert.Equal(t, i, tok.CharStart)
		assert.Equal(t, i+1, tok.CharEnd)
	}
}

func TestSegment_JapaneseYoonIsOneUnit(t *testing.T) {
	tokens := NewTable().Segment("きょうは", Japanese)

	assert.Equal(t, []string{"きょ", "う", "は"}, texts(tokens))
	assert.Equal(t, KindVowel, tokens[1].Kind)
}

func TestSegment_JapaneseKatakanaAndHalfwidth(t *testing.T) {
	table := NewTable()

	full := table.Segment("ギャラリー", Japanese)
	require.Len(t, full, 4)
	assert.Equal(t, "ぎゃ", full[0].Lookup)
	assert.Equal(t, KindLong, full[3].Kind)
	assert.Equal(t, "い", full[3].Lookup, "ー holds the previous vowel")

	half := table.Segment("ｷﾞｬﾗﾘｰ", Japanese)
	require.Len(t, half, 4)
	assert.Equal(t, "ぎゃ", half[0].Lookup)
	assert.Equal(t, "い", half[3].Lookup)
}

func TestSegment_JapanesePunctuation(t *testing.T) {
	tokens := NewTable().Segment("はい、そう。", Japanese)

	assert.Equal(t, []string{"は", "い", "、", "そ", "う", "。"}, texts(tokens))
	assert.Equal(t, KindPause, tokens[2].Kind)
	assert.Equal(t, KindPause, tokens[5].Kind)
	assert.Equal(t, 0, tokens[0].Word)
	assert.Equal(t, 1, tokens[2].Word)
	assert.Equal(t, 2, tokens[3].Word)
}

func TestSegment_JapaneseSokuon(t *testing.T) {
	tokens := NewTable().Segment("きって", Japanese)

	require.Len(t, tokens, 3)
	assert.Equal(t, KindGeminate, tokens[1].Kind)
}

func TestSegment_English(t *testing.T) {
	tokens := NewTable().Segment("Hello world.", English)

	require.Len(t, tokens, 3)
	assert.Equal(t, []string{"Hello", "world", "."}, texts(tokens))
	assert.Equal(t, KindWord, tokens[0].Kind)
	assert.Equal(t, KindPause, tokens[2].Kind)
	assert.Equal(t, "hello", tokens[0].Lookup)
	assert.Equal(t, 6, tokens[1].CharStart)
	assert.Equal(t, 11, tokens[1].CharEnd)
}

func TestSegment_EnglishQuotesAndContractions(t *testing.T) {
	tokens := NewTable().Segment(`"Don't stop," she said...`, English)

	assert.Equal(t, []string{`"`, "Don't", "stop", `,"`, "she", "said", "..."}, texts(tokens))
}

func TestSegment_Empty(t *testing.T) {
	table := NewTable()

	assert.Empty(t, table.Segment("", Japanese))
	assert.Empty(t, table.Segment("   ", English))
}

func TestTokenKind_TextRoundTrip(t *testing.T) {
	for k := KindMora; k <= KindPause; k++ {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var got TokenKind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
	}

	var bad TokenKind
	assert.Error(t, bad.UnmarshalText([]byte("syllable")))
}
