package viseme

// Class is the coarse articulation class of a unit. It is reported for
// diagnostics and never drives shape selection or loudness.
type Class string

const (
	ClassVowel     Class = "vowel"
	ClassPlosive   Class = "plosive"
	ClassFricative Class = "fricative"
	ClassNasal     Class = "nasal"
	ClassLiquid    Class = "liquid"
	ClassSemivowel Class = "semivowel"
	ClassPause     Class = "pause"
)
