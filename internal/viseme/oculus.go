package viseme

// Oculus is one of the 15 Oculus lip-sync viseme ids consumed by
// TalkingHead-style frontends.
type Oculus int

const (
	OculusSil Oculus = 0  // silence
	OculusPP  Oculus = 1  // p, b, m
	OculusFF  Oculus = 2  // f, v
	OculusTH  Oculus = 3  // th
	OculusDD  Oculus = 4  // t, d
	OculusKK  Oculus = 5  // k, g
	OculusCH  Oculus = 6  // ch, j, sh
	OculusSS  Oculus = 7  // s, z
	OculusNN  Oculus = 8  // n, l
	OculusRR  Oculus = 9  // r
	OculusAA  Oculus = 10 // a as in "father"
	OculusE   Oculus = 11 // e as in "bed"
	OculusIH  Oculus = 12 // i as in "sit"
	OculusOH  Oculus = 13 // o as in "go"
	OculusOU  Oculus = 14 // u as in "boot"
)

var oculusNames = [...]string{"sil", "PP", "FF", "TH", "DD", "kk", "CH", "SS", "nn", "RR", "aa", "E", "ih", "oh", "ou"}

func (o Oculus) String() string {
	if o < 0 || int(o) >= len(oculusNames) {
		return "sil"
	}
	return oculusNames[o]
}

// oculusShapes is the English mouth for each viseme group.
var oculusShapes = map[Oculus]Shape{
	OculusSil: englishNeutral,
	OculusPP:  {JawOpen: 0.0, LipRounding: 0.3, LipWidth: 0.4, TonguePosition: 0.5, TeethVisible: 0},
	OculusFF:  {JawOpen: 0.15, LipRounding: 0.1, LipWidth: 0.55, TonguePosition: 0.4, TeethVisible: 0.6},
	OculusTH:  {JawOpen: 0.2, LipRounding: 0.05, LipWidth: 0.55, TonguePosition: 0.9, TeethVisible: 0.5},
	OculusDD:  {JawOpen: 0.25, LipRounding: 0.05, LipWidth: 0.55, TonguePosition: 0.8, TeethVisible: 0.4},
	OculusKK:  {JawOpen: 0.3, LipRounding: 0.1, LipWidth: 0.5, TonguePosition: 0.3, TeethVisible: 0.3},
	OculusCH:  {JawOpen: 0.25, LipRounding: 0.6, LipWidth: 0.35, TonguePosition: 0.7, TeethVisible: 0.4},
	OculusSS:  {JawOpen: 0.15, LipRounding: 0.05, LipWidth: 0.7, TonguePosition: 0.75, TeethVisible: 0.7},
	OculusNN:  {JawOpen: 0.15, LipRounding: 0.1, LipWidth: 0.5, TonguePosition: 0.8, TeethVisible: 0.2},
	OculusRR:  {JawOpen: 0.25, LipRounding: 0.5, LipWidth: 0.4, TonguePosition: 0.6, TeethVisible: 0.2},
	OculusAA:  vowelA,
	OculusE:   vowelE,
	OculusIH:  vowelI,
	OculusOH:  vowelO,
	OculusOU:  vowelU,
}

// japaneseOculus maps the vowel a mora ends on.
var japaneseOculus = map[string]Oculus{
	"あ": OculusAA, "い": OculusIH, "う": OculusOU, "え": OculusE, "お": OculusOH, "ん": OculusNN,
}
