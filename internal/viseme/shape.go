// Package viseme maps speech units (Japanese morae, English words) to
// continuous mouth shapes.
package viseme

// Shape is a continuous mouth configuration. Every field is in [0,1].
type Shape struct {
	JawOpen        float64 `json:"jawOpen" yaml:"jawOpen"`
	LipRounding    float64 `json:"lipRounding" yaml:"lipRounding"`
	LipWidth       float64 `json:"lipWidth" yaml:"lipWidth"`
	TonguePosition float64 `json:"tonguePosition" yaml:"tonguePosition"`
	TeethVisible   float64 `json:"teethVisible" yaml:"teethVisible"`
}

// Lerp interpolates from s towards target by t, clamped to [0,1].
func (s Shape) Lerp(target Shape, t float64) Shape {
	t = clamp(t, 0, 1)
	return Shape{
		JawOpen:        s.JawOpen + (target.JawOpen-s.JawOpen)*t,
		LipRounding:    s.LipRounding + (target.LipRounding-s.LipRounding)*t,
		LipWidth:       s.LipWidth + (target.LipWidth-s.LipWidth)*t,
		TonguePosition: s.TonguePosition + (target.TonguePosition-s.TonguePosition)*t,
		TeethVisible:   s.TeethVisible + (target.TeethVisible-s.TeethVisible)*t,
	}.Clamp()
}

// Clamp forces every field into [0,1].
func (s Shape) Clamp() Shape {
	return Shape{
		JawOpen:        clamp(s.JawOpen, 0, 1),
		LipRounding:    clamp(s.LipRounding, 0, 1),
		LipWidth:       clamp(s.LipWidth, 0, 1),
		TonguePosition: clamp(s.TonguePosition, 0, 1),
		TeethVisible:   clamp(s.TeethVisible, 0, 1),
	}
}

// Valid reports whether every field already lies in [0,1].
func (s Shape) Valid() bool {
	return s == s.Clamp()
}

type option func(*Shape)

func jaw(v float64) option    { return func(s *Shape) { s.JawOpen = v } }
func round(v float64) option  { return func(s *Shape) { s.LipRounding = v } }
func width(v float64) option  { return func(s *Shape) { s.LipWidth = v } }
func tongue(v float64) option { return func(s *Shape) { s.TonguePosition = v } }
func teeth(v float64) option  { return func(s *Shape) { s.TeethVisible = v } }

// with returns a copy of s with the given fields overridden.
func (s Shape) with(opts ...option) Shape {
	for _, o := range opts {
		o(&s)
	}
	return s
}

func clamp(v, min, max float64) float64 {
	if v != v { // NaN
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
