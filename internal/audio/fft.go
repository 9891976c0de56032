package audio

import (
	"math"
)

// fftWorkspace holds reusable buffers for a fixed-size radix-2 FFT.
type fftWorkspace struct {
	re, im []float64
	perm   []int
	cos    []float64
	sin    []float64
}

func newFFTWorkspace(size int) *fftWorkspace {
	bits := 0
	for v := size; v > 1; v >>= 1 {
		bits++
	}
	perm := make([]int, size)
	for i := range perm {
		perm[i] = bitReverse(i, bits)
	}
	half := size / 2
	cos := make([]float64, half)
	sin := make([]float64, half)
	for k := 0; k < half; k++ {
		angle := -2 * math.Pi * float64(k) / float64(size)
		cos[k] = math.Cos(angle)
		sin[k] = math.Sin(angle)
	}
	return &fftWorkspace{
		re:   make([]float64, size),
		im:   make([]float64, size),
		perm: perm,
		cos:  cos,
		sin:  sin,
	}
}

// magnitudes transforms a real input frame in place and writes |X[k]|/N for
// the first N/2 bins into dst.
func (w *fftWorkspace) magnitudes(frame, dst []float64) {
	n := len(w.re)
	for i := 0; i < n; i++ {
		w.re[w.perm[i]] = frame[i]
		w.im[w.perm[i]] = 0
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := n / size
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				c, s := w.cos[k*step], w.sin[k*step]
				a, b := start+k, start+k+half
				tr := c*w.re[b] - s*w.im[b]
				ti := c*w.im[b] + s*w.re[b]
				w.re[b] = w.re[a] - tr
				w.im[b] = w.im[a] - ti
				w.re[a] += tr
				w.im[a] += ti
			}
		}
	}

	for k := range dst {
		dst[k] = math.Hypot(w.re[k], w.im[k]) / float64(n)
	}
}

func bitReverse(x, bits int) int {
	var result int
	for i := 0; i < bits; i++ {
		result = (result << 1) | (x & 1)
		x >>= 1
	}
	return result
}

func isPowerOfTwo(n int) bool {
	return n > 1 && n&(n-1) == 0
}
