package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep/mp3"
)

// Detect sniffs the container format of encoded audio.
func Detect(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

// DecodeAs decodes data as raw PCM in format pcm. A WAV container is still
// honored; MP3 sniffing is skipped because PCM samples can look like an MPEG
// sync word.
func DecodeAs(data []byte, pcm PCMFormat) (*Clip, error) {
	if pcm.Raw() && Detect(data) != FormatWAV {
		return DecodePCM(data, pcm.SampleRate, pcm.BitDepth)
	}
	return Decode(data)
}

// Decode decodes a WAV or MP3 clip to mono samples.
func Decode(data []byte) (*Clip, error) {
	var (
		clip *Clip
		err  error
	)
	switch Detect(data) {
	case FormatWAV:
		clip, err = decodeWAV(data)
	case FormatMP3:
		clip, err = decodeMP3(data)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(clip.Samples) == 0 {
		return nil, ErrEmptyClip
	}
	return clip, nil
}

func decodeWAV(data []byte) (*Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decode wav: %w", ErrUnsupportedFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return &Clip{
		Samples:    downmixInts(buf, int(dec.BitDepth)),
		SampleRate: int(dec.SampleRate),
		Format:     FormatWAV,
	}, nil
}

func downmixInts(buf *goaudio.IntBuffer, bitDepth int) []float64 {
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << uint(bitDepth-1))
	out := make([]float64, len(buf.Data)/channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

func decodeMP3(data []byte) (*Clip, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	samples := make([]float64, 0, streamer.Len())
	block := make([][2]float64, 512)
	for {
		n, ok := streamer.Stream(block)
		for _, s := range block[:n] {
			samples = append(samples, (s[0]+s[1])/2)
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return &Clip{Samples: samples, SampleRate: int(format.SampleRate), Format: FormatMP3}, nil
}

// DecodePCM wraps raw little-endian mono PCM as streamed by some TTS
// providers. Supported depths are 8-bit unsigned, 16-bit signed and 32-bit
// float.
func DecodePCM(data []byte, sampleRate, bitDepth int) (*Clip, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("decode pcm: invalid sample rate %d", sampleRate)
	}
	var samples []float64
	switch bitDepth {
	case 16:
		samples = make([]float64, 0, len(data)/2)
		for i := 0; i+1 < len(data); i += 2 {
			sample := int16(data[i]) | int16(data[i+1])<<8
			samples = append(samples, float64(sample)/32768.0)
		}
	case 32:
		samples = make([]float64, 0, len(data)/4)
		for i := 0; i+3 < len(data); i += 4 {
			bits := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24
			samples = append(samples, float64(math.Float32frombits(bits)))
		}
	case 8:
		samples = make([]float64, len(data))
		for i, b := range data {
			samples[i] = (float64(b) - 128.0) / 128.0
		}
	default:
		return nil, fmt.Errorf("decode pcm: %w: %d-bit", ErrUnsupportedFormat, bitDepth)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyClip
	}
	return &Clip{Samples: samples, SampleRate: sampleRate, Format: FormatPCM}, nil
}
