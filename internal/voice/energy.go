package voice

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	// DefaultEnergyThreshold is the minimum RMS of a 16-bit frame counted as speech.
	DefaultEnergyThreshold = 300

	sampleRate        = 16000
	calibrationSpan   = sampleRate / 4       // 250 ms of ambient noise
	frameSpan         = sampleRate * 3 / 100 // 30 ms frames
	dynamicEnergyGain = 1.5
)

// pcmSamples returns the little-endian 16-bit samples of a WAV capture. When
// the RIFF header is missing or malformed the canonical header size is skipped.
func pcmSamples(wav []byte) []int16 {
	data := wavData(wav)
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return samples
}

func wavData(wav []byte) []byte {
	if len(wav) >= 12 && bytes.Equal(wav[0:4], []byte("RIFF")) && bytes.Equal(wav[8:12], []byte("WAVE")) {
		for off := 12; off+8 <= len(wav); {
			id := wav[off : off+4]
			size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
			body := off + 8
			if bytes.Equal(id, []byte("data")) {
				// Streamed captures carry a placeholder size.
				if size <= 0 || body+size > len(wav) {
					return wav[body:]
				}
				return wav[body : body+size]
			}
			if body+size > len(wav) {
				break
			}
			off = body + size + size%2
		}
	}
	if len(wav) <= wavHeaderSize {
		return nil
	}
	return wav[wavHeaderSize:]
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// hasSpeech reports whether any 30 ms frame rises above the speech threshold.
// The first 250 ms calibrate the ambient level; the threshold is the larger of
// minEnergy and that level scaled by dynamicEnergyGain.
func hasSpeech(wav []byte, minEnergy float64) bool {
	if minEnergy <= 0 {
		minEnergy = DefaultEnergyThreshold
	}
	samples := pcmSamples(wav)

	threshold := minEnergy
	if len(samples) >= calibrationSpan+frameSpan {
		threshold = math.Max(minEnergy, rms(samples[:calibrationSpan])*dynamicEnergyGain)
		samples = samples[calibrationSpan:]
	}

	for start := 0; start < len(samples); start += frameSpan {
		end := min(start+frameSpan, len(samples))
		if rms(samples[start:end]) > threshold {
			return true
		}
	}
	return false
}
