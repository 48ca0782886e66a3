// Package audio splits long narration recordings into per-utterance WAV files
// at silences.
package audio

// Buffer is interleaved 16-bit PCM held as ints.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []int
}

// Frames returns the number of sample frames (one sample per channel).
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Slice returns the interleaved samples for frames [start, end).
func (b Buffer) Slice(start, end int) []int {
	ch := b.Channels
	if ch <= 0 {
		ch = 1
	}
	return b.Samples[start*ch : end*ch]
}

// mono returns one sample per frame. Multi-channel frames are averaged and
// truncated toward zero.
func (b Buffer) mono() []int {
	if b.Channels <= 1 {
		return b.Samples
	}
	frames := b.Frames()
	out := make([]int, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		for c := 0; c < b.Channels; c++ {
			sum += b.Samples[f*b.Channels+c]
		}
		out[f] = sum / b.Channels
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func peak(samples []int) int {
	max := 0
	for _, s := range samples {
		if a := abs(s); a > max {
			max = a
		}
	}
	return max
}
