package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"

	"narration-timeline-service/internal/errs"
)

// Decode reads a WAV, MP3 or FLAC file into 16-bit PCM.
func Decode(path string) (Buffer, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return readWAV(path)
	case ".mp3", ".flac":
		return readCompressed(path, ext)
	default:
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Buffer{}, fmt.Errorf("%w: %s", errs.ErrInputNotFound, path)
		}
		return Buffer{}, fmt.Errorf("%w: %s: unknown extension %q", errs.ErrUnsupportedFormat, path, ext)
	}
}

func readCompressed(path, ext string) (Buffer, error) {
	f, err := openInput(path)
	if err != nil {
		return Buffer{}, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	if ext == ".mp3" {
		streamer, format, err = mp3.Decode(f)
	} else {
		streamer, format, err = flac.Decode(f)
	}
	if err != nil {
		f.Close()
		return Buffer{}, fmt.Errorf("%w: %s: %v", errs.ErrUnsupportedFormat, path, err)
	}
	defer streamer.Close()

	if format.Precision != 2 {
		return Buffer{}, fmt.Errorf("%w: %s: %d-byte samples (need 16-bit)", errs.ErrUnsupportedFormat, path, format.Precision)
	}

	channels := format.NumChannels
	if channels < 1 || channels > 2 {
		return Buffer{}, fmt.Errorf("%w: %s: %d channels", errs.ErrUnsupportedFormat, path, channels)
	}

	samples, err := drain(streamer, channels)
	if err != nil {
		return Buffer{}, fmt.Errorf("decode %s: %w", path, err)
	}

	return Buffer{
		SampleRate: int(format.SampleRate),
		Channels:   channels,
		Samples:    samples,
	}, nil
}

// drain reads a beep stream to the end as interleaved int16-range samples.
func drain(s beep.Streamer, channels int) ([]int, error) {
	var out []int
	chunk := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(chunk)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				out = append(out, toInt16(chunk[i][c]))
			}
		}
		if !ok {
			return out, s.Err()
		}
	}
}

// toInt16 inverts beep's signed 16-bit normalisation (s / 2^15) and clamps
// to the int16 range.
func toInt16(v float64) int {
	s := math.Round(v * (math.MaxInt16 + 1))
	return int(math.Max(math.MinInt16, math.Min(s, math.MaxInt16)))
}
