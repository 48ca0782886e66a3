package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"narration-timeline-service/internal/errs"
)

const (
	pcmBitDepth  = 16
	wavFormatPCM = 1
)

// readWAV decodes a 16-bit integer PCM WAV file.
func readWAV(path string) (Buffer, error) {
	f, err := openInput(path)
	if err != nil {
		return Buffer{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Buffer{}, fmt.Errorf("%w: %s: %v", errs.ErrUnsupportedFormat, path, err)
	}
	if d.WavAudioFormat != wavFormatPCM || d.BitDepth != pcmBitDepth {
		return Buffer{}, fmt.Errorf("%w: %s: format %d, %d-bit (need 16-bit PCM)",
			errs.ErrUnsupportedFormat, path, d.WavAudioFormat, d.BitDepth)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %s: %v", errs.ErrUnsupportedFormat, path, err)
	}

	return Buffer{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		Samples:    pcm.Data,
	}, nil
}

// writeWAV writes interleaved samples as 16-bit PCM. The file is encoded
// under a temporary name in the same directory and renamed into place.
func writeWAV(path string, sampleRate, channels int, samples []int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".segment-*.wav")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := wav.NewEncoder(tmp, sampleRate, pcmBitDepth, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: pcmBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finalise %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInputNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
