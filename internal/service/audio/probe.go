package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-audio/wav"
	"golang.org/x/sync/errgroup"

	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
)

// probeConcurrency bounds parallel header reads in ProbeDir.
const probeConcurrency = 8

// Probe reports an audio file's duration and layout. WAV files are measured
// from their headers; MP3 and FLAC have no reliable length field and are
// decoded.
func Probe(path string) (models.AudioInfo, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return wavInfo(path)
	}
	buf, err := Decode(path)
	if err != nil {
		return models.AudioInfo{}, err
	}
	return models.AudioInfo{
		FilePath:   path,
		Duration:   buf.Duration(),
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
	}, nil
}

// wavInfo reads the fmt chunk and seeks to the data chunk without decoding
// any samples.
func wavInfo(path string) (models.AudioInfo, error) {
	f, err := openInput(path)
	if err != nil {
		return models.AudioInfo{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return models.AudioInfo{}, fmt.Errorf("%w: %s: %v", errs.ErrUnsupportedFormat, path, err)
	}
	if d.WavAudioFormat != wavFormatPCM || d.BitDepth != pcmBitDepth || d.NumChans == 0 || d.SampleRate == 0 {
		return models.AudioInfo{}, fmt.Errorf("%w: %s: format %d, %d-bit, %d channels",
			errs.ErrUnsupportedFormat, path, d.WavAudioFormat, d.BitDepth, d.NumChans)
	}
	if err := d.FwdToPCM(); err != nil {
		return models.AudioInfo{}, fmt.Errorf("%w: %s: %v", errs.ErrUnsupportedFormat, path, err)
	}

	frameBytes := int64(d.NumChans) * pcmBitDepth / 8
	frames := d.PCMLen() / frameBytes
	return models.AudioInfo{
		FilePath:   path,
		Duration:   float64(frames) / float64(d.SampleRate),
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}, nil
}

// ProbeDir probes every .wav file in dir, sorted by file name, so that
// 001.wav, 002.wav, ... line up with transcript rows.
func ProbeDir(ctx context.Context, dir string) ([]models.AudioInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInputNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	infos := make([]models.AudioInfo, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := Probe(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}
