// Package artifact persists stage outputs as JSON or CBOR documents.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"narration-timeline-service/internal/errs"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// Document names written by the pipeline.
const (
	DocSegments   = "segments"
	DocTranscript = "transcript"
	DocSlides     = "slides"
	DocPlan       = "plan"
)

// Decoding maps into map[string]any keeps CBOR documents interchangeable
// with their JSON form.
var cborDec, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
}.DecMode()

// ParseFormat maps a flag value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCBOR:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown artifact format %q", errs.ErrConfiguration, s)
	}
}

// Store writes documents under root/<runID>/<name>.<format>.
type Store struct {
	root   string
	format Format
}

// NewStore returns a Store rooted at root.
func NewStore(root string, format Format) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty artifact root", errs.ErrConfiguration)
	}
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	return &Store{root: root, format: f}, nil
}

// Dir returns the directory holding runID's documents.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.root, runID)
}

// Write encodes v and atomically places it at the returned path.
func (s *Store) Write(runID, name string, v any) (string, error) {
	data, err := encode(s.format, v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	dir := s.Dir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(dir, name+"."+string(s.format))
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Read decodes the document at path into v, choosing the codec by extension.
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", errs.ErrInputNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch Format(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case FormatCBOR:
		err = cborDec.Unmarshal(data, v)
	case FormatJSON:
		err = json.Unmarshal(data, v)
	default:
		return fmt.Errorf("%w: %s", errs.ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", errs.ErrUnsupportedFormat, path, err)
	}
	return nil
}

func encode(f Format, v any) ([]byte, error) {
	if f == FormatCBOR {
		return cbor.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
