package transcript

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"narration-timeline-service/internal/errs"
)

// ReadRows parses a two-column (speaker, text) CSV without a header. A UTF-8
// BOM is stripped. Blank rows, rows with fewer than two columns and rows with
// empty text are skipped; kept rows are numbered from 1.
func ReadRows(r io.Reader) ([]Row, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows []Row
	for record := 1; ; record++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv record %d: %v", errs.ErrUnsupportedFormat, record, err)
		}
		if len(rec) < 2 {
			continue
		}
		text := norm.NFC.String(strings.TrimSpace(rec[1]))
		if text == "" {
			continue
		}
		rows = append(rows, Row{
			Index:   len(rows) + 1,
			Speaker: norm.NFC.String(strings.TrimSpace(rec[0])),
			Text:    text,
		})
	}
	return rows, nil
}

// LoadRows reads rows from a CSV file.
func LoadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInputNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadRows(f)
}

// TitleFromPath returns the file name without directory or extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
