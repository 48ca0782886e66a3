package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
)

// durationKeys are tried in order; the first positive number wins.
var durationKeys = []string{"duration", "duration_hint", "estimated_duration", "duration_sec"}

// consumedKeys are lifted into ScriptSegment fields; the rest become attributes.
var consumedKeys = map[string]bool{
	"segment_id": true, "id": true, "content": true, "text": true,
	"duration": true, "duration_hint": true, "estimated_duration": true, "duration_sec": true,
}

type rawScript struct {
	Title    string           `json:"title"`
	Segments []map[string]any `json:"segments"`
}

// DecodeScript reads a JSON script document:
//
//	{"title": "...", "segments": [{"segment_id": "s1", "duration": 30, "content": "..."}]}
func DecodeScript(r io.Reader) (models.Script, error) {
	var raw rawScript
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return models.Script{}, fmt.Errorf("%w: script json: %v", errs.ErrUnsupportedFormat, err)
	}

	script := models.Script{Title: raw.Title, Segments: make([]models.ScriptSegment, 0, len(raw.Segments))}
	for i, data := range raw.Segments {
		script.Segments = append(script.Segments, scriptSegment(data, i))
	}
	return script, nil
}

// LoadScript reads a JSON script from path.
func LoadScript(path string) (models.Script, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Script{}, fmt.Errorf("%w: %s", errs.ErrInputNotFound, path)
	}
	if err != nil {
		return models.Script{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeScript(f)
}

func scriptSegment(data map[string]any, i int) models.ScriptSegment {
	seg := models.ScriptSegment{
		SegmentID: firstString(data, "segment_id", "id"),
		Content:   firstString(data, "content", "text"),
	}
	if seg.SegmentID == "" {
		seg.SegmentID = fmt.Sprintf("seg_%d", i+1)
	}
	for _, k := range durationKeys {
		if v, ok := data[k].(float64); ok && v > 0 {
			seg.Duration = v
			break
		}
	}
	for k, v := range data {
		if consumedKeys[k] {
			continue
		}
		if seg.Attributes == nil {
			seg.Attributes = map[string]any{}
		}
		seg.Attributes[k] = v
	}
	return seg
}

// firstString returns the first non-empty value among keys. Numeric ids are
// formatted without a trailing ".0".
func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := data[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}
