package models

// SlideContent is a packed group of transcript segments sized for one slide.
// ImageSuggestions holds up to four visuals worth pairing with it.
type SlideContent struct {
	SlideID          int      `json:"slide_id"`
	Title            string   `json:"title,omitempty"`
	Text             string   `json:"text"`
	Speakers         []string `json:"speakers"`
	SourceSegments   []int    `json:"source_segments"`
	KeyPoints        []string `json:"key_points"`
	ImageSuggestions []string `json:"image_suggestions"`
	Duration         float64  `json:"duration"`
}
