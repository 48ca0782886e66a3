package slides

import (
	"strings"
	"testing"
)

func TestSlideTitle(t *testing.T) {
	long := strings.Repeat("あ", 60)
	tests := []struct {
		name      string
		text      string
		keyPoints []string
		want      string
	}{
		{"key point wins", "Some text.", []string{"Point"}, "Point"},
		{"first japanese sentence", "最初の文です。次の文です。", nil, "最初の文です"},
		{"first english sentence", "Hello there! How are you?", nil, "Hello there"},
		{"short text as is", "no terminator", nil, "no terminator"},
		{"long sentence truncated", long, nil, strings.Repeat("あ", 30) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slideTitle(tt.text, tt.keyPoints); got != tt.want {
				t.Errorf("slideTitle(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
