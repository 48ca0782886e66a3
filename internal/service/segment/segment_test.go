package segment

import (
	"sync"
	"testing"
)

func TestGenerator_Next(t *testing.T) {
	gen := NewGenerator(1)

	idx, name := gen.Next()
	if idx != 1 || name != "001.wav" {
		t.Errorf("expected (1, 001.wav), got (%d, %s)", idx, name)
	}

	idx, name = gen.Next()
	if idx != 2 || name != "002.wav" {
		t.Errorf("expected (2, 002.wav), got (%d, %s)", idx, name)
	}
}

func TestGenerator_StartIndex(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		expected string
	}{
		{"one", 1, "001.wav"},
		{"offset", 12, "012.wav"},
		{"zero clamps", 0, "001.wav"},
		{"negative clamps", -5, "001.wav"},
		{"wide", 1234, "1234.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := NewGenerator(tt.start).Next()
			if got != tt.expected {
				t.Errorf("NewGenerator(%d).Next() = %s, want %s", tt.start, got, tt.expected)
			}
		})
	}
}

func TestGenerator_ThreadSafety(t *testing.T) {
	gen := NewGenerator(1)
	numGoroutines := 100
	resultsPerGoroutine := 10

	var wg sync.WaitGroup
	results := make(chan string, numGoroutines*resultsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < resultsPerGoroutine; j++ {
				_, name := gen.Next()
				results <- name
			}
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for name := range results {
		if seen[name] {
			t.Errorf("duplicate file name generated: %s", name)
		}
		seen[name] = true
	}

	expectedCount := numGoroutines * resultsPerGoroutine
	if len(seen) != expectedCount {
		t.Errorf("expected %d unique names, got %d", expectedCount, len(seen))
	}
}
