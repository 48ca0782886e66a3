package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	envVars := []string{
		"SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_PORT", "METRICS_ADDR", "SHUTDOWN_TIMEOUT",
		"SEGMENTER_MIN_SILENCE_SEC", "SEGMENTER_SILENCE_THRESHOLD", "SEGMENTER_MIN_SEGMENT_SEC",
		"SEGMENTER_WINDOW_SEC", "SEGMENTER_START_INDEX",
		"ALIGNER_CHARS_PER_SECOND", "ALIGNER_MIN_ROW_SEC",
		"SLIDES_MAX_CHARS", "SLIDES_MAX_SLIDES", "SLIDES_MAX_DURATION_SEC", "SLIDES_OVERFLOW",
		"PLANNER_DEFAULT_SEGMENT_SEC",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-narration-timeline" {
		t.Errorf("expected default principal 'svc-narration-timeline', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50061" {
		t.Errorf("expected default port '50061', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected default shutdown timeout 10s, got %v", cfg.Service.ShutdownTimeout)
	}

	// Segmenter defaults
	if cfg.Segmenter.MinSilence != 0.7 {
		t.Errorf("expected default min silence 0.7, got %v", cfg.Segmenter.MinSilence)
	}
	if cfg.Segmenter.Threshold != 0.02 {
		t.Errorf("expected default threshold 0.02, got %v", cfg.Segmenter.Threshold)
	}
	if cfg.Segmenter.Window != 0.01 {
		t.Errorf("expected default window 0.01, got %v", cfg.Segmenter.Window)
	}
	if cfg.Segmenter.StartIndex != 1 {
		t.Errorf("expected default start index 1, got %d", cfg.Segmenter.StartIndex)
	}

	// Slides and planner defaults
	if cfg.Slides.MaxCharsPerSlide != 200 {
		t.Errorf("expected default max chars 200, got %d", cfg.Slides.MaxCharsPerSlide)
	}
	if cfg.Slides.Overflow != "merge" {
		t.Errorf("expected default overflow 'merge', got %s", cfg.Slides.Overflow)
	}
	if cfg.Planner.DefaultSegmentDuration != 15.0 {
		t.Errorf("expected default segment duration 15, got %v", cfg.Planner.DefaultSegmentDuration)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka to be disabled by default")
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected no default brokers, got %v", cfg.Kafka.Brokers)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("GRPC_PORT", "9999")
	t.Setenv("SEGMENTER_MIN_SILENCE_SEC", "0.3")
	t.Setenv("SEGMENTER_SILENCE_THRESHOLD", "0.05")
	t.Setenv("SEGMENTER_START_INDEX", "7")
	t.Setenv("SLIDES_MAX_CHARS", "120")
	t.Setenv("SLIDES_OVERFLOW", "EXTEND")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Segmenter.MinSilence != 0.3 {
		t.Errorf("expected min silence 0.3, got %v", cfg.Segmenter.MinSilence)
	}
	if cfg.Segmenter.Threshold != 0.05 {
		t.Errorf("expected threshold 0.05, got %v", cfg.Segmenter.Threshold)
	}
	if cfg.Segmenter.StartIndex != 7 {
		t.Errorf("expected start index 7, got %d", cfg.Segmenter.StartIndex)
	}
	if cfg.Slides.MaxCharsPerSlide != 120 {
		t.Errorf("expected max chars 120, got %d", cfg.Slides.MaxCharsPerSlide)
	}
	if cfg.Slides.Overflow != "extend" {
		t.Errorf("expected overflow 'extend', got %s", cfg.Slides.Overflow)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Service.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected shutdown timeout 30s, got %v", cfg.Service.ShutdownTimeout)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	t.Setenv("SEGMENTER_MIN_SILENCE_SEC", "not-a-number")
	t.Setenv("SEGMENTER_START_INDEX", "first")
	t.Setenv("SLIDES_MAX_CHARS", "many")
	t.Setenv("KAFKA_ENABLED", "invalid")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Segmenter.MinSilence != 0.7 {
		t.Errorf("expected default min silence on invalid input, got %v", cfg.Segmenter.MinSilence)
	}
	if cfg.Segmenter.StartIndex != 1 {
		t.Errorf("expected default start index on invalid input, got %d", cfg.Segmenter.StartIndex)
	}
	if cfg.Slides.MaxCharsPerSlide != 200 {
		t.Errorf("expected default max chars on invalid input, got %d", cfg.Slides.MaxCharsPerSlide)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka enabled=false on invalid input")
	}
	if cfg.Service.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected default shutdown timeout on invalid input, got %v", cfg.Service.ShutdownTimeout)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLoad_InputRootFallsBackToOutputRoot(t *testing.T) {
	t.Setenv("OUTPUT_ROOT", "/srv/narration")
	os.Unsetenv("INPUT_ROOT")

	cfg := Load()
	if cfg.Service.InputRoot != "/srv/narration" {
		t.Errorf("expected input root to fall back to output root, got %s", cfg.Service.InputRoot)
	}

	t.Setenv("INPUT_ROOT", "/srv/recordings")
	if got := Load().Service.InputRoot; got != "/srv/recordings" {
		t.Errorf("expected input root /srv/recordings, got %s", got)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvOrDefaultList(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected int
	}{
		{"single", "a:1", 1},
		{"multiple", "a:1,b:2,c:3", 3},
		{"blank entries", " , ,", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_LIST_VAR", tt.envValue)
			got := envOrDefaultList("TEST_LIST_VAR", nil)
			if len(got) != tt.expected {
				t.Errorf("envOrDefaultList(%q) returned %d items, want %d", tt.envValue, len(got), tt.expected)
			}
		})
	}
}
