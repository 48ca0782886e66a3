// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the root configuration for all binaries.
type Configuration struct {
	Service       ServiceConfig
	Segmenter     SegmenterConfig
	Aligner       AlignerConfig
	Slides        SlidesConfig
	Planner       PlannerConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds listener and identity settings.
type ServiceConfig struct {
	Principal       string
	GRPCPort        string
	HTTPPort        string
	MetricsAddr     string
	OutputRoot      string // API writes are confined here
	InputRoot       string // API reads are confined here
	ArtifactFormat  string // json or cbor
	ShutdownTimeout time.Duration
}

// SegmenterConfig holds silence split defaults.
type SegmenterConfig struct {
	MinSilence float64 // seconds
	Threshold  float64 // ratio of peak amplitude
	MinSegment float64 // seconds
	Window     float64 // seconds
	StartIndex int
}

// AlignerConfig holds transcript timing heuristics.
type AlignerConfig struct {
	CharsPerSecond float64
	MinRowDuration float64
}

// SlidesConfig holds slide packing defaults.
type SlidesConfig struct {
	MaxCharsPerSlide int // 0 = unbounded
	MaxSlides        int // 0 = unbounded
	MaxSlideDuration float64
	Overflow         string // merge, extend, reject
}

// PlannerConfig holds timeline planning defaults.
type PlannerConfig struct {
	DefaultSegmentDuration float64
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicContent string
	TopicPlan    string
	Principal    string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment, falling back to defaults
// when a variable is unset or cannot be parsed.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-narration-timeline")
	outputRoot := envOrDefault("OUTPUT_ROOT", os.TempDir())

	return &Configuration{
		Service: ServiceConfig{
			Principal:       principal,
			GRPCPort:        envOrDefault("GRPC_PORT", "50061"),
			HTTPPort:        envOrDefault("HTTP_PORT", "8080"),
			MetricsAddr:     envOrDefault("METRICS_ADDR", ":9090"),
			OutputRoot:      outputRoot,
			InputRoot:       envOrDefault("INPUT_ROOT", outputRoot),
			ArtifactFormat:  strings.ToLower(envOrDefault("ARTIFACT_FORMAT", "json")),
			ShutdownTimeout: envOrDefaultDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Segmenter: SegmenterConfig{
			MinSilence: envOrDefaultFloat("SEGMENTER_MIN_SILENCE_SEC", 0.7),
			Threshold:  envOrDefaultFloat("SEGMENTER_SILENCE_THRESHOLD", 0.02),
			MinSegment: envOrDefaultFloat("SEGMENTER_MIN_SEGMENT_SEC", 1.0),
			Window:     envOrDefaultFloat("SEGMENTER_WINDOW_SEC", 0.01),
			StartIndex: envOrDefaultInt("SEGMENTER_START_INDEX", 1),
		},
		Aligner: AlignerConfig{
			CharsPerSecond: envOrDefaultFloat("ALIGNER_CHARS_PER_SECOND", 6.0),
			MinRowDuration: envOrDefaultFloat("ALIGNER_MIN_ROW_SEC", 1.0),
		},
		Slides: SlidesConfig{
			MaxCharsPerSlide: envOrDefaultInt("SLIDES_MAX_CHARS", 200),
			MaxSlides:        envOrDefaultInt("SLIDES_MAX_SLIDES", 20),
			MaxSlideDuration: envOrDefaultFloat("SLIDES_MAX_DURATION_SEC", 30.0),
			Overflow:         strings.ToLower(envOrDefault("SLIDES_OVERFLOW", "merge")),
		},
		Planner: PlannerConfig{
			DefaultSegmentDuration: envOrDefaultFloat("PLANNER_DEFAULT_SEGMENT_SEC", 15.0),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicContent: envOrDefault("KAFKA_TOPIC_CONTENT", "timeline.content"),
			TopicPlan:    envOrDefault("KAFKA_TOPIC_PLAN", "timeline.plan"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:  strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			LogFormat: strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
