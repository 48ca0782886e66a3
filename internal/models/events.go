package models

// Event types published by the pipeline.
const (
	EventAudioSegmented    = "timeline.audio.segmented"
	EventTranscriptAligned = "timeline.transcript.aligned"
	EventSlidesSplit       = "timeline.slides.split"
	EventPlanCreated       = "timeline.plan.created"
	EventRunFailed         = "timeline.run.failed"
)

// Event is the envelope written to Kafka for every pipeline result.
type Event struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	RunID     string `json:"runId"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload"`
}

// RunFailure is the payload of EventRunFailed.
type RunFailure struct {
	Stage string `json:"stage"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}
