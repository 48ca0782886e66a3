package grpcapi

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"narration-timeline-service/internal/api"
	"narration-timeline-service/internal/app"
	"narration-timeline-service/internal/config"
	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/observability"
	"narration-timeline-service/internal/observability/metrics"
)

func newTestApp(t *testing.T) *app.Application {
	t.Helper()
	t.Setenv("OUTPUT_ROOT", t.TempDir())
	t.Setenv("KAFKA_ENABLED", "false")
	a, err := app.New(config.Load())
	require.NoError(t, err)
	require.NoError(t, a.Start())
	return a
}

// dial starts an in-memory server and returns a connected client.
func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)))
	Register(srv, newTestApp(t))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPlanTimeline_OverConnection(t *testing.T) {
	conn := dial(t)

	var resp api.PlanTimelineResponse
	err := Invoke(context.Background(), conn, MethodPlanTimeline, api.PlanTimelineRequest{
		Script: &models.Script{Segments: []models.ScriptSegment{
			{SegmentID: "intro", Duration: 30, Content: "hello"},
			{SegmentID: "body", Duration: 90},
		}},
		AudioDuration: 60,
	}, &resp)
	require.NoError(t, err)
	require.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Plan.Segments, 2)
	require.Equal(t, "intro", resp.Plan.Segments[0].SegmentID)
	require.Equal(t, 15.0, resp.Plan.Segments[0].End)
	require.Equal(t, 60.0, resp.Plan.TotalDuration)
}

func TestAlignTranscript_OverConnection(t *testing.T) {
	conn := dial(t)

	var resp api.AlignTranscriptResponse
	err := Invoke(context.Background(), conn, MethodAlignTranscript, api.AlignTranscriptRequest{
		Rows: []api.RowInput{{Speaker: "A", Text: "first", Duration: 1.5}, {Speaker: "B", Text: "second", Duration: 2.5}},
	}, &resp)
	require.NoError(t, err)
	require.Len(t, resp.Transcript.Segments, 2)
	require.Equal(t, 4.0, resp.Transcript.TotalDuration)
	require.Equal(t, "B", resp.Transcript.Segments[1].Speaker)
}

func TestErrorCodes_OverConnection(t *testing.T) {
	conn := dial(t)
	ctx := context.Background()

	err := Invoke(ctx, conn, MethodSplitAudio, api.SplitAudioRequest{
		InputPath: "missing.wav",
		DryRun:    true,
	}, &api.SplitAudioResponse{})
	require.Equal(t, codes.NotFound, status.Code(err))

	err = Invoke(ctx, conn, MethodSplitAudio, api.SplitAudioRequest{
		InputPath: filepath.Join("..", "..", "etc", "passwd"),
		DryRun:    true,
	}, &api.SplitAudioResponse{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	err = Invoke(ctx, conn, MethodSplitAudio, api.SplitAudioRequest{}, &api.SplitAudioResponse{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	err = Invoke(ctx, conn, MethodSplitSlides, api.SplitSlidesRequest{
		Transcript: models.TranscriptInfo{
			Segments: []models.TranscriptSegment{
				{ID: 1, Speaker: "A", Text: "a", EndTime: 1},
				{ID: 2, Speaker: "B", Text: "b", StartTime: 1, EndTime: 2},
			},
			TotalDuration: 2,
		},
		Options: &api.SlideOptions{MaxSlides: 1, Overflow: "reject"},
	}, &api.SplitSlidesResponse{})
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestServer_DirectCall(t *testing.T) {
	s := NewServer(newTestApp(t))

	in, err := structpb.NewStruct(map[string]any{
		"transcript": map[string]any{
			"segments": []any{
				map[string]any{"id": 1, "speaker": "A", "text": "only", "start_time": 0, "end_time": 3},
			},
			"total_duration": 3,
		},
	})
	require.NoError(t, err)

	out, err := s.SplitSlides(context.Background(), in)
	require.NoError(t, err)
	slides := out.GetFields()["slides"].GetListValue().GetValues()
	require.Len(t, slides, 1)
	require.Equal(t, "only", slides[0].GetStructValue().GetFields()["text"].GetStringValue())

	bad, err := structpb.NewStruct(map[string]any{"audio_duration": "soon"})
	require.NoError(t, err)
	_, err = s.PlanTimeline(context.Background(), bad)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{errs.ErrConfiguration, codes.InvalidArgument},
		{errs.ErrUnsupportedFormat, codes.InvalidArgument},
		{errs.ErrAlignmentMismatch, codes.InvalidArgument},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errs.ErrInputNotFound, codes.NotFound},
	}
	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
