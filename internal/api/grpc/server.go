// Package grpcapi serves the timeline components over gRPC. Requests and
// responses are google.protobuf.Struct values holding the same JSON
// documents the HTTP API accepts, so no generated stubs are needed.
package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"narration-timeline-service/internal/api"
	"narration-timeline-service/internal/app"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "narration.timeline.v1.TimelineService"

// Method names.
const (
	MethodSplitAudio      = "SplitAudio"
	MethodAlignTranscript = "AlignTranscript"
	MethodSplitSlides     = "SplitSlides"
	MethodPlanTimeline    = "PlanTimeline"
)

// TimelineServer is the server API for TimelineService.
type TimelineServer interface {
	SplitAudio(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AlignTranscript(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SplitSlides(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlanTimeline(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes TimelineService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TimelineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodSplitAudio, Handler: unaryHandler(MethodSplitAudio, TimelineServer.SplitAudio)},
		{MethodName: MethodAlignTranscript, Handler: unaryHandler(MethodAlignTranscript, TimelineServer.AlignTranscript)},
		{MethodName: MethodSplitSlides, Handler: unaryHandler(MethodSplitSlides, TimelineServer.SplitSlides)},
		{MethodName: MethodPlanTimeline, Handler: unaryHandler(MethodPlanTimeline, TimelineServer.PlanTimeline)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "narration/timeline/v1/timeline.proto",
}

// FullMethod returns the invoke path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler(
	method string,
	call func(TimelineServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TimelineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TimelineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Server implements TimelineServer on top of api.Service.
type Server struct {
	svc *api.Service
}

// NewServer returns a Server for application.
func NewServer(application *app.Application) *Server {
	return &Server{svc: api.NewService(application)}
}

// Register registers TimelineService on g.
func Register(g *grpc.Server, application *app.Application) {
	g.RegisterService(&ServiceDesc, NewServer(application))
}

func (s *Server) SplitAudio(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, s.svc.SplitAudio)
}

func (s *Server) AlignTranscript(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, s.svc.AlignTranscript)
}

func (s *Server) SplitSlides(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, s.svc.SplitSlides)
}

func (s *Server) PlanTimeline(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, s.svc.PlanTimeline)
}

func serve[Req, Resp any](ctx context.Context, in *structpb.Struct, fn func(context.Context, Req) (*Resp, error)) (*structpb.Struct, error) {
	var req Req
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := fn(ctx, req)
	if err != nil {
		return nil, statusError(err)
	}
	out, err := ToStruct(resp)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Code maps an error kind to a gRPC status code.
func Code(err error) codes.Code {
	switch api.Kind(err) {
	case "bad_request", "configuration", "unsupported_format", "alignment_mismatch":
		return codes.InvalidArgument
	case "input_not_found":
		return codes.NotFound
	case "slide_limit_exceeded":
		return codes.FailedPrecondition
	case "canceled":
		return codes.Canceled
	case "deadline_exceeded":
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func statusError(err error) error {
	return status.Error(Code(err), err.Error())
}

// ToStruct converts any JSON-encodable value to a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("to struct: %w", err)
	}
	return out, nil
}

// FromStruct decodes in into v through its JSON form. A nil Struct leaves
// v untouched.
func FromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return nil
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("from struct: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", api.ErrBadRequest, err)
	}
	return nil
}

// Invoke calls method on cc with req and decodes the reply into resp.
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, req, resp any) error {
	in, err := ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return err
	}
	return FromStruct(out, resp)
}
