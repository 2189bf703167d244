package mocks

import (
	"context"
	"net"
	"sync"

	otlpcollector "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/grpc"
)

// MockTracingServer is an OTLP trace collector that records the names of the spans it
// receives.
type MockTracingServer struct {
	otlpcollector.UnimplementedTraceServiceServer

	server   *grpc.Server
	listener net.Listener

	mu          sync.Mutex
	exportCount int
	spanNames   []string
}

var _ otlpcollector.TraceServiceServer = (*MockTracingServer)(nil)

func (s *MockTracingServer) Export(_ context.Context, req *otlpcollector.ExportTraceServiceRequest) (*otlpcollector.ExportTraceServiceResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exportCount++
	for _, rs := range req.GetResourceSpans() {
		for _, ss := range rs.GetScopeSpans() {
			for _, span := range ss.GetSpans() {
				s.spanNames = append(s.spanNames, span.GetName())
			}
		}
	}
	return &otlpcollector.ExportTraceServiceResponse{}, nil
}

// NewMockTracingServer starts a collector on a random local port.
func NewMockTracingServer() (*MockTracingServer, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	mockServer := &MockTracingServer{
		server:   grpc.NewServer(),
		listener: lis,
	}
	otlpcollector.RegisterTraceServiceServer(mockServer.server, mockServer)

	go func() {
		_ = mockServer.server.Serve(lis)
	}()
	return mockServer, nil
}

// Addr is the host:port the collector listens on.
func (s *MockTracingServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *MockTracingServer) Stop() {
	s.server.Stop()
}

func (s *MockTracingServer) GetExportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportCount
}

func (s *MockTracingServer) SpanNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spanNames...)
}
