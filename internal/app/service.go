// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/app1/internal/domain/clock"
	"github.com/okian/app1/internal/domain/model"
	"github.com/okian/app1/pkg/logger"
	"github.com/okian/app1/pkg/metrics"
)

// Service builds the response envelopes for the data endpoints.
// Envelopes depend only on configuration and the clock, so concurrent calls
// need no coordination beyond the request counters.
type Service struct {
	mu sync.RWMutex

	appName  string
	basePath string
	clock    clock.Clock

	fetched  atomic.Int64
	received atomic.Int64

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAppName sets the identifier echoed in every envelope.
func WithAppName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.appName = name
		}
	}
}

// WithBasePath sets the route prefix used in endpoint labels.
func WithBasePath(p string) Option {
	return func(s *Service) {
		if p != "" {
			s.basePath = p
		}
	}
}

// WithClock sets the timestamp source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		appName:  model.DefaultApp,
		basePath: "/api",
		clock:    clock.NewSystem(time.UTC),
		logger:   logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start marks the service ready. Calling it twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.started = true
	s.startedAt = s.clock.Now()
	s.logger.Info(ctx, "data service started",
		logger.String("app", s.appName),
		logger.String("fetchEndpoint", model.FetchEndpoint(s.basePath)),
		logger.String("receiveEndpoint", model.ReceiveEndpoint(s.basePath)),
	)
	return nil
}

// Stop marks the service stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "data service stopped",
		logger.Int64("fetched", s.fetched.Load()),
		logger.Int64("received", s.received.Load()),
	)
}

// Fetch returns the envelope for GET <base>/data: the seeded items and the
// current timestamp.
func (s *Service) Fetch(ctx context.Context) model.Envelope {
	s.fetched.Add(1)
	s.recordEnvelope(ctx, metrics.OperationFetch)

	return model.Envelope{
		App:       s.appName,
		Endpoint:  model.FetchEndpoint(s.basePath),
		Message:   model.MessageRetrieved,
		Data:      model.SampleItems(),
		Timestamp: clock.ISO8601(s.clock.Now()),
	}
}

// Receive returns the envelope for POST <base>/data, echoing input verbatim.
// A nil input is echoed as an empty mapping.
func (s *Service) Receive(ctx context.Context, input map[string]any) model.Envelope {
	s.received.Add(1)
	s.recordEnvelope(ctx, metrics.OperationReceive)

	echoed := make(map[string]any, len(input))
	maps.Copy(echoed, input)

	s.logger.Debug(ctx, "payload received", logger.Int("fields", len(echoed)))

	return model.Envelope{
		App:          s.appName,
		Endpoint:     model.ReceiveEndpoint(s.basePath),
		Message:      model.MessageReceived,
		ReceivedData: echoed,
		Timestamp:    clock.ISO8601(s.clock.Now()),
	}
}

func (s *Service) recordEnvelope(ctx context.Context, operation string) {
	if err := metrics.RecordEnvelope(operation); err != nil {
		s.logger.Warn(ctx, "envelope metric not recorded", logger.Error(err))
	}
}

// BasePath reports the route prefix the service labels its endpoints with.
func (s *Service) BasePath() string {
	return s.basePath
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":  s.started,
		"app":      s.appName,
		"basePath": s.basePath,
		"fetched":  s.fetched.Load(),
		"received": s.received.Load(),
	}
	if s.started {
		stats["startedAt"] = clock.ISO8601(s.startedAt)
		stats["uptimeSeconds"] = int64(s.clock.Now().Sub(s.startedAt) / time.Second)
	}
	return stats
}
