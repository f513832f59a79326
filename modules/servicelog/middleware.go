// Package servicelog records and logs every request-reply call and event
// delivery that crosses a module boundary.
package servicelog

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/example/civic-platform/logging"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"go.uber.org/zap"
)

// DefaultSlowThreshold is the latency above which a call is logged as slow.
const DefaultSlowThreshold = 500 * time.Millisecond

// ServiceStats holds the counters of a single service or event.
// Errors counts handler and transport failures. Rejected counts request-reply
// responses that completed but carry a non-null "error" object in their
// payload, which is how the auth services report failed operations.
type ServiceStats struct {
	Name         string        `json:"name"`
	Calls        int64         `json:"calls"`
	Errors       int64         `json:"errors"`
	Rejected     int64         `json:"rejected"`
	TotalLatency time.Duration `json:"total_latency"`
	MaxLatency   time.Duration `json:"max_latency"`
}

// AverageLatency returns the mean call latency.
func (s ServiceStats) AverageLatency() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Calls)
}

// Middleware is a mono middleware module that wraps request-reply handlers
// and event consumers.
type Middleware struct {
	logger        *zap.Logger
	slowThreshold time.Duration

	mu    sync.Mutex
	stats map[string]*ServiceStats
}

var _ mono.Module = (*Middleware)(nil)
var _ mono.MiddlewareModule = (*Middleware)(nil)
var _ mono.HealthCheckableModule = (*Middleware)(nil)

// New creates the middleware. A non-positive slowThreshold uses
// DefaultSlowThreshold.
func New(logger *zap.Logger, slowThreshold time.Duration) *Middleware {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	return &Middleware{
		logger:        logging.OrNop(logger).Named("servicelog"),
		slowThreshold: slowThreshold,
		stats:         make(map[string]*ServiceStats),
	}
}

// Name returns the module name.
func (m *Middleware) Name() string {
	return "servicelog"
}

// Start starts the middleware.
func (m *Middleware) Start(_ context.Context) error {
	m.logger.Info("middleware started", zap.Duration("slow_threshold", m.slowThreshold))
	return nil
}

// Stop logs the final counters.
func (m *Middleware) Stop(_ context.Context) error {
	for _, s := range m.Stats() {
		m.logger.Info("service summary",
			zap.String("service", s.Name),
			zap.Int64("calls", s.Calls),
			zap.Int64("errors", s.Errors),
			zap.Duration("avg_latency", s.AverageLatency()))
	}
	m.logger.Info("middleware stopped")
	return nil
}

// Health reports the per-service counters.
func (m *Middleware) Health(_ context.Context) mono.HealthStatus {
	details := make(map[string]any)
	for _, s := range m.Stats() {
		details[s.Name] = map[string]any{
			"calls":          s.Calls,
			"errors":         s.Errors,
			"rejected":       s.Rejected,
			"avg_latency_ms": s.AverageLatency().Milliseconds(),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// OnModuleLifecycle logs module start and stop.
func (m *Middleware) OnModuleLifecycle(
	_ context.Context,
	event types.ModuleLifecycleEvent,
) types.ModuleLifecycleEvent {
	switch event.Type {
	case types.ModuleStartedEvent:
		m.logger.Debug("module started",
			zap.String("module", event.ModuleName),
			zap.Duration("startup", event.Duration))
	case types.ModuleStoppedEvent:
		if event.Error != nil {
			m.logger.Warn("module stopped with error",
				zap.String("module", event.ModuleName),
				zap.Error(event.Error))
		}
	}
	return event
}

// OnServiceRegistration wraps request-reply handlers.
func (m *Middleware) OnServiceRegistration(
	_ context.Context,
	reg types.ServiceRegistration,
) types.ServiceRegistration {
	if reg.Type != types.ServiceTypeRequestReply || reg.RequestHandler == nil {
		return reg
	}

	name := reg.Name
	original := reg.RequestHandler
	reg.RequestHandler = func(ctx context.Context, req *types.Msg) ([]byte, error) {
		start := time.Now()
		resp, err := original(ctx, req)
		m.observe("service", name, time.Since(start), err)
		if err == nil && carriesError(resp) {
			m.reject(name)
		}
		return resp, err
	}
	return reg
}

// OnConfigurationChange passes configuration events through unchanged.
func (m *Middleware) OnConfigurationChange(
	_ context.Context,
	event types.ConfigurationEvent,
) types.ConfigurationEvent {
	return event
}

// OnOutgoingMessage passes outgoing messages through unchanged.
func (m *Middleware) OnOutgoingMessage(
	octx types.OutgoingMessageContext,
) types.OutgoingMessageContext {
	return octx
}

// OnEventConsumerRegistration wraps event consumer handlers.
func (m *Middleware) OnEventConsumerRegistration(
	_ context.Context,
	entry types.EventConsumerEntry,
) types.EventConsumerEntry {
	if entry.Handler == nil {
		return entry
	}

	name := "event:" + entry.EventDef.Name
	original := entry.Handler
	entry.Handler = func(ctx context.Context, msg *types.Msg) error {
		start := time.Now()
		err := original(ctx, msg)
		m.observe("event", name, time.Since(start), err)
		return err
	}
	return entry
}

// OnEventStreamConsumerRegistration passes stream consumers through unchanged.
func (m *Middleware) OnEventStreamConsumerRegistration(
	_ context.Context,
	entry types.EventStreamConsumerEntry,
) types.EventStreamConsumerEntry {
	return entry
}

func (m *Middleware) observe(kind, name string, latency time.Duration, err error) {
	m.mu.Lock()
	s, ok := m.stats[name]
	if !ok {
		s = &ServiceStats{Name: name}
		m.stats[name] = s
	}
	s.Calls++
	s.TotalLatency += latency
	if latency > s.MaxLatency {
		s.MaxLatency = latency
	}
	if err != nil {
		s.Errors++
	}
	m.mu.Unlock()

	fields := []zap.Field{
		zap.String(kind, name),
		zap.Duration("latency", latency),
	}
	switch {
	case err != nil:
		m.logger.Warn("call failed", append(fields, zap.Error(err))...)
	case latency > m.slowThreshold:
		m.logger.Warn("slow call", fields...)
	default:
		m.logger.Debug("call completed", fields...)
	}
}

// errorPayload matches the error field of request-reply responses.
type errorPayload struct {
	Error json.RawMessage `json:"error"`
}

func carriesError(resp []byte) bool {
	var p errorPayload
	if err := json.Unmarshal(resp, &p); err != nil {
		return false
	}
	return len(p.Error) > 0 && string(p.Error) != "null"
}

func (m *Middleware) reject(name string) {
	m.mu.Lock()
	if s, ok := m.stats[name]; ok {
		s.Rejected++
	}
	m.mu.Unlock()

	m.logger.Info("call rejected", zap.String("service", name))
}

// Stats returns a snapshot of all counters sorted by name.
func (m *Middleware) Stats() []ServiceStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]ServiceStats, 0, len(m.stats))
	for _, s := range m.stats {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
