// Package audit keeps an in-memory trail of account lifecycle events.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/civic-platform/events"
	"github.com/example/civic-platform/logging"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCapacity bounds the number of retained entries.
const DefaultCapacity = 1000

// Entry types.
const (
	TypeUserRegistered = "user_registered"
	TypeUserPromoted   = "user_promoted"
)

// Entry is a single audit record.
type Entry struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	UserID uint      `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

// Module consumes user events and records them.
type Module struct {
	logger   *zap.Logger
	capacity int

	mu      sync.RWMutex
	entries []Entry
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates an audit module retaining at most capacity entries.
// A non-positive capacity uses DefaultCapacity.
func NewModule(capacity int, logger *zap.Logger) *Module {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Module{
		logger:   logging.OrNop(logger).Named("audit"),
		capacity: capacity,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "audit"
}

// RegisterEventConsumers subscribes to the auth module's user events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.UserRegisteredV1, m.handleUserRegistered, m); err != nil {
		return fmt.Errorf("failed to register UserRegistered consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserPromotedV1, m.handleUserPromoted, m); err != nil {
		return fmt.Errorf("failed to register UserPromoted consumer: %w", err)
	}

	m.logger.Info("registered event consumers: UserRegistered, UserPromoted")
	return nil
}

func (m *Module) handleUserRegistered(_ context.Context, event events.UserRegisteredEvent, _ *mono.Msg) error {
	m.record(TypeUserRegistered, event.UserID, event.Email, event.RegisteredAt)
	return nil
}

func (m *Module) handleUserPromoted(_ context.Context, event events.UserPromotedEvent, _ *mono.Msg) error {
	m.record(TypeUserPromoted, event.UserID, event.Email, event.PromotedAt)
	return nil
}

func (m *Module) record(entryType string, userID uint, email string, at time.Time) Entry {
	entry := Entry{
		ID:     uuid.NewString(),
		Type:   entryType,
		UserID: userID,
		Email:  email,
		At:     at,
	}

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = append(m.entries[:0:0], m.entries[over:]...)
	}
	m.mu.Unlock()

	m.logger.Info("audit entry recorded",
		zap.String("id", entry.ID),
		zap.String("type", entry.Type),
		zap.Uint("user_id", entry.UserID))
	return entry
}

// Entries returns a copy of the retained entries, oldest first.
func (m *Module) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Entry, len(m.entries))
	copy(result, m.entries)
	return result
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("module started, listening for user events")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("module stopped")
	return nil
}

// Health reports the number of retained entries.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"entries":  n,
			"capacity": m.capacity,
		},
	}
}
