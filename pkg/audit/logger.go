// Package audit records the operational trail of the sealing pipeline:
// seals produced, vault writes, verification verdicts, contract rejections.
// Events are JSON lines with a canonical content hash, so the trail itself
// is tamper-evident.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caseproof/custody-core/pkg/canonical"
)

// EventType defines the category of the audit event.
type EventType string

const (
	EventSeal         EventType = "SEAL"
	EventVerification EventType = "VERIFICATION"
	EventVaultWrite   EventType = "VAULT_WRITE"
	EventRejection    EventType = "REJECTION"
	EventSession      EventType = "SESSION"
)

// Event is a structured audit record. Hash covers everything but itself.
type Event struct {
	ID        string                 `json:"id"`
	ActorID   string                 `json:"actor_id"`
	Type      EventType              `json:"type"`
	Action    string                 `json:"action"`
	Resource  string                 `json:"resource"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Hash      string                 `json:"hash,omitempty"`
}

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, actorID, action, resource string, metadata map[string]interface{}) error
}

// logger writes JSON lines to a configurable writer.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
	clock  func() time.Time
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to the given writer.
// This allows injection for testing and custom sinks.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w, clock: time.Now}
}

func (l *logger) Record(_ context.Context, eventType EventType, actorID, action, resource string, metadata map[string]interface{}) error {
	event := Event{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Type:      eventType,
		Action:    action,
		Resource:  resource,
		Timestamp: l.clock().UTC(),
		Metadata:  metadata,
	}

	h, err := canonical.Hash(event)
	if err != nil {
		return err
	}
	event.Hash = h

	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// Prefix with AUDIT: for easy filtering
	_, err = l.writer.Write(append([]byte("AUDIT: "), append(raw, '\n')...))
	return err
}
