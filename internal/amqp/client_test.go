package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection closed", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"closed channel", errors.New("Exception (504) Reason: \"channel/connection is not open\""), true},
		{"handler error", errors.New("append row: quota exceeded"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectionError(tt.err); got != tt.expected {
				t.Errorf("IsConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestTransactionSyncMessageJSON(t *testing.T) {
	timestamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := &TransactionSyncMessage{
		Kind:      "expense",
		ID:        "abc-123",
		Deleted:   true,
		Timestamp: timestamp,
	}

	raw, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := TransactionSyncMessageFromJSON(raw)
	if err != nil {
		t.Fatalf("TransactionSyncMessageFromJSON() error = %v", err)
	}
	if parsed.Kind != msg.Kind || parsed.ID != msg.ID || parsed.Deleted != msg.Deleted {
		t.Errorf("round trip = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(timestamp) {
		t.Errorf("timestamp = %v, want %v", parsed.Timestamp, timestamp)
	}
}

func TestTransactionSyncMessageInvalidJSON(t *testing.T) {
	if _, err := TransactionSyncMessageFromJSON([]byte(`{"kind": 7}`)); err == nil {
		t.Error("TransactionSyncMessageFromJSON() should fail with invalid JSON")
	}
}
