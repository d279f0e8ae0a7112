package messaging

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, time.Minute},
		{100, time.Minute},
	}
	for _, tt := range tests {
		if got := cfg.CalculateBackoff(tt.retryCount); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestMessagePayloadRoundTrip(t *testing.T) {
	run := &StoryRunMessage{ProjectID: "p1", RequestID: "req-1"}
	msg, err := NewMessage("m1", MsgTypeStoryRun, run.ProjectID, run)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	var decoded StoryRunMessage
	if err := msg.UnmarshalPayload(&decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded.ProjectID != "p1" || decoded.RequestID != "req-1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDLQStreamName(t *testing.T) {
	if got := StreamStoryRun.DLQStream(); got != "dlq:stream:story:run" {
		t.Errorf("DLQStream() = %q", got)
	}
}
