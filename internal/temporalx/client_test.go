package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{10, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := ClampBackoff(250*time.Millisecond, 2*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %v want %v", tc.attempt, got, tc.want)
		}
	}
	if got := ClampBackoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("zero base: got %v", got)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("permission denied should not retry")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("deadline should retry")
	}
	if isRetryableRPC(errors.New("boom")) {
		t.Fatalf("plain error should not retry")
	}
}

func TestNewClientDisabled(t *testing.T) {
	c, err := NewClient(nil, Config{})
	if err != nil || c != nil {
		t.Fatalf("expected nil client without address, got %v %v", c, err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	cfg := LoadConfig(nil)
	if cfg.Enabled() {
		t.Fatalf("expected disabled config")
	}
	if cfg.TaskQueue != DefaultTaskQueue || cfg.Namespace != "draftbridge" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
