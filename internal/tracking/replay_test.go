package tracking

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

const recording = `{"serviceVersion": "4.1.0", "version": 6}
{"id": 1, "timestamp": 0, "hands": [], "pointables": []}
{"id": 2, "timestamp": 20000, "hands": [{"id": 1, "type": "left", "palmPosition": [0, 150, 0], "palmVelocity": [0, 0, 0]}], "pointables": []}
`

func TestReplaySource_PlaysInOrder(t *testing.T) {
	ctx := context.Background()
	src, err := NewReplaySource(strings.NewReader(recording), false, false)
	if err != nil {
		t.Fatalf("NewReplaySource() error = %v", err)
	}
	if src.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", src.Len())
	}

	f, err := src.Poll(ctx, 0)
	if err != nil || f != nil {
		t.Fatalf("status line should replay as no tracking, got %v, %v", f, err)
	}

	f, _ = src.Poll(ctx, 0)
	if f == nil || len(f.Hands) != 0 {
		t.Fatalf("expected empty frame, got %+v", f)
	}

	f, _ = src.Poll(ctx, 0)
	if f == nil || len(f.Hands) != 1 || f.Hands[0].Side != "left" {
		t.Fatalf("expected one left hand, got %+v", f)
	}

	if _, err := src.Poll(ctx, 0); !errors.Is(err, io.EOF) {
		t.Errorf("exhausted replay error = %v, want io.EOF", err)
	}
}

func TestReplaySource_Loop(t *testing.T) {
	ctx := context.Background()
	src, err := NewReplaySource(strings.NewReader(recording), true, false)
	if err != nil {
		t.Fatalf("NewReplaySource() error = %v", err)
	}

	for i := 0; i < 7; i++ {
		if _, err := src.Poll(ctx, 0); err != nil {
			t.Fatalf("Poll() %d error = %v", i, err)
		}
	}
}

func TestReplaySource_Paced(t *testing.T) {
	ctx := context.Background()
	src, err := NewReplaySource(strings.NewReader(recording), false, true)
	if err != nil {
		t.Fatalf("NewReplaySource() error = %v", err)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := src.Poll(ctx, 0); err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("paced replay finished in %v, want at least the 20ms recorded gap", elapsed)
	}
}

func TestReplaySource_BadLine(t *testing.T) {
	_, err := NewReplaySource(strings.NewReader("{\"id\": 1}\nnot json\n"), false, false)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 error, got %v", err)
	}
}
