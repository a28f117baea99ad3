package recognition_test

import (
	"math"
	"testing"
	"time"

	"murmur/internal/recognition"
)

func TestEstimateUsesDurationHeuristic(t *testing.T) {
	model := recognition.DefaultProgressModel()
	if got := model.Estimate(0); got != 5*time.Second {
		t.Fatalf("Estimate(0) = %v, want 5s", got)
	}
	if got := model.Estimate(8); got != 5*time.Second {
		t.Fatalf("Estimate(8) = %v, want minimum 5s", got)
	}
	if got := model.Estimate(120); got != 60*time.Second {
		t.Fatalf("Estimate(120) = %v, want 60s", got)
	}
	if got := model.Estimate(math.NaN()); got != 5*time.Second {
		t.Fatalf("Estimate(NaN) = %v", got)
	}
}

func TestCurveFollowsExponentialEaseIn(t *testing.T) {
	model := recognition.DefaultProgressModel()
	estimate := 10 * time.Second

	if got := model.At(0, estimate, model.Target); got != model.Start {
		t.Fatalf("At(0) = %v, want %v", got, model.Start)
	}
	want := 0.3 + (0.85-0.3)*(1-math.Exp(-3*0.5))
	if got := model.At(5*time.Second, estimate, model.Target); math.Abs(got-want) > 1e-12 {
		t.Fatalf("At(half) = %v, want %v", got, want)
	}
	if got := model.At(time.Hour, estimate, model.Target); got >= model.Target+1e-12 {
		t.Fatalf("curve overshot target: %v", got)
	}
	if got := model.At(time.Hour, estimate, model.Ceiling); got >= model.Ceiling {
		t.Fatalf("curve reached ceiling: %v", got)
	}
	prev := 0.0
	for ms := 0; ms <= 20000; ms += 100 {
		got := model.At(time.Duration(ms)*time.Millisecond, estimate, model.Target)
		if got < prev {
			t.Fatalf("curve decreased at %dms", ms)
		}
		prev = got
	}
}

func TestNudgeIsCapped(t *testing.T) {
	model := recognition.DefaultProgressModel()
	target := model.Target
	target = model.Nudged(target)
	if math.Abs(target-0.9) > 1e-12 {
		t.Fatalf("first nudge = %v, want 0.9", target)
	}
	for i := 0; i < 5; i++ {
		target = model.Nudged(target)
	}
	if target != model.Ceiling {
		t.Fatalf("nudge exceeded ceiling: %v", target)
	}
}
