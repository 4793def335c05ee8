package rillcore

import "testing"

func TestNextDifficultyTargetUsesInitialBelowWindow(t *testing.T) {
	initial := uint64(1000)
	if got := NextDifficultyTarget(0, nil, nil, initial); got != initial {
		t.Fatalf("height 0 = %d, want initial %d", got, initial)
	}
	if got := NextDifficultyTarget(LWMAWindow, nil, nil, initial); got != initial {
		t.Fatalf("height == LWMAWindow = %d, want initial %d", got, initial)
	}
}

func TestNextDifficultyTargetStableAtTargetSpacing(t *testing.T) {
	initial := uint64(1_000_000)
	n := int(LWMAWindow)
	timestamps := make([]int64, n)
	targets := make([]uint64, n)
	// most-recent-first, each exactly TargetBlockTime apart, all at initial target.
	ts := int64(1_000_000)
	for i := 0; i < n; i++ {
		timestamps[i] = ts
		targets[i] = initial
		ts -= TargetBlockTime
	}
	got := NextDifficultyTarget(LWMAWindow+1, timestamps, targets, initial)
	// Blocks arriving exactly on schedule should leave the target roughly
	// unchanged (within the clamp band).
	lo, hi := initial/4, initial*4
	if got < lo || got > hi {
		t.Fatalf("stable-spacing target %d outside sane bound [%d,%d]", got, lo, hi)
	}
	ratio := float64(got) / float64(initial)
	if ratio < 0.9 || ratio > 1.1 {
		t.Fatalf("stable-spacing target %d should be close to initial %d, ratio=%f", got, initial, ratio)
	}
}

func TestNextDifficultyTargetRisesWhenBlocksSlow(t *testing.T) {
	initial := uint64(1_000_000)
	n := int(LWMAWindow)
	timestamps := make([]int64, n)
	targets := make([]uint64, n)
	ts := int64(10_000_000)
	for i := 0; i < n; i++ {
		timestamps[i] = ts
		targets[i] = initial
		ts -= 4 * TargetBlockTime // blocks arriving 4x slower than target
	}
	got := NextDifficultyTarget(LWMAWindow+1, timestamps, targets, initial)
	if got <= initial {
		t.Fatalf("slow blocks should raise the target (easier work), got %d vs initial %d", got, initial)
	}
}

func TestNextDifficultyTargetFallsWhenBlocksFast(t *testing.T) {
	initial := uint64(4_000_000)
	n := int(LWMAWindow)
	timestamps := make([]int64, n)
	targets := make([]uint64, n)
	ts := int64(10_000_000)
	for i := 0; i < n; i++ {
		timestamps[i] = ts
		targets[i] = initial
		ts -= TargetBlockTime / 4 // blocks arriving 4x faster than target
	}
	got := NextDifficultyTarget(LWMAWindow+1, timestamps, targets, initial)
	if got >= initial {
		t.Fatalf("fast blocks should lower the target (harder work), got %d vs initial %d", got, initial)
	}
}

func TestCheckProofOfWork(t *testing.T) {
	var hash Hash
	hash[31] = 5
	if !CheckProofOfWork(hash, 5) {
		t.Fatal("hash value 5 should satisfy target 5")
	}
	if CheckProofOfWork(hash, 4) {
		t.Fatal("hash value 5 should not satisfy target 4")
	}
	hash[0] = 1 // nonzero high byte makes the effective value huge
	if CheckProofOfWork(hash, ^uint64(0)) {
		t.Fatal("a hash with nonzero leading bytes must fail any uint64 target")
	}
}
