package decay

import (
	"testing"

	"github.com/rillcoin/rill/internal/rillcore"
)

func TestDecayRateZeroBelowThreshold(t *testing.T) {
	if got := DecayRatePPB(0); got != 0 {
		t.Fatalf("rate at 0 concentration = %d, want 0", got)
	}
	if got := DecayRatePPB(rillcore.DecayCThresholdPPB); got != 0 {
		t.Fatalf("rate at exactly threshold = %d, want 0", got)
	}
}

func TestDecayRatePositiveAboveThreshold(t *testing.T) {
	got := DecayRatePPB(rillcore.DecayCThresholdPPB + 1)
	if got == 0 {
		t.Fatal("rate just above threshold must be positive")
	}
}

func TestDecayRateApproachesRMaxAtHighConcentration(t *testing.T) {
	got := DecayRatePPB(rillcore.ConcentrationPrecision) // 100% concentration
	if got == 0 || got > rillcore.DecayRMaxPPB {
		t.Fatalf("rate at full concentration = %d, want in (0, %d]", got, rillcore.DecayRMaxPPB)
	}
	// Should be close to R_MAX (within the sigmoid's saturation slack).
	if got < rillcore.DecayRMaxPPB*9/10 {
		t.Fatalf("rate at full concentration = %d, expected near R_MAX=%d", got, rillcore.DecayRMaxPPB)
	}
}

func TestDecayRateMonotonic(t *testing.T) {
	var prev uint64
	step := rillcore.ConcentrationPrecision / 50
	for c := uint64(0); c <= rillcore.ConcentrationPrecision; c += step {
		cur := DecayRatePPB(c)
		if cur < prev {
			t.Fatalf("decay rate not monotonic at conc=%d: prev=%d cur=%d", c, prev, cur)
		}
		prev = cur
	}
}

func TestApplyCompoundDecayZeroRateIsIdentity(t *testing.T) {
	for _, v := range []uint64{0, 1, 100, 1_000_000_000} {
		if got := ApplyCompoundDecay(v, 0, 1000); got != v {
			t.Fatalf("ApplyCompoundDecay(%d, 0, 1000) = %d, want %d unchanged", v, got, v)
		}
	}
}

func TestApplyCompoundDecayNonIncreasingInBlocksHeld(t *testing.T) {
	const v = 10 * rillcore.COIN
	const rate = rillcore.DecayRMaxPPB / 2
	var prev uint64 = v
	for _, n := range []uint64{0, 1, 10, 100, 1000, 10_000, 1_000_000} {
		cur := ApplyCompoundDecay(v, rate, n)
		if cur > prev {
			t.Fatalf("effective value increased holding longer: n=%d cur=%d prev=%d", n, cur, prev)
		}
		if cur > v {
			t.Fatalf("effective value %d exceeds nominal %d", cur, v)
		}
		prev = cur
	}
}

func TestApplyCompoundDecayZeroBlocksIsIdentity(t *testing.T) {
	if got := ApplyCompoundDecay(12345, rillcore.DecayRMaxPPB, 0); got != 12345 {
		t.Fatalf("ApplyCompoundDecay(v, rate, 0) = %d, want nominal unchanged", got)
	}
}

func TestApplyCompoundDecayLargeBlocksHeldTerminates(t *testing.T) {
	// Exercises the binary-exponentiation path for a u64-scale horizon
	// that a one-block-at-a-time loop could never finish.
	got := ApplyCompoundDecay(rillcore.COIN, rillcore.DecayRMaxPPB, 1<<40)
	if got != 0 {
		t.Fatalf("decay over an enormous horizon at max rate should fully decay to 0, got %d", got)
	}
}

func TestApplyCompoundDecayMatchesStepwiseApplication(t *testing.T) {
	const v = 10 * rillcore.COIN
	const rate = rillcore.DecayRMaxPPB
	const n = 50

	// Step-wise reference: apply the single-block factor n times using
	// repeated multiplication (the naive definition), and compare
	// against the binary-exponentiation implementation.
	stepwise := v
	for i := 0; i < n; i++ {
		stepwise = mulDiv(stepwise, rillcore.ConcentrationPrecision-rate, rillcore.ConcentrationPrecision)
	}
	got := ApplyCompoundDecay(v, rate, n)
	// Step-wise flooring loses under one rill per step, and each earlier
	// loss is itself decayed by the later steps, so the two paths can
	// drift apart by up to about PRECISION/rate rills (6 here).
	slack := int64(rillcore.ConcentrationPrecision / rate)
	diff := int64(got) - int64(stepwise)
	if diff < -slack || diff > slack {
		t.Fatalf("binary-exponentiation result %d diverges from stepwise %d by more than rounding slack", got, stepwise)
	}
}

func TestMulDivExactForSmallOperands(t *testing.T) {
	cases := []struct{ a, b, c, want uint64 }{
		{10, 3, 2, 15},
		{0, 100, 7, 0},
		{1_000_000_000, 1_000_000_000, 1_000_000_000, 1_000_000_000},
		{7, 7, 1, 49},
	}
	for _, c := range cases {
		if got := mulDiv(c.a, c.b, c.c); got != c.want {
			t.Fatalf("mulDiv(%d,%d,%d) = %d, want %d", c.a, c.b, c.c, got, c.want)
		}
	}
}

func TestMulDivLargeOperandsNoOverflow(t *testing.T) {
	// a*b here overflows a plain uint64 multiply (> 2^64), exercising the
	// 128-bit intermediate path.
	a := uint64(1) << 40
	b := uint64(1) << 40
	c := uint64(1) << 20
	got := mulDiv(a, b, c)
	want := uint64(1) << 60
	if got != want {
		t.Fatalf("mulDiv(2^40,2^40,2^20) = %d, want %d", got, want)
	}
}
