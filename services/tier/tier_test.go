package tier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		lifetime int64
		tier     Tier
		progress float64
		next     int64
	}{
		{"zero", 0, Bronze, 0, SilverThreshold},
		{"just below silver", 499, Bronze, 499.0 / 500 * 100, SilverThreshold},
		{"silver boundary", 500, Silver, 0, GoldThreshold},
		{"gold boundary", 1500, Gold, 0, PlatinumThreshold},
		{"platinum boundary", 3000, Platinum, 100, PlatinumThreshold},
		{"beyond platinum", 10000, Platinum, 100, PlatinumThreshold},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tier, progress, next := Compute(tc.lifetime)
			require.Equal(t, tc.tier, tier)
			require.InDelta(t, tc.progress, progress, 1e-9)
			require.Equal(t, tc.next, next)
		})
	}
}

func TestComputeBronzeProgressFromZero(t *testing.T) {
	// 175 lifetime points: 175/500 of the way to silver.
	tier, progress, next := Compute(175)
	require.Equal(t, Bronze, tier)
	require.InDelta(t, 35.0, progress, 1e-9)
	require.Equal(t, SilverThreshold, next)
}

func TestComputeGoldProgress(t *testing.T) {
	// 1800 lifetime points: (1800-1500)/(3000-1500) of the way to platinum.
	tier, progress, next := Compute(1800)
	require.Equal(t, Gold, tier)
	require.InDelta(t, 20.0, progress, 1e-9)
	require.Equal(t, PlatinumThreshold, next)
}

func TestComputeDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		tierA, progressA, nextA := Compute(2750)
		tierB, progressB, nextB := Compute(2750)
		require.Equal(t, tierA, tierB)
		require.Equal(t, progressA, progressB)
		require.Equal(t, nextA, nextB)
	}
}

func TestComputeNegativeClamped(t *testing.T) {
	tier, progress, next := Compute(-10)
	require.Equal(t, Bronze, tier)
	require.Equal(t, 0.0, progress)
	require.Equal(t, SilverThreshold, next)
}

func TestBenefitFor(t *testing.T) {
	require.Equal(t, Benefit{Discount: 0, EarnMultiplier: 1.0}, BenefitFor(Bronze))
	require.Equal(t, Benefit{Discount: 0.05, EarnMultiplier: 1.1}, BenefitFor(Silver))
	require.Equal(t, Benefit{Discount: 0.10, EarnMultiplier: 1.25}, BenefitFor(Gold))
	require.Equal(t, Benefit{Discount: 0.15, EarnMultiplier: 1.5}, BenefitFor(Platinum))

	// unknown tier falls back to the bronze baseline
	require.Equal(t, BenefitFor(Bronze), BenefitFor(Tier("diamond")))
}
