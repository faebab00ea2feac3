package tier

// Tier is a named loyalty level derived from lifetime points.
type Tier string

const (
	Bronze   Tier = "bronze"
	Silver   Tier = "silver"
	Gold     Tier = "gold"
	Platinum Tier = "platinum"
)

// Lifetime-point thresholds, inclusive lower bound per tier.
const (
	BronzeThreshold   int64 = 0
	SilverThreshold   int64 = 500
	GoldThreshold     int64 = 1500
	PlatinumThreshold int64 = 3000
)

// Benefit is static per-tier metadata. It is informational for callers
// (e.g. scaling an accrual before recording it); the ledger never applies
// it on its own.
type Benefit struct {
	Discount       float64 `json:"discount"`
	EarnMultiplier float64 `json:"earn_multiplier"`
}

type level struct {
	tier      Tier
	threshold int64
	benefit   Benefit
}

// levels is ordered ascending by threshold; Compute walks it from the top.
var levels = []level{
	{Bronze, BronzeThreshold, Benefit{Discount: 0, EarnMultiplier: 1.0}},
	{Silver, SilverThreshold, Benefit{Discount: 0.05, EarnMultiplier: 1.1}},
	{Gold, GoldThreshold, Benefit{Discount: 0.10, EarnMultiplier: 1.25}},
	{Platinum, PlatinumThreshold, Benefit{Discount: 0.15, EarnMultiplier: 1.5}},
}

// Compute derives the tier, the progress percentage toward the next tier and
// the next tier's threshold from a lifetime-points balance. At platinum the
// progress is 100 and the threshold returned is platinum's own.
func Compute(lifetimePoints int64) (Tier, float64, int64) {
	if lifetimePoints < 0 {
		lifetimePoints = 0
	}

	idx := 0
	for i := len(levels) - 1; i >= 0; i-- {
		if lifetimePoints >= levels[i].threshold {
			idx = i
			break
		}
	}

	current := levels[idx]
	if idx == len(levels)-1 {
		return current.tier, 100, current.threshold
	}

	next := levels[idx+1]
	progress := float64(lifetimePoints-current.threshold) / float64(next.threshold-current.threshold) * 100
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	return current.tier, progress, next.threshold
}

// BenefitFor returns the static benefit metadata for a tier. Unknown tiers
// get the bronze baseline.
func BenefitFor(t Tier) Benefit {
	for _, l := range levels {
		if l.tier == t {
			return l.benefit
		}
	}
	return levels[0].benefit
}
