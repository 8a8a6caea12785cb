package projection

import "github.com/okian/gridcast/internal/domain/model"

// TierCuts are the inclusive positional-rank limits for each tier.
type TierCuts struct {
	Elite int
	High  int
	Mid   int
}

// Params holds every tunable constant of the engine.
type Params struct {
	// NoECRFloorRatio and NoECRCeilingRatio bound the average-only band.
	NoECRFloorRatio   float64
	NoECRCeilingRatio float64
	// DropPerRank is subtracted per rank beyond the end of a baseline.
	DropPerRank float64
	// MinExtrapolated floors extrapolated projections.
	MinExtrapolated float64
	// DefaultStdDev is used when the ECR table reports none.
	DefaultStdDev float64
	// StdDevWeight scales the std dev into the floor/ceiling band.
	StdDevWeight float64
	// FloorRatio keeps the floor at or above this share of the projection.
	FloorRatio float64
	// MinReliabilityGames gates the blend and bias steps.
	MinReliabilityGames int
	// BlendThreshold is the correlation above which the projection is
	// blended toward the seasonal average.
	BlendThreshold float64
	// BiasThreshold and BiasWeight control the bias correction.
	BiasThreshold float64
	BiasWeight    float64
	// Tiers maps a position to its tier limits.
	Tiers map[model.Position]TierCuts
}

// DefaultParams returns the stock engine constants.
func DefaultParams() Params {
	return Params{
		NoECRFloorRatio:     0.7,
		NoECRCeilingRatio:   1.3,
		DropPerRank:         0.3,
		MinExtrapolated:     3,
		DefaultStdDev:       5,
		StdDevWeight:        0.5,
		FloorRatio:          0.5,
		MinReliabilityGames: 3,
		BlendThreshold:      0.6,
		BiasThreshold:       2,
		BiasWeight:          0.5,
		Tiers: map[model.Position]TierCuts{
			model.QB: {Elite: 6, High: 12, Mid: 24},
			model.RB: {Elite: 12, High: 24, Mid: 36},
			model.WR: {Elite: 12, High: 24, Mid: 36},
			model.TE: {Elite: 6, High: 12, Mid: 20},
		},
	}
}

// Tier buckets a positional rank. Unknown positions are always Stream.
func (p Params) Tier(pos model.Position, rank int) model.Tier {
	cuts, ok := p.Tiers[pos]
	if !ok {
		return model.TierStream
	}
	switch {
	case rank <= cuts.Elite:
		return model.TierElite
	case rank <= cuts.High:
		return model.TierHigh
	case rank <= cuts.Mid:
		return model.TierMid
	default:
		return model.TierStream
	}
}
