package model

import "time"

// WeekDetail is one matched (ECR rank, actual) pair behind a ReliabilityStat.
type WeekDetail struct {
	Week       int     `json:"week"`
	ECRRank    float64 `json:"ecr_rank"`
	Actual     float64 `json:"actual"`
	ActualRank int     `json:"actual_rank"`
}

// ReliabilityStat measures how well weekly ECR ranks ordered a player's own
// weekly results. Rank units throughout, not points.
type ReliabilityStat struct {
	Name        string       `json:"name"`
	Position    Position     `json:"pos"`
	Games       int          `json:"games"`
	Correlation float64      `json:"correlation"`
	MAE         float64      `json:"mae"`
	HitRate     float64      `json:"hit_rate"`
	Bias        float64      `json:"bias"`
	Weeks       []WeekDetail `json:"weeks"`
}

// Tier is a coarse quality bucket assigned from positional rank.
type Tier string

// Tiers from best to worst.
const (
	TierElite  Tier = "Elite"
	TierHigh   Tier = "High"
	TierMid    Tier = "Mid"
	TierStream Tier = "Stream"
)

// Trend summarizes a player's bias against consensus.
type Trend string

// Trend values.
const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// TrendFor maps a bias to a trend: beating consensus by more than a rank
// is up, trailing it by more than a rank is down.
func TrendFor(bias float64) Trend {
	switch {
	case bias < -1:
		return TrendUp
	case bias > 1:
		return TrendDown
	default:
		return TrendStable
	}
}

// NoECRRank is reported as the ECR rank of players without a match.
const NoECRRank = 999

// Projection is the engine's output row for one player.
type Projection struct {
	Name        string   `json:"name"`
	Position    Position `json:"pos"`
	Projected   float64  `json:"proj"`
	Floor       float64  `json:"floor"`
	Ceiling     float64  `json:"ceiling"`
	Average     float64  `json:"avg"`
	Games       int      `json:"games"`
	HasECR      bool     `json:"has_ecr"`
	ECRRank     float64  `json:"ecr_rank"`
	Correlation float64  `json:"correlation"`
	MAE         float64  `json:"mae"`
	HitRate     float64  `json:"hit_rate"`
	Bias        float64  `json:"bias"`
	Rank        int      `json:"rank"`
	Tier        Tier     `json:"tier"`
	Trend       Trend    `json:"trend"`
}

// RecomputeRequest asks the workers to rebuild the snapshot for one scoring
// system at a given data version.
type RecomputeRequest struct {
	ID         string
	Scoring    ScoringSystem
	Version    uint64
	Reason     string
	EnqueuedAt time.Time
}
