package maturity

import (
	"fmt"
	"math"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// Dimension is one axis of commercial maturity.
type Dimension string

const (
	TargetCustomer Dimension = "targetCustomer"
	DemandScenario Dimension = "demandScenario"
	CoreValue      Dimension = "coreValue"
	BusinessModel  Dimension = "businessModel"
	Credibility    Dimension = "credibility"
)

// Dimensions lists every dimension in report order.
var Dimensions = []Dimension{TargetCustomer, DemandScenario, CoreValue, BusinessModel, Credibility}

// Status summarises how well the dialogue covered a dimension.
type Status string

const (
	StatusClear      Status = "CLEAR"
	StatusNeedsFocus Status = "NEEDS_FOCUS"
	StatusUnclear    Status = "UNCLEAR"
)

// Level is the overall maturity classification. The two gray levels are ambiguous
// on purpose and mean the idea needs follow-up before a firm call.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelGrayLow  Level = "GRAY_LOW"
	LevelMedium   Level = "MEDIUM"
	LevelGrayHigh Level = "GRAY_HIGH"
	LevelHigh     Level = "HIGH"
)

// DimensionScore is the outcome of scoring one dimension.
type DimensionScore struct {
	Score      float64  `json:"score"`
	Status     Status   `json:"status"`
	Evidence   []string `json:"evidence"`
	Confidence float64  `json:"confidence"`
}

// ValidSignals counts strong evidence found in the dialogue.
type ValidSignals struct {
	SpecificPast       int `json:"specific_past"`
	RealSpending       int `json:"real_spending"`
	PainPoints         int `json:"pain_points"`
	UserIntroductions  int `json:"user_introductions"`
	VerifiableEvidence int `json:"verifiable_evidence"`
}

// Total sums every category.
func (s ValidSignals) Total() int {
	return s.SpecificPast + s.RealSpending + s.PainPoints + s.UserIntroductions + s.VerifiableEvidence
}

// InvalidSignals counts weak evidence. Compliment messages are dropped before
// scoring; generalities and future promises are kept but lower confidence.
type InvalidSignals struct {
	Compliments    int `json:"compliments"`
	Generalities   int `json:"generalities"`
	FuturePromises int `json:"future_promises"`
}

// Result is the full maturity assessment of a dialogue.
type Result struct {
	TotalScore     float64                      `json:"total_score"`
	Level          Level                        `json:"level"`
	Dimensions     map[Dimension]DimensionScore `json:"dimensions"`
	Confidence     float64                      `json:"confidence"`
	ValidSignals   ValidSignals                 `json:"valid_signals"`
	InvalidSignals InvalidSignals               `json:"invalid_signals"`
	WeakDimensions []Dimension                  `json:"weak_dimensions"`
	MessagesUsed   int                          `json:"messages_used"`
	Bidders        int                          `json:"bidders"`
}

// Input is the dialogue and final bids of a session.
type Input struct {
	Messages []bidding.Message `json:"messages"`
	Bids     map[string]int    `json:"bids"`
}

// Weights sets each dimension's share of the total score. They must sum to 1.
type Weights struct {
	TargetCustomer float64 `yaml:"target_customer" json:"target_customer"`
	DemandScenario float64 `yaml:"demand_scenario" json:"demand_scenario"`
	CoreValue      float64 `yaml:"core_value" json:"core_value"`
	BusinessModel  float64 `yaml:"business_model" json:"business_model"`
	Credibility    float64 `yaml:"credibility" json:"credibility"`
}

// DefaultWeights favours core value slightly over the other dimensions.
func DefaultWeights() Weights {
	return Weights{
		TargetCustomer: 0.20,
		DemandScenario: 0.20,
		CoreValue:      0.25,
		BusinessModel:  0.20,
		Credibility:    0.15,
	}
}

// For returns the weight of d.
func (w Weights) For(d Dimension) float64 {
	switch d {
	case TargetCustomer:
		return w.TargetCustomer
	case DemandScenario:
		return w.DemandScenario
	case CoreValue:
		return w.CoreValue
	case BusinessModel:
		return w.BusinessModel
	case Credibility:
		return w.Credibility
	default:
		return 0
	}
}

// Validate checks every weight is a finite non-negative number and that they sum to 1.
func (w Weights) Validate() error {
	sum := 0.0
	for _, d := range Dimensions {
		v := w.For(d)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight for %s must be a finite number, got %v", d, v)
		}
		if v < 0 {
			return fmt.Errorf("weight for %s must be >= 0, got %v", d, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Thresholds are the lower bounds of the four upper levels. A score exactly at a
// threshold belongs to the higher level.
type Thresholds struct {
	GrayLow  float64 `yaml:"gray_low" json:"gray_low"`
	Medium   float64 `yaml:"medium" json:"medium"`
	GrayHigh float64 `yaml:"gray_high" json:"gray_high"`
	High     float64 `yaml:"high" json:"high"`
}

// DefaultThresholds returns the standard level boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{GrayLow: 4.0, Medium: 5.0, GrayHigh: 7.0, High: 7.5}
}

// Validate checks the thresholds are strictly ascending.
func (t Thresholds) Validate() error {
	if !(t.GrayLow < t.Medium && t.Medium < t.GrayHigh && t.GrayHigh < t.High) {
		return fmt.Errorf("thresholds must be strictly ascending: gray_low=%v medium=%v gray_high=%v high=%v",
			t.GrayLow, t.Medium, t.GrayHigh, t.High)
	}
	return nil
}

// Classify maps a total score to its level.
func (t Thresholds) Classify(total float64) Level {
	switch {
	case total >= t.High:
		return LevelHigh
	case total >= t.GrayHigh:
		return LevelGrayHigh
	case total >= t.Medium:
		return LevelMedium
	case total >= t.GrayLow:
		return LevelGrayLow
	default:
		return LevelLow
	}
}
