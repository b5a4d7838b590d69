package persona

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// Score bounds and the weights of each interest component.
const (
	MinScore = 30.0
	MaxScore = 95.0

	baseInterest    = 60.0
	genericPenalty  = -100.0
	contextPenalty  = -15.0
	maxPressure     = 10.0
	pressureDivisor = 20.0
	noiseAmplitude  = 4.0
	minIdeaTokens   = 5
)

var styleMultipliers = map[bidding.BiddingStyle]float64{
	bidding.StyleConservative: 0.9,
	bidding.StyleAggressive:   1.1,
	bidding.StyleStrategic:    1.05,
	bidding.StyleEmotional:    1.0,
	bidding.StyleAnalytical:   1.05,
}

// StyleMultiplier returns the interest multiplier for a bidding style. Unknown
// styles are treated as neutral.
func StyleMultiplier(style bidding.BiddingStyle) float64 {
	if m, ok := styleMultipliers[style]; ok {
		return m
	}
	return 1.0
}

// buzzwordPattern matches ideas that are nothing but "<buzzword>+<container>",
// e.g. "AI+项目" or "blockchain platform".
var buzzwordPattern = regexp.MustCompile(`(?i)^\s*(ai|人工智能|区块链|blockchain|web3|元宇宙|metaverse|大数据|big\s*data|saas|互联网|internet|iot|物联网|app)\s*[+＋&/和]?\s*(项目|project|app|平台|platform|产品|product|创业|startup|idea|创意)\s*[.!。！]?\s*$`)

var latinBuzzwords = map[string]bool{
	"ai": true, "blockchain": true, "web3": true, "metaverse": true, "big": true,
	"data": true, "saas": true, "internet": true, "iot": true, "app": true, "project": true,
	"platform": true, "product": true, "startup": true, "idea": true, "innovative": true,
	"innovation": true, "revolutionary": true, "disruptive": true, "smart": true,
	"next": true, "generation": true, "ecosystem": true, "solution": true, "based": true,
}

var hanBuzzwords = []string{
	"人工智能", "区块链", "元宇宙", "大数据", "互联网", "物联网", "项目", "平台", "产品",
	"创业", "创意", "创新", "颠覆", "智能", "生态", "解决方案", "一个", "基于", "打造",
	"的", "和", "与", "做", "个", "款",
}

// businessContext is the explicit commercial vocabulary that lifts the moderate
// penalty for ideas with weak persona fit.
var businessContext = []string{
	"user", "users", "customer", "customers", "need", "needs", "value", "problem", "problems",
	"用户", "客户", "需求", "价值", "问题", "痛点",
}

// isBuzzwordOnly reports whether lowered text carries nothing beyond hype vocabulary.
func isBuzzwordOnly(lowered string) bool {
	if buzzwordPattern.MatchString(lowered) {
		return true
	}

	residual := lowered
	for _, w := range hanBuzzwords {
		residual = strings.ReplaceAll(residual, w, " ")
	}
	fields := strings.FieldsFunc(residual, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if hasHan(f) {
			return false
		}
		if !latinBuzzwords[f] && !stopwords[f] {
			return false
		}
	}
	return true
}

// Enthusiasm is the keyword-driven part of a persona's interest. The gates run in a
// fixed order: generic text first, then persona fit, then missing business context.
func Enthusiasm(p bidding.Persona, ideaText, theme string) float64 {
	lowered := strings.ToLower(ideaText)

	if meaningfulTokens(ideaText) < minIdeaTokens || isBuzzwordOnly(lowered) {
		return genericPenalty
	}

	personalityHits := countHits(lowered, p.PersonalityKeywords)
	triggerHits := countHits(lowered, p.TriggerKeywords)

	fits := personalityHits >= 2 ||
		(personalityHits >= 1 && triggerHits >= 3) ||
		triggerHits >= 5
	if !fits {
		return genericPenalty
	}

	if personalityHits < 3 && countHits(lowered, businessContext) == 0 {
		return contextPenalty
	}

	themeHits := 0
	if theme != "" {
		loweredTheme := strings.ToLower(theme)
		themeHits = countHits(loweredTheme, p.PersonalityKeywords) + countHits(loweredTheme, p.TriggerKeywords)
	}

	return 6*float64(personalityHits) + 4*float64(triggerHits) + 2*float64(themeHits)
}

// Pressure grows with the gap between personaID's bid and the session's highest bid.
func Pressure(personaID string, currentBids map[string]int) float64 {
	highest := 0
	for _, bid := range currentBids {
		highest = max(highest, bid)
	}
	if highest == 0 {
		return 0
	}

	gap := float64(highest - currentBids[personaID])
	if gap <= 0 {
		return 0
	}
	return min(maxPressure, gap/pressureDivisor)
}

// Scorer rates how interested a persona is in an idea, on [MinScore, MaxScore].
type Scorer struct {
	rng *Random
}

// NewScorer creates a scorer drawing noise from rng.
func NewScorer(rng *Random) *Scorer {
	return &Scorer{rng: rng}
}

// Score combines enthusiasm, competitive pressure and noise, scaled by the persona's
// bidding style and clamped to [MinScore, MaxScore].
func (s *Scorer) Score(p bidding.Persona, ideaText, theme string, currentBids map[string]int) float64 {
	interest := baseInterest +
		Enthusiasm(p, ideaText, theme) +
		Pressure(p.ID, currentBids) +
		s.rng.Uniform(-noiseAmplitude, noiseAmplitude)

	return clamp(interest*StyleMultiplier(p.BiddingStyle), MinScore, MaxScore)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
