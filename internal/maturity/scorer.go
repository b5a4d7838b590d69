// Package maturity scores how commercially mature an idea is, judged from the
// dialogue a bidding session produced.
//
// Scoring is rule based and runs in five stages: weak evidence is filtered, strong
// signals are counted, each dimension is scored from its concerns and praise, the
// dimensions are aggregated into a level, and a confidence is derived.
package maturity

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	baseWithMessages        = 5.0
	baseWithoutMessages     = 2.0
	baseUnansweredCriticism = 3.0
	concernPenalty          = 0.8
	praiseBonus             = 0.5
	unansweredMaxMessages   = 3

	minDimensionScore = 1.0
	maxDimensionScore = 10.0
	clearScore        = 7.0

	maxEvidence          = 3
	fullEvidenceCount    = 5
	minEvidenceConfident = 0.5
	maxEvidenceConfident = 0.95
	maxSnippetRunes      = 160
)

// Scorer runs the maturity pipeline. It is stateless and safe for concurrent use.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
	similarity *SimilarityEngine
}

// NewScorer validates weights and thresholds and returns a scorer using them.
func NewScorer(weights Weights, thresholds Thresholds) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid maturity weights: %w", err)
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid maturity thresholds: %w", err)
	}
	return &Scorer{
		weights:    weights,
		thresholds: thresholds,
		similarity: NewSimilarityEngine(),
	}, nil
}

// DefaultScorer returns a scorer with the default weights and thresholds.
func DefaultScorer() *Scorer {
	s, err := NewScorer(DefaultWeights(), DefaultThresholds())
	if err != nil {
		panic(err) // defaults are constants
	}
	return s
}

// Score assesses the dialogue in in.
func (s *Scorer) Score(in Input) *Result {
	kept, invalid := filterInvalidData(in)
	signals := detectValidSignals(kept)

	dims := make(map[Dimension]DimensionScore, len(Dimensions))
	evidenceCounts := make([]int, 0, len(Dimensions))
	for _, d := range Dimensions {
		score, rawEvidence := s.scoreDimension(d, kept, signals)
		dims[d] = score
		evidenceCounts = append(evidenceCounts, rawEvidence)
	}

	total := s.aggregate(dims)

	bidders := 0
	for _, bid := range in.Bids {
		if bid > 0 {
			bidders++
		}
	}

	return &Result{
		TotalScore:     total,
		Level:          s.thresholds.Classify(total),
		Dimensions:     dims,
		Confidence:     confidence(dims, evidenceCounts, signals, invalid),
		ValidSignals:   signals,
		InvalidSignals: invalid,
		WeakDimensions: weakDimensions(dims),
		MessagesUsed:   len(kept),
		Bidders:        bidders,
	}
}

// filterInvalidData drops compliment messages and counts generalities and future
// promises, which are kept.
func filterInvalidData(in Input) ([]string, InvalidSignals) {
	var invalid InvalidSignals
	kept := make([]string, 0, len(in.Messages))

	for _, m := range in.Messages {
		lowered := strings.ToLower(m.Content)
		if containsAny(lowered, complimentPhrases) {
			invalid.Compliments++
			continue
		}
		if containsAny(lowered, generalityPhrases) {
			invalid.Generalities++
		}
		if containsAny(lowered, futurePromisePhrases) {
			invalid.FuturePromises++
		}
		kept = append(kept, m.Content)
	}

	return kept, invalid
}

func detectValidSignals(kept []string) ValidSignals {
	counts := make(map[signalCategory]int, len(signalKeywords))
	for _, content := range kept {
		lowered := strings.ToLower(content)
		for category, keywords := range signalKeywords {
			counts[category] += countPhrases(lowered, keywords)
		}
	}

	return ValidSignals{
		SpecificPast:       counts[signalSpecificPast],
		RealSpending:       counts[signalRealSpending],
		PainPoints:         counts[signalPainPoint],
		UserIntroductions:  counts[signalUserIntroduction],
		VerifiableEvidence: counts[signalVerifiableEvidence],
	}
}

// signalBonus is the dimension-specific credit for strong evidence.
func signalBonus(d Dimension, signals ValidSignals) float64 {
	switch d {
	case BusinessModel:
		return math.Min(1.5*float64(signals.RealSpending), 3)
	case Credibility:
		return math.Min(2.0*float64(signals.VerifiableEvidence), 4)
	case CoreValue:
		return math.Min(0.8*float64(signals.PainPoints), 2)
	case TargetCustomer:
		return math.Min(0.6*float64(signals.UserIntroductions), 1.5)
	case DemandScenario:
		return math.Min(0.5*float64(signals.SpecificPast), 1.5)
	default:
		return 0
	}
}

// scoreDimension returns the dimension's score and its evidence count before dedup.
func (s *Scorer) scoreDimension(d Dimension, kept []string, signals ValidSignals) (DimensionScore, int) {
	profile := dimensionProfiles[d]

	relevant := 0
	var concerns, praise []string
	for _, content := range kept {
		lowered := strings.ToLower(content)
		if !containsAny(lowered, profile.topic) &&
			!containsAny(lowered, profile.concern) &&
			!containsAny(lowered, profile.praise) {
			continue
		}
		relevant++

		for _, sentence := range splitSentences(content) {
			ls := strings.ToLower(sentence)
			switch {
			case containsAny(ls, profile.concern):
				concerns = append(concerns, snippet(sentence))
			case containsAny(ls, profile.praise):
				praise = append(praise, snippet(sentence))
			}
		}
	}

	uniqueConcerns := s.similarity.Dedup(concerns)
	uniquePraise := s.similarity.Dedup(praise)

	base := baseWithMessages
	if relevant == 0 {
		base = baseWithoutMessages
	}
	if len(uniqueConcerns) > 0 && len(uniquePraise) == 0 && relevant <= unansweredMaxMessages {
		base = baseUnansweredCriticism
	}

	score := base -
		concernPenalty*float64(len(uniqueConcerns)) +
		praiseBonus*float64(len(uniquePraise)) +
		signalBonus(d, signals)
	score = round1(clamp(score, minDimensionScore, maxDimensionScore))

	rawEvidence := len(concerns) + len(praise)
	evidence := s.similarity.Dedup(append(append([]string{}, concerns...), praise...))
	if len(evidence) > maxEvidence {
		evidence = evidence[:maxEvidence]
	}

	status := StatusNeedsFocus
	switch {
	case relevant == 0:
		status = StatusUnclear
	case score >= clearScore:
		status = StatusClear
	}

	return DimensionScore{
		Score:      score,
		Status:     status,
		Evidence:   evidence,
		Confidence: evidenceConfidence(rawEvidence),
	}, rawEvidence
}

// evidenceConfidence rises linearly from 0.5 with no evidence to 0.95 at five items.
func evidenceConfidence(n int) float64 {
	n = min(n, fullEvidenceCount)
	step := (maxEvidenceConfident - minEvidenceConfident) / fullEvidenceCount
	return round2(minEvidenceConfident + step*float64(n))
}

func (s *Scorer) aggregate(dims map[Dimension]DimensionScore) float64 {
	total := 0.0
	for _, d := range Dimensions {
		total += s.weights.For(d) * dims[d].Score
	}
	return round1(total)
}

func confidence(dims map[Dimension]DimensionScore, evidenceCounts []int, signals ValidSignals, invalid InvalidSignals) float64 {
	c := 0.9

	sum := 0
	for _, n := range evidenceCounts {
		sum += n
	}
	avgEvidence := float64(sum) / float64(len(evidenceCounts))
	switch {
	case avgEvidence < 1:
		c -= 0.2
	case avgEvidence > 3:
		c += 0.05
	}

	c += math.Min(0.1, 0.02*float64(signals.Total()))

	if invalid.FuturePromises > 3 {
		c -= 0.15
	}
	if invalid.Generalities > 5 {
		c -= 0.1
	}

	scores := make([]float64, 0, len(dims))
	for _, d := range Dimensions {
		scores = append(scores, dims[d].Score)
	}
	if stdev(scores) > 2.5 {
		c -= 0.1
	}

	return round2(clamp(c, 0.5, 1.0))
}

// weakDimensions lists dimensions that are not clear, weakest first.
func weakDimensions(dims map[Dimension]DimensionScore) []Dimension {
	weak := []Dimension{}
	for _, d := range Dimensions {
		if dims[d].Status != StatusClear {
			weak = append(weak, d)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return dims[weak[i]].Score < dims[weak[j]].Score
	})
	return weak
}

func stdev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

func containsAny(lowered string, phrases []string) bool {
	for _, p := range phrases {
		if len(phraseSpans(lowered, p)) > 0 {
			return true
		}
	}
	return false
}

// countPhrases counts the text positions matched by any of phrases. Longer phrases
// claim their span first, so "introduced" and "introduce" or 购买 and 买了 never both
// count the same words.
func countPhrases(lowered string, phrases []string) int {
	ordered := slices.Clone(phrases)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(strings.TrimSuffix(ordered[i], stemMarker)) > len(strings.TrimSuffix(ordered[j], stemMarker))
	})

	var claimed [][2]int
	count := 0
	for _, p := range ordered {
		for _, span := range phraseSpans(lowered, p) {
			if overlapsAny(span, claimed) {
				continue
			}
			claimed = append(claimed, span)
			count++
		}
	}
	return count
}

func overlapsAny(span [2]int, claimed [][2]int) bool {
	for _, c := range claimed {
		if span[0] < c[1] && c[0] < span[1] {
			return true
		}
	}
	return false
}

// stemMarker ends a phrase whose word may continue, as in "frustrat*".
const stemMarker = "*"

// phraseSpans returns the byte ranges of non-overlapping occurrences of phrase in
// lowered. Han phrases match anywhere. Latin phrases must sit on word boundaries,
// allowing a plural "s", unless they end in stemMarker.
func phraseSpans(lowered, phrase string) [][2]int {
	stem := strings.HasSuffix(phrase, stemMarker)
	phrase = strings.TrimSuffix(phrase, stemMarker)
	if phrase == "" {
		return nil
	}
	latin := !hasHan(phrase)

	var spans [][2]int
	for offset := 0; offset < len(lowered); {
		i := strings.Index(lowered[offset:], phrase)
		if i < 0 {
			break
		}
		start := offset + i
		end := start + len(phrase)
		if latin {
			if start > 0 {
				prev, _ := utf8.DecodeLastRuneInString(lowered[:start])
				if isWordRune(prev) {
					offset = start + 1
					continue
				}
			}
			if !stem {
				if strings.HasPrefix(lowered[end:], "s") {
					if next, _ := utf8.DecodeRuneInString(lowered[end+1:]); !isWordRune(next) {
						end++
					}
				}
				if next, _ := utf8.DecodeRuneInString(lowered[end:]); isWordRune(next) {
					offset = start + 1
					continue
				}
			}
		}
		spans = append(spans, [2]int{start, end})
		offset = end
	}
	return spans
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', ';', '\n', '。', '！', '？', '；':
			return true
		}
		return false
	})

	sentences := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func snippet(sentence string) string {
	runes := []rune(strings.TrimSpace(sentence))
	if len(runes) > maxSnippetRunes {
		return string(runes[:maxSnippetRunes]) + "…"
	}
	return string(runes)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
