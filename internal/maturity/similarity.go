package maturity

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	similarityKeyLength   = 50
	similarityMaxDistance = 3
)

// defaultClusters groups phrasings that mean the same thing. Two evidence items that
// both mention a phrase from the same cluster count once.
var defaultClusters = [][]string{
	{"target user", "target customer", "customer segment", "user persona", "目标用户", "用户画像", "客户群体"},
	{"pain point", "core problem", "real problem", "痛点", "核心问题"},
	{"business model", "revenue model", "monetization", "monetisation", "商业模式", "盈利模式", "变现"},
	{"use case", "usage scenario", "use scenario", "使用场景", "应用场景"},
	{"competitive advantage", "moat", "differentiation", "竞争优势", "护城河", "差异化"},
}

// SimilarityEngine decides whether two evidence strings say the same thing, so
// repeating a point cannot inflate a dimension's score.
type SimilarityEngine struct {
	clusters [][]string
}

// NewSimilarityEngine returns an engine using the built-in synonym clusters.
func NewSimilarityEngine() *SimilarityEngine {
	return &SimilarityEngine{clusters: defaultClusters}
}

// Normalize lowercases s, collapses whitespace and keeps the first 50 runes.
func Normalize(s string) string {
	key := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	runes := []rune(key)
	if len(runes) > similarityKeyLength {
		runes = runes[:similarityKeyLength]
	}
	return string(runes)
}

// IsDuplicate reports whether a and b collapse into one dedup unit.
func (e *SimilarityEngine) IsDuplicate(a, b string) bool {
	ka, kb := Normalize(a), Normalize(b)
	if levenshtein.ComputeDistance(ka, kb) <= similarityMaxDistance {
		return true
	}

	ca := e.cluster(strings.ToLower(a))
	return ca >= 0 && ca == e.cluster(strings.ToLower(b))
}

func (e *SimilarityEngine) cluster(lowered string) int {
	for i, phrases := range e.clusters {
		for _, phrase := range phrases {
			if strings.Contains(lowered, phrase) {
				return i
			}
		}
	}
	return -1
}

// Dedup keeps the first item of every dedup unit, preserving order.
func (e *SimilarityEngine) Dedup(items []string) []string {
	var unique []string
	for _, item := range items {
		duplicate := false
		for _, kept := range unique {
			if e.IsDuplicate(item, kept) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, item)
		}
	}
	return unique
}
