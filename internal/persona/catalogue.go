// Package persona holds the simulated expert roster and the rules each persona uses
// to react to an idea: how interested it is, how much it bids and what it says.
package persona

import (
	"fmt"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// Built-in persona ids.
const (
	TechPioneerAlex         = "tech-pioneer-alex"
	BusinessGuruBeta        = "business-guru-beta"
	InnovationMentorCharlie = "innovation-mentor-charlie"
	MarketInsightDelta      = "market-insight-delta"
	InvestmentAdvisorEthan  = "investment-advisor-ethan"
)

// Default returns the built-in roster in its fixed speaking order.
// Keywords are bilingual so Chinese and English idea text score alike.
func Default() []bidding.Persona {
	return []bidding.Persona{
		{
			ID:    TechPioneerAlex,
			Name:  "Alex",
			Title: "Tech Pioneer",
			PersonalityKeywords: []string{
				"technology", "技术", "innovation", "创新", "algorithm", "算法",
				"architecture", "架构", "data", "数据", "automation", "自动化",
			},
			TriggerKeywords: []string{
				"ai", "人工智能", "machine learning", "机器学习", "api", "cloud", "云",
				"open source", "开源", "scalable", "可扩展", "software", "软件", "sensor", "传感器",
			},
			BiddingStyle:    bidding.StyleAnalytical,
			PrimaryProvider: "deepseek",
		},
		{
			ID:    BusinessGuruBeta,
			Name:  "Beta",
			Title: "Business Guru",
			PersonalityKeywords: []string{
				"business", "商业", "revenue", "收入", "profit", "利润", "market", "市场",
				"strategy", "战略", "growth", "增长", "customer", "客户",
			},
			TriggerKeywords: []string{
				"subscription", "订阅", "pricing", "定价", "b2b", "saas", "channel", "渠道",
				"scale", "规模", "competition", "竞争", "margin", "毛利", "partner", "合作",
			},
			BiddingStyle:    bidding.StyleStrategic,
			PrimaryProvider: "qwen",
		},
		{
			ID:    InnovationMentorCharlie,
			Name:  "Charlie",
			Title: "Innovation Mentor",
			PersonalityKeywords: []string{
				"creative", "创意", "design", "设计", "experience", "体验", "community", "社区",
				"education", "教育", "social", "社会", "story", "故事",
			},
			TriggerKeywords: []string{
				"user", "用户", "emotion", "情感", "culture", "文化", "art", "艺术",
				"wellbeing", "健康", "student", "学生", "family", "家庭", "local", "本地",
			},
			BiddingStyle:    bidding.StyleEmotional,
			PrimaryProvider: "zhipu",
		},
		{
			ID:    MarketInsightDelta,
			Name:  "Delta",
			Title: "Market Insight Analyst",
			PersonalityKeywords: []string{
				"market", "市场", "trend", "趋势", "consumer", "消费者", "brand", "品牌",
				"viral", "爆款", "retail", "零售", "demand", "需求",
			},
			TriggerKeywords: []string{
				"social media", "社交媒体", "e-commerce", "电商", "gen z", "年轻人",
				"marketing", "营销", "influencer", "网红", "delivery", "外卖", "store", "门店",
			},
			BiddingStyle:    bidding.StyleAggressive,
			PrimaryProvider: "moonshot",
		},
		{
			ID:    InvestmentAdvisorEthan,
			Name:  "Ethan",
			Title: "Investment Advisor",
			PersonalityKeywords: []string{
				"investment", "投资", "risk", "风险", "return", "回报", "cash flow", "现金流",
				"valuation", "估值", "sustainable", "可持续", "cost", "成本",
			},
			TriggerKeywords: []string{
				"profit", "盈利", "compliance", "合规", "funding", "融资", "roi",
				"unit economics", "单位经济", "waste", "浪费", "saving", "节省", "paid", "付费",
			},
			BiddingStyle:    bidding.StyleConservative,
			PrimaryProvider: "qwen",
		},
	}
}

// Merge overlays overrides onto base. An override with an existing id replaces that
// persona in place; new ids are appended in the order given.
func Merge(base, overrides []bidding.Persona) ([]bidding.Persona, error) {
	merged := make([]bidding.Persona, len(base))
	copy(merged, base)

	index := make(map[string]int, len(merged))
	for i, p := range merged {
		index[p.ID] = i
	}

	for _, p := range overrides {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid persona override: %w", err)
		}
		if i, ok := index[p.ID]; ok {
			merged[i] = p
			continue
		}
		index[p.ID] = len(merged)
		merged = append(merged, p)
	}

	return merged, nil
}

// Find returns the persona with id from roster.
func Find(roster []bidding.Persona, id string) (bidding.Persona, bool) {
	for _, p := range roster {
		if p.ID == id {
			return p, true
		}
	}
	return bidding.Persona{}, false
}
