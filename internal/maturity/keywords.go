package maturity

// Phrase sets follow the Mom Test: compliments, generalities and promises about the
// future are weak evidence; past behaviour, real spending and verifiable facts are strong.

var complimentPhrases = []string{
	"great idea", "love it", "love this idea", "amazing idea", "awesome", "brilliant idea",
	"sounds great", "so cool", "太棒了", "好主意", "很好的想法", "非常棒", "真厉害", "太酷了",
}

var generalityPhrases = []string{
	"always", "never", "everyone", "everybody", "usually", "in general", "generally",
	"most people", "all people", "总是", "从不", "所有人", "大家都", "一般来说", "通常",
}

var futurePromisePhrases = []string{
	"would buy", "would pay", "would use", "will definitely", "going to", "in the future",
	"someday", "might", "将来", "以后会", "会考虑", "可能会", "打算",
}

// signalCategory is a class of strong evidence counted across the dialogue.
type signalCategory int

const (
	signalSpecificPast signalCategory = iota
	signalRealSpending
	signalPainPoint
	signalUserIntroduction
	signalVerifiableEvidence
)

// Latin phrases match whole words with an optional plural "s". A trailing "*" marks a
// stem that matches any word it starts.
var signalKeywords = map[signalCategory][]string{
	signalSpecificPast: {
		"last week", "last month", "last year", "yesterday", "ago", "last time",
		"上周", "上个月", "去年", "昨天", "上次",
	},
	signalRealSpending: {
		"paid", "spent", "spending", "bought", "purchased", "invoice", "subscribed",
		"付费", "花了", "花费", "购买", "买了", "订阅了",
	},
	signalPainPoint: {
		"pain", "frustrat*", "struggl*", "wast*", "hassle", "difficult*",
		"痛点", "麻烦", "困难", "浪费", "头疼",
	},
	signalUserIntroduction: {
		"introduce", "introduced", "referred", "referral", "connect you", "intro to",
		"介绍", "推荐", "引荐",
	},
	signalVerifiableEvidence: {
		"data shows", "survey", "interviewed", "contract", "letter of intent", "pilot",
		"receipt", "signed", "数据显示", "调研", "访谈", "合同", "试点", "签约",
	},
}

// dimensionProfile names the words that make a message relevant to a dimension, and
// the words that mark it as a concern or as praise.
type dimensionProfile struct {
	topic   []string
	concern []string
	praise  []string
}

var dimensionProfiles = map[Dimension]dimensionProfile{
	TargetCustomer: {
		topic: []string{
			"customer", "user", "segment", "audience", "persona", "who",
			"客户", "用户", "人群", "画像",
		},
		concern: []string{
			"unclear customer", "unclear user", "too broad", "who is the customer", "who will use",
			"not sure who", "vague audience", "用户不明确", "目标用户不清", "人群太宽", "用户画像模糊",
		},
		praise: []string{
			"clear target", "well-defined segment", "specific customer", "clear customer", "target user",
			"目标用户明确", "用户清晰", "精准",
		},
	},
	DemandScenario: {
		topic: []string{
			"scenario", "use case", "when", "situation", "demand", "need",
			"场景", "需求", "情况",
		},
		concern: []string{
			"no real demand", "nice to have", "unclear scenario", "edge case", "rarely needed",
			"not a real need", "伪需求", "场景不清", "需求不强",
		},
		praise: []string{
			"real demand", "must have", "frequent need", "daily use", "clear scenario", "use case",
			"刚需", "高频", "场景清晰",
		},
	},
	CoreValue: {
		topic: []string{
			"value", "benefit", "differen*", "advantage", "unique", "problem",
			"价值", "优势", "独特", "问题",
		},
		concern: []string{
			"no differentiation", "already exists", "me too", "copycat", "weak value", "easy to copy",
			"没有差异", "已经有了", "同质化", "容易复制",
		},
		praise: []string{
			"unique value", "clear value", "strong advantage", "solves a real problem", "moat", "differentiation",
			"核心价值", "独特优势", "护城河",
		},
	},
	BusinessModel: {
		topic: []string{
			"revenue", "pricing", "price", "pay", "monetiz*", "margin", "business model", "cost",
			"收入", "定价", "付费", "盈利", "成本", "商业模式",
		},
		concern: []string{
			"no revenue", "unclear pricing", "how will it make money", "who pays", "thin margin", "too expensive",
			"不清楚怎么赚钱", "盈利模式不清", "利润太薄", "成本太高",
		},
		praise: []string{
			"clear pricing", "recurring revenue", "healthy margin", "willing to pay", "profitable", "business model",
			"定价清晰", "持续收入", "愿意付费", "盈利模式",
		},
	},
	Credibility: {
		topic: []string{
			"evidence", "proof", "data", "validated", "tested", "team", "traction", "experience",
			"证据", "数据", "验证", "团队", "经验",
		},
		concern: []string{
			"no evidence", "unproven", "just a guess", "no data", "not validated", "no traction",
			"没有证据", "没有数据", "未验证", "只是猜测",
		},
		praise: []string{
			"proven", "validated", "real traction", "strong team", "track record", "pilot results",
			"已验证", "有数据", "团队强", "成功案例",
		},
	},
}
