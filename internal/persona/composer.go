package persona

import (
	"fmt"
	"strings"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// Bucket is a coarse band of interest used to pick commentary.
type Bucket int

const (
	BucketWeak      Bucket = iota // below 50
	BucketCautious                // 50 to 64
	BucketPromising               // 65 to 79
	BucketStrong                  // 80 and above
)

// BucketFor maps a score to its commentary bucket.
func BucketFor(score float64) Bucket {
	switch {
	case score >= 80:
		return BucketStrong
	case score >= 65:
		return BucketPromising
	case score >= 50:
		return BucketCautious
	default:
		return BucketWeak
	}
}

// Emotion returns the emotion tag attached to a message at this score.
func Emotion(score float64) string {
	switch BucketFor(score) {
	case BucketStrong:
		return "excited"
	case BucketPromising:
		return "confident"
	case BucketCautious:
		return "neutral"
	default:
		return "skeptical"
	}
}

// Tier is one bucket of a playbook: a headline, three next steps and a reminder.
type Tier struct {
	Headline string
	Steps    [3]string
	Reminder string
}

// Playbook holds one Tier per Bucket, indexed by Bucket.
type Playbook [4]Tier

var defaultPlaybook = Playbook{
	BucketWeak: {
		Headline: "I can't see a clear opportunity here yet.",
		Steps: [3]string{
			"Name one specific person who has this problem today",
			"Write down what they currently do instead and what it costs them",
			"Rewrite the idea in one sentence without any buzzwords",
		},
		Reminder: "Come back when you have talked to real users.",
	},
	BucketCautious: {
		Headline: "There is something here, but it needs sharper focus.",
		Steps: [3]string{
			"Pick the single customer segment that feels the pain most",
			"Interview five of them about the last time it happened",
			"List the assumptions that must be true for this to work",
		},
		Reminder: "Evidence beats enthusiasm. Go collect some.",
	},
	BucketPromising: {
		Headline: "This is promising and worth a serious look.",
		Steps: [3]string{
			"Build the smallest version that delivers the core value",
			"Find three users willing to try it this month",
			"Track whether they come back without being asked",
		},
		Reminder: "Keep scope small until the signal is strong.",
	},
	BucketStrong: {
		Headline: "I'm genuinely excited about this one.",
		Steps: [3]string{
			"Secure a paying pilot customer before building more",
			"Document the metrics that prove the value",
			"Plan how you will reach the next hundred users",
		},
		Reminder: "Momentum matters. Move fast but measure everything.",
	},
}

var playbooks = map[string]Playbook{
	TechPioneerAlex: {
		BucketWeak: {
			Headline: "Technically I don't see a hard problem being solved.",
			Steps: [3]string{
				"Identify what is technically difficult about this",
				"Check whether an existing open-source tool already does it",
				"Sketch the data flow end to end",
			},
			Reminder: "Technology should serve a need, not the other way round.",
		},
		BucketCautious: {
			Headline: "The technical angle is plausible but unproven.",
			Steps: [3]string{
				"Prototype the riskiest component first",
				"Measure latency and cost on realistic data",
				"Decide what you will build versus buy",
			},
			Reminder: "A spike in a week tells you more than a month of slides.",
		},
		BucketPromising: {
			Headline: "The architecture here could really scale.",
			Steps: [3]string{
				"Define the core API and keep it small",
				"Automate the data pipeline before adding features",
				"Set up monitoring from the first deployment",
			},
			Reminder: "Ship the boring version first, then optimise.",
		},
		BucketStrong: {
			Headline: "This is the kind of technical bet I love.",
			Steps: [3]string{
				"Protect the core algorithm as your moat",
				"Hire or partner for the hardest engineering piece",
				"Publish a technical demo to attract early adopters",
			},
			Reminder: "Great technology still needs a great first customer.",
		},
	},
	BusinessGuruBeta: {
		BucketWeak: {
			Headline: "I don't see a business model yet.",
			Steps: [3]string{
				"Write down who pays and how much",
				"Estimate what it costs to acquire one customer",
				"Compare against two existing competitors",
			},
			Reminder: "Revenue is the only validation that cannot lie.",
		},
		BucketCautious: {
			Headline: "The business case is thin but fixable.",
			Steps: [3]string{
				"Test a price point with a landing page",
				"Pick one sales channel and ignore the rest",
				"Calculate your gross margin per unit",
			},
			Reminder: "Focus on one segment you can win outright.",
		},
		BucketPromising: {
			Headline: "I see a real path to revenue here.",
			Steps: [3]string{
				"Sign a letter of intent with a first customer",
				"Design a pricing tier that grows with usage",
				"Map the partners who already reach your buyers",
			},
			Reminder: "Strategy is choosing what not to do.",
		},
		BucketStrong: {
			Headline: "Strong business fundamentals. I'm in.",
			Steps: [3]string{
				"Lock in recurring revenue with annual contracts",
				"Build a repeatable sales playbook",
				"Plan the next market once the first one is profitable",
			},
			Reminder: "Growth without margin is just an expensive hobby.",
		},
	},
	InnovationMentorCharlie: {
		BucketWeak: {
			Headline: "I'm not feeling the human story behind this yet.",
			Steps: [3]string{
				"Describe the moment a user feels the problem",
				"Spend a day with someone who lives it",
				"Tell the idea as a story about one person",
			},
			Reminder: "People remember stories, not features.",
		},
		BucketCautious: {
			Headline: "There is a spark here worth nurturing.",
			Steps: [3]string{
				"Sketch the experience from first contact to delight",
				"Find a community that already gathers around this need",
				"Run a small workshop to co-design with users",
			},
			Reminder: "Stay curious and keep listening.",
		},
		BucketPromising: {
			Headline: "This could genuinely improve people's lives.",
			Steps: [3]string{
				"Design the first experience so it feels personal",
				"Invite early users to shape the roadmap",
				"Capture their stories as you go",
			},
			Reminder: "Emotion is a real competitive advantage.",
		},
		BucketStrong: {
			Headline: "I love this. It has heart and purpose.",
			Steps: [3]string{
				"Build a brand voice that matches the mission",
				"Grow the community before scaling the product",
				"Share your founder story openly",
			},
			Reminder: "Protect what makes it meaningful as you grow.",
		},
	},
	MarketInsightDelta: {
		BucketWeak: {
			Headline: "The market signal is weak.",
			Steps: [3]string{
				"Check search and social trends for this need",
				"Look for people already complaining about it online",
				"Find out who tried this before and why they failed",
			},
			Reminder: "No demand, no deal.",
		},
		BucketCautious: {
			Headline: "The market might be there, but it's crowded.",
			Steps: [3]string{
				"Pick a niche where the big players are weak",
				"Run a small paid campaign to test interest",
				"Define what makes your brand different",
			},
			Reminder: "Timing is everything. Watch the trend closely.",
		},
		BucketPromising: {
			Headline: "I see a trend you can ride.",
			Steps: [3]string{
				"Launch where your target consumers already hang out",
				"Partner with a creator who speaks to them",
				"Measure conversion, not just views",
			},
			Reminder: "Move before the window closes.",
		},
		BucketStrong: {
			Headline: "This could go viral. Let's go big.",
			Steps: [3]string{
				"Prepare supply for a demand spike",
				"Build referral mechanics into the product",
				"Own the category name before competitors do",
			},
			Reminder: "Speed wins markets.",
		},
	},
	InvestmentAdvisorEthan: {
		BucketWeak: {
			Headline: "The risk outweighs the return for me.",
			Steps: [3]string{
				"Quantify the downside if nobody buys",
				"List every cost you will carry before first revenue",
				"Find a way to test this for almost nothing",
			},
			Reminder: "Preserve capital until the evidence arrives.",
		},
		BucketCautious: {
			Headline: "Interesting, but the numbers need work.",
			Steps: [3]string{
				"Build a simple unit economics model",
				"Identify the milestone that would de-risk the next round",
				"Check compliance requirements early",
			},
			Reminder: "Cash flow is oxygen. Track it weekly.",
		},
		BucketPromising: {
			Headline: "The return profile looks reasonable.",
			Steps: [3]string{
				"Show three months of real customer spending",
				"Reduce fixed costs wherever possible",
				"Prepare a clear use-of-funds plan",
			},
			Reminder: "Disciplined growth beats reckless scale.",
		},
		BucketStrong: {
			Headline: "This is a sound investment case.",
			Steps: [3]string{
				"Formalise governance and reporting now",
				"Secure funding with sensible valuation terms",
				"Keep a reserve for the unexpected",
			},
			Reminder: "Sustainable returns compound. Hype does not.",
		},
	},
}

// PlaybookFor returns the persona's playbook, or the generic default for unknown ids.
func PlaybookFor(personaID string) Playbook {
	if pb, ok := playbooks[personaID]; ok {
		return pb
	}
	return defaultPlaybook
}

// Compose renders commentary for a persona at the given score. Highlights, when
// present, are quoted after the headline.
func Compose(p bidding.Persona, score float64, highlights []string) string {
	tier := PlaybookFor(p.ID)[BucketFor(score)]

	var b strings.Builder
	b.WriteString(tier.Headline)
	if len(highlights) > 0 {
		fmt.Fprintf(&b, "\nWhat stands out: %s.", strings.Join(highlights, "; "))
	}
	for i, step := range tier.Steps {
		fmt.Fprintf(&b, "\n%d. %s", i+1, step)
	}
	b.WriteString("\n")
	b.WriteString(tier.Reminder)

	return b.String()
}

// Highlights returns the persona keywords found in ideaText, at most limit of them.
func Highlights(p bidding.Persona, ideaText string, limit int) []string {
	lowered := strings.ToLower(ideaText)
	var found []string
	for _, kw := range append(append([]string{}, p.PersonalityKeywords...), p.TriggerKeywords...) {
		if len(found) == limit {
			break
		}
		if containsKeyword(lowered, kw) {
			found = append(found, kw)
		}
	}
	return found
}
