package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// ReportBuilder turns a finished session into its report. External templates plug in
// here; DefaultReportBuilder covers the numbers every template needs.
type ReportBuilder interface {
	Build(s *bidding.Session, m *maturity.Result) (*bidding.Report, error)
}

// DefaultReportBuilder summarises final bids and attaches the maturity assessment.
type DefaultReportBuilder struct{}

// Build implements ReportBuilder.
// The winner is the highest final bid; ties go to the lexically smallest persona id.
func (DefaultReportBuilder) Build(s *bidding.Session, m *maturity.Result) (*bidding.Report, error) {
	report := &bidding.Report{
		FinalBids:    make(map[string]int, len(s.CurrentBids)),
		MessageCount: len(s.Messages),
	}

	ids := make([]string, 0, len(s.CurrentBids))
	for id := range s.CurrentBids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sum, bidders := 0, 0
	for _, id := range ids {
		bid := s.CurrentBids[id]
		report.FinalBids[id] = bid
		if bid <= 0 {
			continue
		}
		sum += bid
		bidders++
		if bid > report.HighestBid {
			report.HighestBid = bid
			report.WinningPersona = id
		}
	}
	if bidders > 0 {
		report.AverageBid = float64(sum) / float64(bidders)
	}

	for i := range s.Messages {
		if s.Messages[i].Fallback {
			report.FallbackCount++
		}
	}

	if m != nil {
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal maturity result: %w", err)
		}
		report.MaturityTotal = m.TotalScore
		report.MaturityLevel = string(m.Level)
		report.MaturityPayload = string(payload)
	}

	report.Summary = summarize(report)
	return report, nil
}

func summarize(r *bidding.Report) string {
	if r.HighestBid == 0 {
		return fmt.Sprintf("No persona placed a bid. Maturity %.1f (%s).", r.MaturityTotal, r.MaturityLevel)
	}
	return fmt.Sprintf("%s won with %d (average %.1f across bidders). Maturity %.1f (%s).",
		r.WinningPersona, r.HighestBid, r.AverageBid, r.MaturityTotal, r.MaturityLevel)
}

// finish scores the dialogue, attaches the report and completes the session.
// Must be called with r.mu held.
func (e *Engine) finish(r *run) {
	s := r.session

	result := e.maturity.Score(maturity.Input{Messages: s.Messages, Bids: s.CurrentBids})
	report, err := e.reports.Build(s, result)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID).Msg("failed to build report")
		report, _ = DefaultReportBuilder{}.Build(s, nil)
	}

	now := e.clock.Now().UTC()
	s.Report = report
	s.Status = bidding.SessionStatusCompleted
	s.EndedAt = &now

	e.persist(r)
	e.publish(r, &bidding.Event{
		Type:  bidding.EventSessionComplete,
		Phase: bidding.PhaseResult,
		Data: map[string]any{
			"highest_bid":     report.HighestBid,
			"winning_persona": report.WinningPersona,
			"average_bid":     report.AverageBid,
			"maturity_total":  report.MaturityTotal,
			"maturity_level":  report.MaturityLevel,
		},
	})

	if e.archiver != nil {
		if err := e.archiver.Record(context.Background(), s.Clone()); err != nil {
			log.Error().Err(err).Str("session_id", s.ID).Msg("failed to archive session")
		}
	}

	e.logEvent("session_completed", map[string]interface{}{
		"session_id":      s.ID,
		"highest_bid":     report.HighestBid,
		"winning_persona": report.WinningPersona,
		"messages":        report.MessageCount,
		"fallbacks":       report.FallbackCount,
		"maturity_level":  report.MaturityLevel,
	})

	r.cancel()
	e.forget(s.ID, r)
}
