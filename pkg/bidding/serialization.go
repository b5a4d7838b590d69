package bidding

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Scalar session fields are stored as individual hash fields; maps and the report
// are JSON-encoded into single fields. Messages live in their own LIST and are not
// part of the hash.

// SessionToHash converts a Session to a Redis hash. Messages are not included.
func SessionToHash(s *Session) (map[string]interface{}, error) {
	bids := s.CurrentBids
	if bids == nil {
		bids = map[string]int{}
	}
	bidsJSON, err := json.Marshal(bids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal current_bids: %w", err)
	}

	hash := map[string]interface{}{
		"id":            s.ID,
		"idea_id":       s.IdeaID,
		"idea_text":     s.IdeaText,
		"theme":         s.Theme,
		"phase":         string(s.Phase),
		"round":         s.Round,
		"max_rounds":    s.MaxRounds,
		"current_bids":  string(bidsJSON),
		"status":        string(s.Status),
		"generation":    strconv.FormatUint(s.Generation, 10),
		"created_at_ms": s.CreatedAt.UnixMilli(),
		"cancel_cause":  s.CancelCause,
	}

	if s.EndedAt != nil {
		hash["ended_at_ms"] = s.EndedAt.UnixMilli()
	} else {
		hash["ended_at_ms"] = int64(0)
	}

	if s.Report != nil {
		reportJSON, err := json.Marshal(s.Report)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		hash["report"] = string(reportJSON)
	} else {
		hash["report"] = ""
	}

	return hash, nil
}

// HashToSession converts a Redis hash back into a Session with an empty message log.
func HashToSession(hash map[string]string) (*Session, error) {
	round, err := strconv.Atoi(hash["round"])
	if err != nil {
		return nil, fmt.Errorf("invalid round field: %w", err)
	}

	maxRounds, err := strconv.Atoi(hash["max_rounds"])
	if err != nil {
		return nil, fmt.Errorf("invalid max_rounds field: %w", err)
	}

	generation, _ := strconv.ParseUint(hash["generation"], 10, 64)

	bids := map[string]int{}
	if bidsJSON := hash["current_bids"]; bidsJSON != "" {
		if err := json.Unmarshal([]byte(bidsJSON), &bids); err != nil {
			return nil, fmt.Errorf("failed to unmarshal current_bids: %w", err)
		}
	}

	var report *Report
	if reportJSON := hash["report"]; reportJSON != "" {
		report = &Report{}
		if err := json.Unmarshal([]byte(reportJSON), report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	endedAtMs, _ := strconv.ParseInt(hash["ended_at_ms"], 10, 64)

	session := &Session{
		ID:          hash["id"],
		IdeaID:      hash["idea_id"],
		IdeaText:    hash["idea_text"],
		Theme:       hash["theme"],
		Phase:       Phase(hash["phase"]),
		Round:       round,
		MaxRounds:   maxRounds,
		CurrentBids: bids,
		Messages:    []Message{},
		Report:      report,
		Status:      SessionStatus(hash["status"]),
		Generation:  generation,
		CreatedAt:   time.UnixMilli(createdAtMs).UTC(),
		CancelCause: hash["cancel_cause"],
	}
	if endedAtMs > 0 {
		ended := time.UnixMilli(endedAtMs).UTC()
		session.EndedAt = &ended
	}

	return session, nil
}

// Clone returns a deep copy of the session safe to hand to other goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.CurrentBids = make(map[string]int, len(s.CurrentBids))
	for k, v := range s.CurrentBids {
		out.CurrentBids[k] = v
	}
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	for i := range out.Messages {
		if v := out.Messages[i].BidValue; v != nil {
			bid := *v
			out.Messages[i].BidValue = &bid
		}
	}
	if s.Report != nil {
		report := *s.Report
		report.FinalBids = make(map[string]int, len(s.Report.FinalBids))
		for k, v := range s.Report.FinalBids {
			report.FinalBids[k] = v
		}
		out.Report = &report
	}
	if s.EndedAt != nil {
		ended := *s.EndedAt
		out.EndedAt = &ended
	}
	return &out
}
