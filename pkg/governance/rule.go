package governance

import (
	"strings"
	"time"
)

// RuleChangeType is the stage a rule change has reached.
type RuleChangeType string

// Rule change stages.
const (
	RuleProposed RuleChangeType = "proposed"
	RuleVoting   RuleChangeType = "voting"
	RuleEnacted  RuleChangeType = "enacted"
	RuleRejected RuleChangeType = "rejected"
)

// Impact grades how far-reaching a rule change is.
type Impact string

// Impact grades.
const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// RuleVotes is the tally attached to a rule change.
type RuleVotes struct {
	For     float64 `json:"for"`
	Against float64 `json:"against"`
}

// RuleChange is one entry of the rule timeline.
type RuleChange struct {
	ID          string         `json:"id"`
	ProposalID  string         `json:"proposal_id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        RuleChangeType `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	Votes       *RuleVotes     `json:"votes,omitempty"`
	Impact      Impact         `json:"impact"`
}

// NormalizeRuleChange builds a RuleChange from a raw record.
func NormalizeRuleChange(rec Record) RuleChange {
	rec = rec.Flatten("details")

	r := RuleChange{
		Title:  "Rule change",
		Type:   RuleProposed,
		Impact: ImpactLow,
	}
	r.ID, _ = rec.String("id", "rule_id")
	r.ProposalID, _ = rec.String("proposal_id", "proposalId")
	if title, ok := rec.String("title", "rule", "event_type"); ok {
		r.Title = title
	}
	r.Description, _ = rec.String("description")
	if t, ok := rec.String("type", "status"); ok {
		switch RuleChangeType(strings.ToLower(t)) {
		case RuleVoting:
			r.Type = RuleVoting
		case RuleEnacted:
			r.Type = RuleEnacted
		case RuleRejected:
			r.Type = RuleRejected
		}
	}
	r.Timestamp, _ = rec.Time("timestamp", "created_at", "time", "datetime")
	if votes, ok := rec.Object("votes"); ok {
		r.Votes = &RuleVotes{
			For:     nonNegative(votes.Float("for")),
			Against: nonNegative(votes.Float("against")),
		}
	} else if f, ok := rec.Float("votes_for"); ok {
		r.Votes = &RuleVotes{For: nonNegative(f, true), Against: nonNegative(rec.Float("votes_against"))}
	}
	if imp, ok := rec.String("impact"); ok {
		switch Impact(strings.ToLower(imp)) {
		case ImpactMedium:
			r.Impact = ImpactMedium
		case ImpactHigh:
			r.Impact = ImpactHigh
		}
	}
	return r
}
