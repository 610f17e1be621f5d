package governance

import (
	"testing"
	"time"
)

func TestNormalizeProposal(t *testing.T) {
	p := NormalizeProposal(Record{
		"id":         12,
		"event_type": "Raise quorum",
		"details":    `{"status":"active","votes_for":30,"votes_against":10,"total_voting_power":100,"category":"technical"}`,
		"timestamp":  "2025-01-02T00:00:00Z",
	})
	if p.ID != "12" || p.Title != "Raise quorum" {
		t.Errorf("ID, Title = %q, %q", p.ID, p.Title)
	}
	if p.Status != ProposalActive || p.Category != CategoryTechnical {
		t.Errorf("Status, Category = %q, %q", p.Status, p.Category)
	}
	if p.VotesFor != 30 || p.VotesAgainst != 10 || p.VotesAbstain != 0 {
		t.Errorf("votes = %v/%v/%v", p.VotesFor, p.VotesAgainst, p.VotesAbstain)
	}
	if p.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestNormalizeProposalDefaults(t *testing.T) {
	p := NormalizeProposal(Record{"status": "weird", "category": "unknown"})
	if p.Status != ProposalPending {
		t.Errorf("Status = %q, want pending", p.Status)
	}
	if p.Category != CategoryGovernance {
		t.Errorf("Category = %q, want governance", p.Category)
	}
}

func TestProposalPercentages(t *testing.T) {
	p := Proposal{VotesFor: 25, VotesAgainst: 50, VotesAbstain: 5, TotalVotingPower: 200}
	f, a, ab := p.Percentages()
	if f != 12.5 || a != 25 || ab != 2.5 {
		t.Errorf("Percentages = %v, %v, %v", f, a, ab)
	}
	f, a, ab = Proposal{VotesFor: 3}.Percentages()
	if f != 0 || a != 0 || ab != 0 {
		t.Errorf("Percentages with zero power = %v, %v, %v, want zeros", f, a, ab)
	}
}

func TestProposalTimeRemaining(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		ends time.Time
		want string
	}{
		{time.Time{}, "No deadline"},
		{now.Add(50 * time.Hour), "2d 2h remaining"},
		{now.Add(5*time.Hour + 10*time.Minute), "5h remaining"},
		{now.Add(20 * time.Minute), "Ending soon"},
		{now.Add(-time.Hour), "Ending soon"},
	}
	for _, tt := range tests {
		if got := (Proposal{EndsAt: tt.ends}).TimeRemaining(now); got != tt.want {
			t.Errorf("TimeRemaining(%v) = %q, want %q", tt.ends, got, tt.want)
		}
	}
}

func TestVoteType(t *testing.T) {
	v, ok := ParseVoteType("Against")
	if !ok || v != VoteAgainst {
		t.Fatalf("ParseVoteType = %q, %v", v, ok)
	}
	if v.Column() != "votes_against" {
		t.Errorf("Column = %q", v.Column())
	}
	if _, ok := ParseVoteType("maybe"); ok {
		t.Error("ParseVoteType(maybe) ok, want rejected")
	}
	p := VoteAbstain.Apply(Proposal{VotesAbstain: 1})
	if p.VotesAbstain != 2 {
		t.Errorf("VotesAbstain = %v, want 2", p.VotesAbstain)
	}
}

func TestNormalizeRuleChange(t *testing.T) {
	r := NormalizeRuleChange(Record{
		"id":         "r1",
		"event_type": "Fee update",
		"created_at": "2025-02-01T10:00:00Z",
		"details":    map[string]any{"type": "enacted", "impact": "high", "votes": map[string]any{"for": 10, "against": 2}},
	})
	if r.Title != "Fee update" || r.Type != RuleEnacted || r.Impact != ImpactHigh {
		t.Errorf("rule = %+v", r)
	}
	if r.Votes == nil || r.Votes.For != 10 || r.Votes.Against != 2 {
		t.Errorf("Votes = %+v", r.Votes)
	}
	d := NormalizeRuleChange(Record{})
	if d.Type != RuleProposed || d.Impact != ImpactLow || d.Votes != nil {
		t.Errorf("defaults = %+v", d)
	}
}

func TestNormalizeConflictFromTransaction(t *testing.T) {
	c := NormalizeConflict(Record{
		"id":               5,
		"transaction_type": "transfer",
		"from_agent":       "a",
		"to_agent":         "b",
	})
	if c.ID != "5" || c.Title != "transfer" {
		t.Errorf("ID, Title = %q, %q", c.ID, c.Title)
	}
	if len(c.Parties) != 2 || c.Parties[0] != "a" || c.Parties[1] != "b" {
		t.Errorf("Parties = %v", c.Parties)
	}
	if c.Status != ConflictOpen || c.Severity != SeverityMedium {
		t.Errorf("Status, Severity = %q, %q", c.Status, c.Severity)
	}
}

func TestNormalizeConflictLogs(t *testing.T) {
	c := NormalizeConflict(Record{
		"status":   "resolved",
		"severity": "critical",
		"logs":     `[{"actor":"mediator","action":"ruled","timestamp":"2025-01-01T00:00:00Z"}, 3]`,
	})
	if c.Status != ConflictResolved || c.Severity != SeverityCritical {
		t.Errorf("Status, Severity = %q, %q", c.Status, c.Severity)
	}
	if len(c.Logs) != 1 || c.Logs[0].Actor != "mediator" {
		t.Errorf("Logs = %+v", c.Logs)
	}
}
