package governance

import (
	"fmt"
	"strings"
	"time"
)

// ProposalStatus is the voting state of a proposal.
type ProposalStatus string

// Proposal statuses.
const (
	ProposalActive   ProposalStatus = "active"
	ProposalPassed   ProposalStatus = "passed"
	ProposalRejected ProposalStatus = "rejected"
	ProposalPending  ProposalStatus = "pending"
)

// ParseProposalStatus maps s to a known status, defaulting to pending.
func ParseProposalStatus(s string) ProposalStatus {
	switch ProposalStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ProposalActive:
		return ProposalActive
	case ProposalPassed:
		return ProposalPassed
	case ProposalRejected:
		return ProposalRejected
	}
	return ProposalPending
}

// Category is the policy area a proposal belongs to.
type Category string

// Proposal categories.
const (
	CategoryMonetary   Category = "monetary"
	CategoryGovernance Category = "governance"
	CategoryTechnical  Category = "technical"
	CategorySocial     Category = "social"
)

// ParseCategory maps s to a known category, defaulting to governance.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryMonetary:
		return CategoryMonetary
	case CategoryTechnical:
		return CategoryTechnical
	case CategorySocial:
		return CategorySocial
	}
	return CategoryGovernance
}

// Proposal is a governance proposal open for (or closed to) voting.
type Proposal struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Proposer         string         `json:"proposer"`
	Status           ProposalStatus `json:"status"`
	VotesFor         float64        `json:"votes_for"`
	VotesAgainst     float64        `json:"votes_against"`
	VotesAbstain     float64        `json:"votes_abstain"`
	TotalVotingPower float64        `json:"total_voting_power"`
	CreatedAt        time.Time      `json:"created_at"`
	EndsAt           time.Time      `json:"ends_at,omitzero"`
	Category         Category       `json:"category"`
}

// NormalizeProposal builds a Proposal from a raw record. Rows from
// governance_log carry their payload in a JSON "details" column, which is
// flattened underneath the top-level columns.
func NormalizeProposal(rec Record) Proposal {
	rec = rec.Flatten("details")

	p := Proposal{
		Title:    "Untitled proposal",
		Status:   ProposalPending,
		Category: CategoryGovernance,
	}
	p.ID, _ = rec.String("id", "proposal_id")
	if title, ok := rec.String("title", "event_type"); ok {
		p.Title = title
	}
	p.Description, _ = rec.String("description")
	p.Proposer, _ = rec.String("proposer", "agent_id", "created_by")
	if s, ok := rec.String("status"); ok {
		p.Status = ParseProposalStatus(s)
	}
	p.VotesFor = nonNegative(rec.Float("votes_for", "votesFor"))
	p.VotesAgainst = nonNegative(rec.Float("votes_against", "votesAgainst"))
	p.VotesAbstain = nonNegative(rec.Float("votes_abstain", "votesAbstain"))
	p.TotalVotingPower = nonNegative(rec.Float("total_voting_power", "totalVotingPower"))
	p.CreatedAt, _ = rec.Time("created_at", "createdAt", "timestamp")
	p.EndsAt, _ = rec.Time("ends_at", "endsAt")
	if c, ok := rec.String("category"); ok {
		p.Category = ParseCategory(c)
	}
	return p
}

// TotalVotes returns the number of votes cast on the proposal.
func (p Proposal) TotalVotes() float64 {
	return p.VotesFor + p.VotesAgainst + p.VotesAbstain
}

// Percentages returns the for/against/abstain shares of the total voting
// power, in percent. All shares are zero when the voting power is zero.
func (p Proposal) Percentages() (forPct, againstPct, abstainPct float64) {
	if p.TotalVotingPower <= 0 {
		return 0, 0, 0
	}
	scale := 100 / p.TotalVotingPower
	return p.VotesFor * scale, p.VotesAgainst * scale, p.VotesAbstain * scale
}

// TimeRemaining renders the time left until the proposal closes.
func (p Proposal) TimeRemaining(now time.Time) string {
	if p.EndsAt.IsZero() {
		return "No deadline"
	}
	hours := int(p.EndsAt.Sub(now).Hours())
	days := hours / 24
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh remaining", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh remaining", hours)
	}
	return "Ending soon"
}

// VoteType is a ballot choice.
type VoteType string

// Ballot choices.
const (
	VoteFor     VoteType = "for"
	VoteAgainst VoteType = "against"
	VoteAbstain VoteType = "abstain"
)

// ParseVoteType validates a ballot choice.
func ParseVoteType(s string) (VoteType, bool) {
	switch v := VoteType(strings.ToLower(strings.TrimSpace(s))); v {
	case VoteFor, VoteAgainst, VoteAbstain:
		return v, true
	}
	return "", false
}

// Column returns the counter column the vote increments.
func (v VoteType) Column() string {
	return "votes_" + string(v)
}

// Apply returns p with the vote counted.
func (v VoteType) Apply(p Proposal) Proposal {
	switch v {
	case VoteFor:
		p.VotesFor++
	case VoteAgainst:
		p.VotesAgainst++
	case VoteAbstain:
		p.VotesAbstain++
	}
	return p
}

func nonNegative(v float64, ok bool) float64 {
	if !ok || v < 0 {
		return 0
	}
	return v
}
