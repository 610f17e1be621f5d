package governance

import "strconv"

// Metrics are the aggregate figures shown on the metrics panel.
type Metrics struct {
	TotalTokenSupply        float64 `json:"total_token_supply"`
	TransactionVolume       float64 `json:"transaction_volume"`
	InflationRate           float64 `json:"inflation_rate"`
	ActiveProposals         int     `json:"active_proposals"`
	TotalAgents             int     `json:"total_agents"`
	ActiveAgents            int     `json:"active_agents"`
	AverageReputation       float64 `json:"average_reputation"`
	GovernanceParticipation float64 `json:"governance_participation"`
}

// NormalizeMetrics builds Metrics from a raw record. A nil record yields
// all-zero metrics.
func NormalizeMetrics(rec Record) Metrics {
	rec = rec.Flatten("state")

	var m Metrics
	m.TotalTokenSupply, _ = rec.Float("total_token_supply", "totalTokenSupply")
	m.TransactionVolume, _ = rec.Float("transaction_volume", "transactionVolume")
	m.InflationRate, _ = rec.Float("inflation_rate", "inflationRate")
	m.ActiveProposals = count(rec.Float("active_proposals", "activeProposals"))
	m.TotalAgents = count(rec.Float("total_agents", "totalAgents"))
	m.ActiveAgents = count(rec.Float("active_agents", "activeAgents"))
	m.AverageReputation, _ = rec.Float("average_reputation", "averageReputation")
	m.GovernanceParticipation, _ = rec.Float("governance_participation", "governanceParticipation")
	return m
}

// Merge fills the agent counters of m that are zero from derived.
func (m Metrics) Merge(derived Metrics) Metrics {
	if m.TotalAgents == 0 {
		m.TotalAgents = derived.TotalAgents
	}
	if m.ActiveAgents == 0 {
		m.ActiveAgents = derived.ActiveAgents
	}
	if m.AverageReputation == 0 {
		m.AverageReputation = derived.AverageReputation
	}
	return m
}

// FormatNumber abbreviates large values: millions with two decimals,
// thousands with one, everything else rounded to an integer.
func FormatNumber(v float64) string {
	switch {
	case v >= 1_000_000:
		return strconv.FormatFloat(v/1_000_000, 'f', 2, 64) + "M"
	case v >= 1_000:
		return strconv.FormatFloat(v/1_000, 'f', 1, 64) + "K"
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func count(v float64, ok bool) int {
	if !ok || v < 0 {
		return 0
	}
	return int(v)
}
