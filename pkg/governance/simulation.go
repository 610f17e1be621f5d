package governance

import (
	"time"

	"github.com/matzehuels/govdash/pkg/errors"
)

// SimulationParams configure a simulation run.
type SimulationParams struct {
	Speed               float64 `json:"speed" yaml:"speed" toml:"speed"`
	AgentCount          int     `json:"agent_count" yaml:"agent_count" toml:"agent_count"`
	TransactionRate     int     `json:"transaction_rate" yaml:"transaction_rate" toml:"transaction_rate"`
	ProposalFrequency   int     `json:"proposal_frequency" yaml:"proposal_frequency" toml:"proposal_frequency"`
	ConflictProbability int     `json:"conflict_probability" yaml:"conflict_probability" toml:"conflict_probability"`
}

// DefaultSimulationParams returns the parameters a fresh control starts with.
func DefaultSimulationParams() SimulationParams {
	return SimulationParams{
		Speed:               1,
		AgentCount:          10,
		TransactionRate:     100,
		ProposalFrequency:   5,
		ConflictProbability: 15,
	}
}

// Parameter bounds accepted by Validate.
const (
	MinSpeed, MaxSpeed                             = 0.5, 5
	MinAgentCount, MaxAgentCount                   = 5, 50
	MinTransactionRate, MaxTransactionRate         = 10, 500
	MinProposalFrequency, MaxProposalFrequency     = 1, 20
	MinConflictProbability, MaxConflictProbability = 0, 50
)

// Validate reports the first parameter outside its bounds.
func (p SimulationParams) Validate() error {
	switch {
	case p.Speed < MinSpeed || p.Speed > MaxSpeed:
		return outOfRange("speed", p.Speed, MinSpeed, MaxSpeed)
	case p.AgentCount < MinAgentCount || p.AgentCount > MaxAgentCount:
		return outOfRange("agent_count", float64(p.AgentCount), MinAgentCount, MaxAgentCount)
	case p.TransactionRate < MinTransactionRate || p.TransactionRate > MaxTransactionRate:
		return outOfRange("transaction_rate", float64(p.TransactionRate), MinTransactionRate, MaxTransactionRate)
	case p.ProposalFrequency < MinProposalFrequency || p.ProposalFrequency > MaxProposalFrequency:
		return outOfRange("proposal_frequency", float64(p.ProposalFrequency), MinProposalFrequency, MaxProposalFrequency)
	case p.ConflictProbability < MinConflictProbability || p.ConflictProbability > MaxConflictProbability:
		return outOfRange("conflict_probability", float64(p.ConflictProbability), MinConflictProbability, MaxConflictProbability)
	}
	return nil
}

func outOfRange(name string, v, lo, hi float64) error {
	return errors.New(errors.ErrCodeInvalidInput, "%s %g out of range [%g, %g]", name, v, lo, hi)
}

// Scenario is a named preset of simulation parameters.
type Scenario struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Params      SimulationParams `json:"params"`
}

// Scenarios lists the built-in presets.
var Scenarios = []Scenario{
	{
		Name:        "High Activity",
		Description: "Maximum transaction volume",
		Params:      SimulationParams{Speed: 2, AgentCount: 30, TransactionRate: 500, ProposalFrequency: 10, ConflictProbability: 15},
	},
	{
		Name:        "Governance Crisis",
		Description: "Multiple conflicts, low participation",
		Params:      SimulationParams{Speed: 1, AgentCount: 20, TransactionRate: 100, ProposalFrequency: 15, ConflictProbability: 45},
	},
	{
		Name:        "Stable Growth",
		Description: "Balanced parameters",
		Params:      DefaultSimulationParams(),
	},
	{
		Name:        "Stress Test",
		Description: "Extreme conditions",
		Params:      SimulationParams{Speed: 5, AgentCount: 50, TransactionRate: 500, ProposalFrequency: 20, ConflictProbability: 50},
	},
}

// LookupScenario finds a preset by name, ignoring case.
func LookupScenario(name string) (Scenario, bool) {
	for _, s := range Scenarios {
		if equalFold(s.Name, name) {
			return s, true
		}
	}
	return Scenario{}, false
}

// SimulationRun is a started simulation as recorded by the data source.
type SimulationRun struct {
	ID        string           `json:"id"`
	Params    SimulationParams `json:"params"`
	StartedAt time.Time        `json:"started_at"`
}

// NormalizeSimulationRun builds a SimulationRun from the row a data source
// returned for an insert. Parameters may be flat columns or nested under
// "params".
func NormalizeSimulationRun(rec Record) SimulationRun {
	rec = rec.Flatten("params")
	run := SimulationRun{}
	run.ID, _ = rec.String("id", "run_id")
	run.StartedAt, _ = rec.Time("started_at", "created_at", "timestamp")
	run.Params.Speed, _ = rec.Float("speed")
	run.Params.AgentCount = count(rec.Float("agent_count"))
	run.Params.TransactionRate = count(rec.Float("transaction_rate"))
	run.Params.ProposalFrequency = count(rec.Float("proposal_frequency"))
	run.Params.ConflictProbability = count(rec.Float("conflict_probability"))
	return run
}
