// Package governance defines the domain types of the governance dashboard and
// the normalization rules that turn raw rows from any data source into them.
//
// # Core Types
//
//   - [Agent]: a participant in the governance network (a graph node)
//   - [Proposal], [RuleChange], [Conflict]: dashboard panel records
//   - [Metrics]: the single row of global governance metrics
//   - [SimulationParams], [SimulationRun]: simulation control
//   - [Snapshot]: the atomically replaced set of agents from one fetch
//
// # Normalization
//
// Sources hand back loosely typed [Record] values (database rows, JSON
// objects, documents). Every NormalizeX function applies per-field
// defaults and never rejects a record:
//
//	agents := governance.NormalizeAgents(records)
//
// A record without an id gets a name-based UUID derived from its position
// and name, so polling unchanged data yields unchanged ids.
//
// # Status
//
// [Status] is a closed enum. Unrecognised strings map to [StatusUnknown]
// rather than silently matching one of the known states.
package governance
