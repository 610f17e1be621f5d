// Package postgres reads the governance tables directly from PostgreSQL.
//
// The expected schema is the one the simulation writes:
//
//   - agent_states: one row per agent state change, payload in "state"
//   - governance_log: proposals and rule changes, payload in "details"
//   - transactions: inter-agent transactions, shown as conflicts
//   - simulation_runs: one row per started simulation
//
// Columns beyond the ones a normalizer reads are ignored, and missing ones
// fall back to defaults, so the source tolerates schema drift.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/source"
)

// Name is the backend name.
const Name = "postgres"

// Row limits.
const (
	ListLimit  = 100
	AgentLimit = 20
)

// timestampColumns are tried in order when ordering governance_log.
var timestampColumns = []string{"timestamp", "created_at", "time", "datetime"}

const timestampColumnsQuery = `SELECT column_name FROM information_schema.columns
	WHERE table_name = 'governance_log'
	AND column_name IN ('timestamp', 'created_at', 'time', 'datetime')`

// Source queries a PostgreSQL database. It is safe for concurrent use.
type Source struct {
	db *sql.DB
}

// Open connects to url and verifies the connection.
func Open(ctx context.Context, url string) (*Source, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open database")
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "ping database")
	}
	return &Source{db: db}, nil
}

// New wraps an open database handle.
func New(db *sql.DB) *Source {
	return &Source{db: db}
}

// Name implements source.Source.
func (s *Source) Name() string { return Name }

// Agents returns the latest state of every agent. Databases without an
// agent_states table fall back to the first transactions.
func (s *Source) Agents(ctx context.Context) ([]governance.Agent, error) {
	rows, err := s.query(ctx, `SELECT DISTINCT ON (agent_id) * FROM agent_states ORDER BY agent_id, id DESC`)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		rows, err = s.query(ctx, fmt.Sprintf(`SELECT * FROM transactions LIMIT %d`, AgentLimit))
		if err != nil {
			return nil, err
		}
	}
	return governance.NormalizeAgents(rows), nil
}

// Proposals returns governance_log entries, newest first.
func (s *Source) Proposals(ctx context.Context) ([]governance.Proposal, error) {
	rows, err := s.governanceLog(ctx, "DESC")
	if err != nil {
		return nil, err
	}
	out := make([]governance.Proposal, len(rows))
	for i, rec := range rows {
		out[i] = governance.NormalizeProposal(rec)
	}
	return out, nil
}

// Rules returns governance_log entries, oldest first.
func (s *Source) Rules(ctx context.Context) ([]governance.RuleChange, error) {
	rows, err := s.governanceLog(ctx, "ASC")
	if err != nil {
		return nil, err
	}
	out := make([]governance.RuleChange, len(rows))
	for i, rec := range rows {
		out[i] = governance.NormalizeRuleChange(rec)
	}
	return out, nil
}

func (s *Source) governanceLog(ctx context.Context, dir string) ([]governance.Record, error) {
	col, err := s.timestampColumn(ctx)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT * FROM governance_log ORDER BY %s %s LIMIT %d`,
		pgx.Identifier{col}.Sanitize(), dir, ListLimit)
	return s.query(ctx, q)
}

// timestampColumn picks the column governance_log is ordered by.
func (s *Source) timestampColumn(ctx context.Context) (string, error) {
	rows, err := s.query(ctx, timestampColumnsQuery)
	if err != nil {
		return "", err
	}
	found := make(map[string]bool, len(rows))
	for _, rec := range rows {
		if name, ok := rec.String("column_name"); ok {
			found[name] = true
		}
	}
	for _, col := range timestampColumns {
		if found[col] {
			return col, nil
		}
	}
	return "id", nil
}

// Conflicts returns the newest transactions.
func (s *Source) Conflicts(ctx context.Context) ([]governance.Conflict, error) {
	rows, err := s.query(ctx, fmt.Sprintf(`SELECT * FROM transactions ORDER BY id DESC LIMIT %d`, ListLimit))
	if err != nil {
		return nil, err
	}
	out := make([]governance.Conflict, len(rows))
	for i, rec := range rows {
		out[i] = governance.NormalizeConflict(rec)
	}
	return out, nil
}

// Metrics reads the newest agent_states row. An empty table yields zeros.
func (s *Source) Metrics(ctx context.Context) (governance.Metrics, error) {
	rows, err := s.query(ctx, `SELECT * FROM agent_states ORDER BY id DESC LIMIT 1`)
	if err != nil {
		return governance.Metrics{}, err
	}
	if len(rows) == 0 {
		return governance.Metrics{}, nil
	}
	return governance.NormalizeMetrics(rows[0]), nil
}

// CastVote increments the votes_<type> counter of a governance_log row.
func (s *Source) CastVote(ctx context.Context, proposalID string, vote governance.VoteType) (governance.Proposal, error) {
	if err := source.ValidateVote(proposalID, vote); err != nil {
		return governance.Proposal{}, err
	}
	col := vote.Column()
	cols, err := s.query(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_name = 'governance_log' AND column_name = $1`, col)
	if err != nil {
		return governance.Proposal{}, err
	}
	if len(cols) == 0 {
		return governance.Proposal{}, errors.New(errors.ErrCodeUnsupported,
			"column %s does not exist in governance_log", col)
	}

	ident := pgx.Identifier{col}.Sanitize()
	rows, err := s.query(ctx, fmt.Sprintf(`UPDATE governance_log SET %s = COALESCE(%s, 0) + 1 WHERE id::text = $1 RETURNING *`,
		ident, ident), proposalID)
	if err != nil {
		return governance.Proposal{}, err
	}
	if len(rows) == 0 {
		return governance.Proposal{}, errors.New(errors.ErrCodeProposalNotFound, "proposal %q not found", proposalID)
	}
	return governance.NormalizeProposal(rows[0]), nil
}

// StartSimulation inserts a simulation_runs row.
func (s *Source) StartSimulation(ctx context.Context, p governance.SimulationParams) (governance.SimulationRun, error) {
	if err := p.Validate(); err != nil {
		return governance.SimulationRun{}, err
	}
	rows, err := s.query(ctx, `INSERT INTO simulation_runs
		(speed, agent_count, transaction_rate, proposal_frequency, conflict_probability)
		VALUES ($1, $2, $3, $4, $5) RETURNING *`,
		p.Speed, p.AgentCount, p.TransactionRate, p.ProposalFrequency, p.ConflictProbability)
	if err != nil {
		return governance.SimulationRun{}, err
	}
	if len(rows) == 0 {
		return governance.SimulationRun{}, errors.New(errors.ErrCodeInternal, "insert returned no row")
	}
	return governance.NormalizeSimulationRun(rows[0]), nil
}

// Health runs SELECT NOW().
func (s *Source) Health(ctx context.Context) (source.Health, error) {
	var now time.Time
	if err := s.db.QueryRowContext(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return source.Health{Status: "error", Message: "Database connection failed", Database: "disconnected"},
			s.wrap(ctx, err, "health check")
	}
	return source.Health{Status: "ok", Message: "database reachable", Database: "connected", Time: now}, nil
}

// CheckTables counts the rows of every backing table. A missing table is
// reported, not returned as an error.
func (s *Source) CheckTables(ctx context.Context) (map[string]source.TableStatus, error) {
	out := make(map[string]source.TableStatus, len(source.Tables))
	for _, table := range source.Tables {
		var n int64
		err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgx.Identifier{table}.Sanitize())).Scan(&n)
		if err != nil {
			if ctx.Err() != nil {
				return nil, s.wrap(ctx, err, "check tables")
			}
			out[table] = source.TableStatus{Exists: false, Error: err.Error()}
			continue
		}
		out[table] = source.TableStatus{Exists: true, Count: n}
	}
	return out, nil
}

// Columns lists the columns of table in declaration order.
func (s *Source) Columns(ctx context.Context, table string) ([]source.Column, error) {
	if table == "" {
		return nil, errors.New(errors.ErrCodeInvalidTable, "table name is required")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_name = $1 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, s.wrap(ctx, err, "list columns of %s", table)
	}
	defer rows.Close()

	var cols []source.Column
	for rows.Next() {
		var c source.Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, s.wrap(ctx, err, "scan column")
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(ctx, err, "list columns of %s", table)
	}
	return cols, nil
}

// Close closes the connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}

// query runs q and returns every row as a Record keyed by column name.
func (s *Source) query(ctx context.Context, q string, args ...any) ([]governance.Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.wrap(ctx, err, "query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, s.wrap(ctx, err, "read columns")
	}
	var out []governance.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.wrap(ctx, err, "scan row")
		}
		rec := make(governance.Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(ctx, err, "iterate rows")
	}
	return out, nil
}

func (s *Source) wrap(ctx context.Context, err error, format string, args ...any) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeSourceUnavailable, err, format, args...)
}

var (
	_ source.Source    = (*Source)(nil)
	_ source.Inspector = (*Source)(nil)
)
