package governance

import (
	"encoding/json"
	"strings"
	"time"
)

// ConflictStatus is the resolution state of a conflict.
type ConflictStatus string

// Conflict states.
const (
	ConflictOpen        ConflictStatus = "open"
	ConflictNegotiating ConflictStatus = "negotiating"
	ConflictResolved    ConflictStatus = "resolved"
	ConflictEscalated   ConflictStatus = "escalated"
)

// Severity grades a conflict.
type Severity string

// Conflict severities.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ConflictLog is one action taken while resolving a conflict.
type ConflictLog struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// Conflict is a dispute between agents.
type Conflict struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Parties    []string       `json:"parties"`
	Status     ConflictStatus `json:"status"`
	Severity   Severity       `json:"severity"`
	CreatedAt  time.Time      `json:"created_at"`
	ResolvedAt time.Time      `json:"resolved_at,omitzero"`
	Outcome    string         `json:"outcome,omitempty"`
	Logs       []ConflictLog  `json:"logs"`
}

// NormalizeConflict builds a Conflict from a raw record. Rows of the
// transactions table are accepted too: the two agents become the parties
// and the transaction type the title.
func NormalizeConflict(rec Record) Conflict {
	rec = rec.Flatten("metadata")

	c := Conflict{
		Title:    "Untitled conflict",
		Status:   ConflictOpen,
		Severity: SeverityMedium,
		Parties:  []string{},
		Logs:     []ConflictLog{},
	}
	c.ID, _ = rec.String("id", "conflict_id", "transaction_id")
	if title, ok := rec.String("title", "transaction_type", "transaction_id"); ok {
		c.Title = title
	}
	if parties, ok := rec.Strings("parties", "participants"); ok {
		c.Parties = parties
	} else {
		for _, k := range []string{"from_agent", "to_agent"} {
			if p, ok := rec.String(k); ok {
				c.Parties = append(c.Parties, p)
			}
		}
	}
	if s, ok := rec.String("status"); ok {
		switch ConflictStatus(strings.ToLower(s)) {
		case ConflictNegotiating:
			c.Status = ConflictNegotiating
		case ConflictResolved:
			c.Status = ConflictResolved
		case ConflictEscalated:
			c.Status = ConflictEscalated
		}
	}
	if s, ok := rec.String("severity"); ok {
		switch Severity(strings.ToLower(s)) {
		case SeverityLow:
			c.Severity = SeverityLow
		case SeverityHigh:
			c.Severity = SeverityHigh
		case SeverityCritical:
			c.Severity = SeverityCritical
		}
	}
	c.CreatedAt, _ = rec.Time("created_at", "createdAt", "timestamp")
	c.ResolvedAt, _ = rec.Time("resolved_at", "resolvedAt")
	c.Outcome, _ = rec.String("outcome")
	c.Logs = normalizeLogs(rec["logs"])
	return c
}

func normalizeLogs(v any) []ConflictLog {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case []map[string]any:
		for _, m := range x {
			items = append(items, m)
		}
	case string, []byte:
		raw, _ := toString(x)
		_ = json.Unmarshal([]byte(raw), &items)
	}
	logs := make([]ConflictLog, 0, len(items))
	for _, item := range items {
		rec, ok := toObject(item)
		if !ok {
			continue
		}
		l := ConflictLog{}
		l.Timestamp, _ = rec.Time("timestamp")
		l.Actor, _ = rec.String("actor")
		l.Action, _ = rec.String("action")
		l.Details, _ = rec.String("details")
		logs = append(logs, l)
	}
	return logs
}
