// Package audit implements the append-only event log backing get_logs and
// the DR committee's "every state change is append-logged" requirement.
// Modeled on the GovernanceAppendAudit/AuditRecord pattern in
// native/governance.
package audit

import (
	"time"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/store"
)

// Entry is one audit record. Kind is a short machine-readable event name
// ("request.created", "request.approved", "dr.recovery.executed", ...).
type Entry struct {
	ID         ids.ID
	OccurredAt time.Time
	Actor      ids.ID
	Kind       string
	SubjectID  ids.ID
	Detail     string
}

// Log is the append-only store, ordered by id (time-ordered ids are
// generated by the caller in practice, but ordering is not load-bearing
// here — see Recent, which sorts explicitly by OccurredAt).
type Log struct {
	entries *store.Map[Entry]
}

func NewLog(db store.Database) *Log {
	return &Log{entries: store.NewMap[Entry](db, "audit")}
}

// Append records a new entry. Entries are never mutated or removed.
func (l *Log) Append(e Entry) error {
	return l.entries.Put(e.ID, &e)
}

// Recent returns up to limit entries, most recent first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	all, err := l.entries.All()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(all))
	for i, e := range all {
		out[i] = *e
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].OccurredAt.Before(out[j].OccurredAt); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
