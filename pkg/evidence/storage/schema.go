package storage

import (
	"fmt"
	"strings"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Timestamps are stored as Unix nanoseconds so that range filters and
// ordering behave the same on every driver.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    batch_id TEXT NOT NULL,
    request_id TEXT,
    source TEXT,

    table_name TEXT NOT NULL,
    table_version TEXT,
    hit_policy TEXT NOT NULL,

    record_index INTEGER NOT NULL,
    input_hash TEXT,
    fired TEXT,
    outcome TEXT NOT NULL,
    output TEXT,

    evaluated_at BIGINT NOT NULL,
    duration_ns BIGINT,
    recorded_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_evaluated_at ON evidence(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_evidence_table_name ON evidence(table_name);
CREATE INDEX IF NOT EXISTS idx_evidence_batch_id ON evidence(batch_id);
CREATE INDEX IF NOT EXISTS idx_evidence_request_id ON evidence(request_id);
CREATE INDEX IF NOT EXISTS idx_evidence_outcome ON evidence(outcome);
`

const columns = `id, batch_id, request_id, source,
	table_name, table_version, hit_policy,
	record_index, input_hash, fired, outcome, output,
	evaluated_at, duration_ns, recorded_at`

// dialect captures the differences between the supported SQL drivers.
type dialect struct {
	// driver is the database/sql driver name.
	driver string

	// numbered placeholders ($1, $2) instead of ?.
	numbered bool

	// pragmas run once after opening.
	pragmas []string
}

var dialects = map[string]dialect{
	"sqlite":   {driver: "sqlite"},
	"sqlite3":  {driver: "sqlite3"},
	"postgres": {driver: "postgres", numbered: true},
}

// schema returns the DDL statements, one per element.
func (d dialect) schema() []string {
	var stmts []string
	for _, s := range strings.Split(schemaTemplate, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// rebind rewrites ? placeholders for drivers that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) insertSchemaVersion() string {
	return d.rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ON CONFLICT (version) DO NOTHING")
}

const getSchemaVersion = "SELECT version FROM schema_version ORDER BY version DESC LIMIT 1"
