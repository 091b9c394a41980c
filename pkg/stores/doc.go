// Package stores provides the selection history persistence layer backed by
// SQLite. It records selection runs, per-family probe outcomes and the
// lifecycle event stream, and serves the aggregate statistics the CLI
// reports. Schema changes ship as embedded golang-migrate migrations.
package stores
