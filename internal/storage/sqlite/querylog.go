package sqlite

import (
	"database/sql"
	"log"
	"time"
)

const slowQueryThreshold = 100 * time.Millisecond

// dbtx is the query surface sqlTx uses; satisfied by *sql.Tx and by
// queryLogger wrapping one.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// queryLogger logs statements that exceed the slow query threshold.
type queryLogger struct {
	inner dbtx
}

func (q *queryLogger) Exec(query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := q.inner.Exec(query, args...)
	if d := time.Since(start); d >= slowQueryThreshold {
		log.Printf("SLOW QUERY (%s): %s", d.Round(time.Millisecond), truncateQuery(query))
	}
	return result, err
}

func (q *queryLogger) Query(query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.inner.Query(query, args...)
	if d := time.Since(start); d >= slowQueryThreshold {
		log.Printf("SLOW QUERY (%s): %s", d.Round(time.Millisecond), truncateQuery(query))
	}
	return rows, err
}

func (q *queryLogger) QueryRow(query string, args ...any) *sql.Row {
	start := time.Now()
	row := q.inner.QueryRow(query, args...)
	if d := time.Since(start); d >= slowQueryThreshold {
		log.Printf("SLOW QUERY (%s): %s", d.Round(time.Millisecond), truncateQuery(query))
	}
	return row
}

func truncateQuery(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
