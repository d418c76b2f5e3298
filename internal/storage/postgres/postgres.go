// Package postgres persists the engine's event stream. Absence of the
// database is never fatal; callers degrade to the in-memory ring buffer.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// EventRow represents an event stored in Postgres.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	ShowID    string                 `json:"show_id"`
	RunID     *string                `json:"run_id,omitempty"`
}

// Client manages the Postgres connection for event storage.
type Client struct {
	db     *sql.DB
	showID string
}

// New creates a new Postgres client using PG* environment variables.
// Returns an error if the database is unreachable; callers should treat
// that as "run without persistence", not as a startup failure.
func New(showID string) (*Client, error) {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "story")
	dbname := getEnv("PGDATABASE", "story")
	password := os.Getenv("PGPASSWORD")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += " password=" + password
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:     db,
		showID: showID,
	}

	if err := client.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return client, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			event_id BIGSERIAL PRIMARY KEY,
			ts       TIMESTAMPTZ NOT NULL,
			level    TEXT NOT NULL,
			event    TEXT NOT NULL,
			msg      TEXT,
			fields   JSONB,
			show_id  TEXT NOT NULL,
			run_id   TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_show_id ON events(show_id);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts an event into the database.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, runID string) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}
	var runPtr *string
	if runID != "" {
		runPtr = &runID
	}

	_, err = c.db.Exec(
		`INSERT INTO events (ts, level, event, msg, fields, show_id, run_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ts, level, event, msgPtr, fieldsJSON, c.showID, runPtr,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent returns the newest n events for this show, oldest first.
func (c *Client) Recent(n int) ([]EventRow, error) {
	if n <= 0 {
		n = 50
	}

	rows, err := c.db.Query(
		`SELECT event_id, ts, level, event, msg, fields, show_id, run_id
		 FROM events
		 WHERE show_id = $1
		 ORDER BY ts DESC
		 LIMIT $2`,
		c.showID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var row EventRow
		var fieldsJSON []byte
		if err := rows.Scan(&row.EventID, &row.Timestamp, &row.Level, &row.Event,
			&row.Message, &fieldsJSON, &row.ShowID, &row.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &row.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returned newest first; callers want chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}
