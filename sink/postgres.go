package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gr-butler/joystick/receive"
	_ "github.com/lib/pq"
	logger "github.com/sirupsen/logrus"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS joystick_events (
	id       BIGSERIAL PRIMARY KEY,
	received TIMESTAMPTZ NOT NULL,
	kind     TEXT NOT NULL,
	source   TEXT NOT NULL,
	x        SMALLINT,
	y        SMALLINT,
	button   SMALLINT,
	raw      BYTEA,
	error    TEXT
)`

const insertEvent = `
INSERT INTO joystick_events (received, kind, source, x, y, button, raw, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const dbTimeout = 5 * time.Second

// Postgres records every event in the joystick_events table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and creates the events table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if _, err := db.ExecContext(ctx, createEventsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create joystick_events: %w", err)
	}
	logger.Info("Connected to postgres")
	return &Postgres{db: db}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Publish(ev receive.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var x, y, btn sql.NullInt16
	var errText sql.NullString
	if ev.Kind == receive.KindTelemetry {
		x = sql.NullInt16{Int16: int16(ev.X), Valid: true}
		y = sql.NullInt16{Int16: int16(ev.Y), Valid: true}
		btn = sql.NullInt16{Int16: int16(ev.Button), Valid: true}
	} else {
		errText = sql.NullString{String: ev.Error, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, insertEvent,
		ev.Time.UTC(), string(ev.Kind), ev.Source.String(), x, y, btn, ev.Raw, errText)
	return err
}

// Count returns the number of stored events of the given kind.
func (p *Postgres) Count(ctx context.Context, kind receive.Kind) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM joystick_events WHERE kind = $1`, string(kind)).Scan(&n)
	return n, err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
