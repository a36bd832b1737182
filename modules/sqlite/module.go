// Package sqlite provides a telemetry sink that stores every value it
// receives in a SQLite database, keyed by run, actor and sequence number.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/network"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/registry"

	_ "modernc.org/sqlite"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Args defines the arguments of the sqlite sink.
type Args struct {
	// Path of the database file; empty uses the application default.
	Path string `cty:"path"`
	Kind string `cty:"kind"`
	// Batch is the number of samples written per transaction.
	Batch int `cty:"batch"`
}

// DefaultBatch is the number of samples a sink commits at once.
const DefaultBatch = 64

// busyTimeout is how long a writer waits for another sink sharing the file.
const busyTimeout = 5 * time.Second

const schema = `
	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL,
		actor  TEXT NOT NULL,
		seq    INTEGER NOT NULL,
		value,
		PRIMARY KEY (run_id, actor, seq)
	)
`

type row struct {
	runID string
	seq   int64
	value any
}

// Sink buffers samples and writes them in short transactions, so several
// sinks can share one database file.
type Sink struct {
	name  string
	path  string
	in    port.Spec
	batch int

	mu      sync.Mutex
	db      *sql.DB
	pending []row
	seq     int64
}

// NewSink creates a sink for values of the given port spec. A batch below 1
// commits every sample on its own.
func NewSink(name, path string, in port.Spec, batch int) *Sink {
	return &Sink{name: name, path: path, in: in.Rename("in"), batch: max(batch, 1)}
}

func (s *Sink) Inputs() []port.Spec  { return []port.Spec{s.in} }
func (s *Sink) Outputs() []port.Spec { return nil }

// dsn adds the busy timeout and immediate write locks to the path.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_txlock=immediate", path, sep, busyTimeout.Milliseconds())
}

func (s *Sink) init(ctx context.Context) error {
	db, err := sql.Open("sqlite", dsn(s.path))
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("creating samples table: %w", err)
	}
	s.db = db
	ctxlog.FromContext(ctx).Debug("Telemetry database opened.", "path", s.path)
	return nil
}

// flush writes the pending samples in one transaction.
func (s *Sink) flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (run_id, actor, seq, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, r := range s.pending {
		if _, err := stmt.ExecContext(ctx, r.runID, s.name, r.seq, r.value); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("storing sample %d: %w", r.seq, err)
		}
	}
	if err := errors.Join(stmt.Close(), tx.Commit()); err != nil {
		return err
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *Sink) Compute(ctx context.Context, in actor.Frame) (actor.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		if err := s.init(ctx); err != nil {
			return nil, fmt.Errorf("opening telemetry database %s: %w", s.path, err)
		}
	}
	s.pending = append(s.pending, row{runID: network.RunID(ctx), seq: s.seq, value: in[0]})
	s.seq++
	if len(s.pending) < s.batch {
		return nil, nil
	}
	// Writes outlive a cancelled run so that what was received is kept.
	if err := s.flush(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	return nil, nil
}

// Close writes the remaining samples and closes the database.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := errors.Join(s.flush(context.Background()), s.db.Close())
	s.db, s.pending = nil, nil
	return err
}

// Register registers the sink with the registry.
func (m *Module) Register(r *registry.Registry) {
	registry.Register(r, "sqlite", "stores every value in a SQLite database", Args{Kind: "float", Batch: DefaultBatch},
		func(env registry.Env, a Args) (actor.Client, error) {
			path := a.Path
			if path == "" {
				path = env.TelemetryPath
			}
			if path == "" {
				return nil, errors.New("no database path: set the path argument or the telemetry option")
			}
			spec, err := registry.SpecFor(a.Kind, "in")
			if err != nil {
				return nil, err
			}
			if a.Batch < 1 {
				return nil, fmt.Errorf("batch must be at least 1, got %d", a.Batch)
			}
			return NewSink(env.Name, path, spec, a.Batch), nil
		})
}
