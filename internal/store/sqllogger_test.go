package store

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) recordsFor(msg string) []map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.attrs {
		if m["msg"].String() == msg {
			out = append(out, m)
		}
	}
	return out
}

func TestNewLoggingConnector_NilLoggerUsesDefault(t *testing.T) {
	conn := NewLoggingConnector(":memory:", nil)
	lc, ok := conn.(*loggingConnector)
	require.True(t, ok)
	assert.NotNil(t, lc.logger)
}

func TestLoggingConnector_ExecAndQueryLogged(t *testing.T) {
	handler := &captureHandler{}
	db := sql.OpenDB(NewLoggingConnector(":memory:", slog.New(handler)))
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	_, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, label TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t (label) VALUES (?)`, "NNE")
	require.NoError(t, err)

	var label string
	require.NoError(t, db.QueryRow(`SELECT label FROM t WHERE id = ?`, 1).Scan(&label))
	assert.Equal(t, "NNE", label)

	recs := handler.recordsFor("sql")
	require.GreaterOrEqual(t, len(recs), 3)

	var sawInsert, sawQuery bool
	for _, r := range recs {
		switch r["sql"].String() {
		case `INSERT INTO t (label) VALUES (?)`:
			sawInsert = true
			assert.Equal(t, "exec", r["op"].String())
			assert.Contains(t, r["args"].String(), "NNE")
		case `SELECT label FROM t WHERE id = ?`:
			sawQuery = true
			assert.Equal(t, "query", r["op"].String())
		}
	}
	assert.True(t, sawInsert, "insert logged")
	assert.True(t, sawQuery, "select logged")
}

func TestStore_LogSQLRunsMigrations(t *testing.T) {
	handler := &captureHandler{}
	ctx := context.Background()

	s, err := Open(Options{Path: filepath.Join(t.TempDir(), "samples.db"), LogSQL: true}, slog.New(handler))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Initialize(ctx))
	_, err = s.Append(ctx, sampleAt("2024-05-01 12:00", 1))
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NotEmpty(t, handler.recordsFor("sql"))
	assert.Len(t, handler.recordsFor("migration applied"), 1)
}
