package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	level string
	msg   string
	kv    []any
}

type recorder struct {
	entries []entry
}

func (r *recorder) Debug(msg string, kv ...any) { r.entries = append(r.entries, entry{"debug", msg, kv}) }
func (r *recorder) Info(msg string, kv ...any)  { r.entries = append(r.entries, entry{"info", msg, kv}) }
func (r *recorder) Warn(msg string, kv ...any)  { r.entries = append(r.entries, entry{"warn", msg, kv}) }
func (r *recorder) Error(msg string, kv ...any) { r.entries = append(r.entries, entry{"error", msg, kv}) }

func TestWithPrependsFields(t *testing.T) {
	rec := &recorder{}
	l := With(rec, "connection", "c1")

	l.Debug("selected", "node", "db1")
	l.Info("connected")
	l.Warn("failed", "node", "db2", "failures", 1)
	l.Error("exhausted")

	assert.Equal(t, []entry{
		{"debug", "selected", []any{"connection", "c1", "node", "db1"}},
		{"info", "connected", []any{"connection", "c1"}},
		{"warn", "failed", []any{"connection", "c1", "node", "db2", "failures", 1}},
		{"error", "exhausted", []any{"connection", "c1"}},
	}, rec.entries)
}

func TestWithNesting(t *testing.T) {
	rec := &recorder{}
	l := With(With(rec, "a", 1), "b", 2)

	l.Info("msg", "c", 3)

	assert.Equal(t, []any{"a", 1, "b", 2, "c", 3}, rec.entries[0].kv)
}

func TestWithNopAndEmpty(t *testing.T) {
	nop := NewNopLogger()
	assert.Same(t, nop, With(nop, "connection", "c1"))

	rec := &recorder{}
	assert.Same(t, rec, With(rec))
}
